package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/asanchezr/biblioteca-service/internal/errs"
	"github.com/asanchezr/biblioteca-service/internal/model"
	"github.com/asanchezr/biblioteca-service/internal/repository"
	"github.com/asanchezr/biblioteca-service/internal/validate"
	"github.com/asanchezr/biblioteca-service/pkg/kafka"
)

// LendingService coordinates loans across the member, catalog and copy
// registries. It is the only writer of copy status and member penalties.
type LendingService struct {
	log     *zap.Logger
	store   repository.LoanStore
	members *MemberService
	copies  *CopyService

	// mu serializes Issue and Return end to end: the availability, penalty
	// and limit checks must not interleave with another request's mutations.
	mu       sync.RWMutex
	loans    []*model.Loan
	now      nowFunc
	producer sarama.SyncProducer
}

type LendingOption func(*LendingService)

func WithLendingClock(now func() time.Time) LendingOption {
	return func(s *LendingService) {
		s.now = now
	}
}

// WithProducer turns on loan event publishing.
func WithProducer(p sarama.SyncProducer) LendingOption {
	return func(s *LendingService) {
		s.producer = p
	}
}

func NewLendingService(ctx context.Context, store repository.LoanStore, members *MemberService, copies *CopyService, log *zap.Logger, opts ...LendingOption) (*LendingService, error) {
	ls, err := store.ReadAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load loans")
	}
	s := &LendingService{
		log:     log.Named("lending"),
		store:   store,
		members: members,
		copies:  copies,
		now:     time.Now,
	}
	for i := range ls {
		l := &ls[i]
		s.loans = append(s.loans, l)
		if validate.LoanOutstanding(l) {
			if m := members.FindByID(l.MemberID); m != nil {
				members.IncActiveLoans(m, 1)
			}
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue lends a copy to a member. Checks run in a fixed order and the first
// failure wins: ids filled, member exists, copy exists, member not
// penalized, member under the loan limit, copy available.
func (s *LendingService) Issue(ctx context.Context, memberID, copyID int) (*model.Loan, error) {
	if memberID == 0 || copyID == 0 {
		return nil, errs.Validationf("all fields are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.members.FindByID(memberID)
	if m == nil {
		return nil, errs.NotFoundf("no member registered with this id")
	}
	c := s.copies.FindByID(copyID)
	if c == nil {
		return nil, errs.NotFoundf("no copy registered with this id")
	}

	if validate.MemberPenalized(m, s.now()) {
		return nil, errs.RuleViolationf("member is penalized until %s", m.PenalizedUntil.Format(time.DateOnly))
	}
	if validate.OverLoanLimit(m) {
		return nil, errs.RuleViolationf("member has exceeded the active loan limit")
	}
	if !validate.CopyAvailable(c) {
		return nil, errs.RuleViolationf("this copy is not available")
	}

	created, err := s.store.Create(ctx, model.Loan{
		MemberID:  m.ID,
		CopyID:    c.ID,
		StartDate: s.now(),
	})
	if err != nil {
		return nil, err
	}
	l := &created
	s.loans = append(s.loans, l)

	if err := s.copies.SetStatus(ctx, c, model.StatusLoaned); err != nil {
		return nil, err
	}
	s.members.IncActiveLoans(m, 1)

	s.log.Info("loan issued", zap.Int("id", l.ID), zap.Int("memberId", m.ID), zap.Int("copyId", c.ID))
	s.publish(kafka.LoanEvent{
		LoanID:   l.ID,
		MemberID: m.ID,
		CopyID:   c.ID,
		Event:    kafka.EventLoanIssued,
		Date:     l.StartDate,
	})
	return l, nil
}

// Return closes a loan. A late return still completes: the copy comes back,
// the return date is set, and only then is the member penalized. The
// outcome tells the caller which of the two happened.
func (s *LendingService) Return(ctx context.Context, loanID int) (model.ReturnResult, error) {
	if loanID == 0 {
		return model.ReturnResult{}, errs.Validationf("all fields are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l := s.findByID(loanID)
	if l == nil {
		return model.ReturnResult{}, errs.NotFoundf("no loan registered with this id")
	}
	if !validate.LoanOutstanding(l) {
		return model.ReturnResult{}, errs.RuleViolationf("this loan has already been returned")
	}

	c := s.copies.FindByID(l.CopyID)
	if c == nil {
		return model.ReturnResult{}, errs.NotFoundf("no copy registered with this id")
	}
	if err := s.copies.SetStatus(ctx, c, model.StatusAvailable); err != nil {
		return model.ReturnResult{}, err
	}

	returnedAt := s.now()
	l.ReturnDate = &returnedAt
	if err := s.store.Update(ctx, *l); err != nil {
		return model.ReturnResult{}, err
	}

	m := s.members.FindByID(l.MemberID)
	if m != nil {
		s.members.IncActiveLoans(m, -1)
	}

	onTime, err := validate.ReturnedOnTime(l)
	if err != nil {
		return model.ReturnResult{}, err
	}

	result := model.ReturnResult{
		Loan:    *l,
		Outcome: model.OutcomeReturned,
		Message: "loan returned",
	}
	event := kafka.EventLoanReturned
	if !onTime && m != nil {
		if err := s.members.ApplyPenalty(ctx, m); err != nil {
			return model.ReturnResult{}, err
		}
		result.Outcome = model.OutcomeReturnedLate
		result.PenalizedUntil = m.PenalizedUntil
		result.Message = "loan returned late, member penalized"
		event = kafka.EventLoanReturnedLate
	}

	s.log.Info("loan returned",
		zap.Int("id", l.ID),
		zap.String("outcome", string(result.Outcome)))
	s.publish(kafka.LoanEvent{
		LoanID:   l.ID,
		MemberID: l.MemberID,
		CopyID:   l.CopyID,
		Event:    event,
		Date:     returnedAt,
	})
	return result, nil
}

func (s *LendingService) FindByID(id int) *model.Loan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findByID(id)
}

// findByID expects the caller to hold s.mu.
func (s *LendingService) findByID(id int) *model.Loan {
	for _, l := range s.loans {
		if l.ID == id {
			return l
		}
	}
	return nil
}

func (s *LendingService) List() []model.Loan {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Loan, 0, len(s.loans))
	for _, l := range s.loans {
		out = append(out, *l)
	}
	return out
}

// RecordLoanEvent is the consumer-side sink of the loan event stream, it
// writes the event to the audit log.
func (s *LendingService) RecordLoanEvent(_ context.Context, ev kafka.LoanEvent) error {
	s.log.Info("loan event",
		zap.Int("loanId", ev.LoanID),
		zap.Int("memberId", ev.MemberID),
		zap.Int("copyId", ev.CopyID),
		zap.String("event", ev.Event),
		zap.Time("date", ev.Date))
	return nil
}

func (s *LendingService) publish(ev kafka.LoanEvent) {
	if s.producer == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		s.log.Error("marshal loan event", zap.Error(err))
		return
	}
	msg := &sarama.ProducerMessage{Topic: kafka.LoanTopic, Value: sarama.ByteEncoder(data)}
	if _, _, err := s.producer.SendMessage(msg); err != nil {
		s.log.Error("publish loan event", zap.Error(err))
	}
}
