// Package service holds the registries and the lending engine. Each
// registry loads its records once from the store, serves every read from
// memory and writes through to the store on mutation.
package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/asanchezr/biblioteca-service/internal/errs"
	"github.com/asanchezr/biblioteca-service/internal/model"
	"github.com/asanchezr/biblioteca-service/internal/repository"
	"github.com/asanchezr/biblioteca-service/internal/validate"
)

// penaltyDays is added to a member's penalty window per late return.
const penaltyDays = 15

type nowFunc func() time.Time

type MemberService struct {
	log   *zap.Logger
	store repository.MemberStore

	// mu guards members and every member mutation. Each handler runs in
	// its own goroutine, so every read-modify-write on the cache must hold it.
	mu      sync.RWMutex
	members []*model.Member
	now     nowFunc
}

type MemberOption func(*MemberService)

func WithMemberClock(now func() time.Time) MemberOption {
	return func(s *MemberService) {
		s.now = now
	}
}

func NewMemberService(ctx context.Context, store repository.MemberStore, log *zap.Logger, opts ...MemberOption) (*MemberService, error) {
	ms, err := store.ReadAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load members")
	}
	s := &MemberService{
		log:   log.Named("members"),
		store: store,
		now:   time.Now,
	}
	for i := range ms {
		s.members = append(s.members, &ms[i])
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register creates a member and returns it as the now-authenticated caller.
// Checks run in a fixed order: required fields, role default, duplicate
// email, duplicate dni, dni checksum, email, role.
func (s *MemberService) Register(ctx context.Context, req model.RegisterMemberRequest) (*model.Member, error) {
	if validate.NotFilled(req.DNI, req.Name, req.Email, req.Password) {
		return nil, errs.Validationf("dni, name, email and password are required")
	}

	// A caller that does not say otherwise registers as a normal member,
	// administrators are provisioned out of band.
	role := req.Role
	if validate.NotFilled(role) {
		role = string(model.RoleNormal)
	}

	// The duplicate checks and the append must be one atomic sequence,
	// otherwise two concurrent registrations can both pass the check.
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findByEmail(req.Email) != nil {
		return nil, errs.Validationf("this email is already in use")
	}
	if s.findByDNI(req.DNI) != nil {
		return nil, errs.Validationf("this dni is already in use")
	}

	ok, err := validate.DocumentValid(req.DNI)
	if err != nil {
		return nil, errs.Validationf("invalid dni: %v", err)
	}
	if !ok {
		return nil, errs.Validationf("invalid dni")
	}
	if !validate.EmailValid(req.Email) {
		return nil, errs.Validationf("invalid email")
	}
	if !validate.RoleValid(role) {
		return nil, errs.Validationf("invalid member role")
	}
	parsedRole, _ := model.ParseRole(role)

	created, err := s.store.Create(ctx, model.Member{
		DNI:      req.DNI,
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     parsedRole,
	})
	if err != nil {
		return nil, err
	}

	m := &created
	s.members = append(s.members, m)
	s.log.Info("member registered", zap.Int("id", m.ID), zap.String("email", m.Email))
	return m, nil
}

// Login checks the credentials against the registry and returns the match.
func (s *MemberService) Login(email, password string) (*model.Member, error) {
	if validate.NotFilled(email, password) {
		return nil, errs.Validationf("all fields are required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	m := s.findByEmail(email)
	if m == nil {
		return nil, errs.Validationf("incorrect email")
	}
	if !validate.PasswordCorrect(m, password) {
		return nil, errs.Validationf("incorrect password")
	}
	return m, nil
}

func (s *MemberService) FindByID(id int) *model.Member {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.members {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// findByEmail and findByDNI expect the caller to hold s.mu.

func (s *MemberService) findByEmail(email string) *model.Member {
	for _, m := range s.members {
		if strings.EqualFold(m.Email, email) {
			return m
		}
	}
	return nil
}

func (s *MemberService) findByDNI(dni string) *model.Member {
	for _, m := range s.members {
		if m.DNI == dni {
			return m
		}
	}
	return nil
}

// ApplyPenalty extends the member's penalty window by penaltyDays on top of
// its current expiry. A member with no open window starts from now.
func (s *MemberService) ApplyPenalty(ctx context.Context, m *model.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	base := s.now()
	if m.PenalizedUntil != nil {
		base = *m.PenalizedUntil
	}
	until := base.AddDate(0, 0, penaltyDays)
	m.PenalizedUntil = &until

	if err := s.store.Update(ctx, *m); err != nil {
		return err
	}
	s.log.Info("member penalized",
		zap.Int("id", m.ID),
		zap.Time("until", until))
	return nil
}

// IncActiveLoans adjusts the derived outstanding-loan count. Only the
// lending engine calls this.
func (s *MemberService) IncActiveLoans(m *model.Member, delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.ActiveLoans += delta
}
