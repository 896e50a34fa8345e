package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/asanchezr/biblioteca-service/internal/errs"
	"github.com/asanchezr/biblioteca-service/internal/model"
	"github.com/asanchezr/biblioteca-service/internal/repository/inmem"
	"github.com/asanchezr/biblioteca-service/internal/service"
)

// lendingFixture wires the full registry stack over in-memory stores with a
// movable clock shared by the member and lending services.
type lendingFixture struct {
	members *service.MemberService
	catalog *service.CatalogService
	copies  *service.CopyService
	lending *service.LendingService
	now     time.Time
}

func newLendingFixture(t *testing.T) *lendingFixture {
	t.Helper()
	ctx := context.Background()
	log := zap.NewNop()

	f := &lendingFixture{
		now: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }

	var err error
	f.members, err = service.NewMemberService(ctx, inmem.NewMemberStore(), log, service.WithMemberClock(clock))
	require.NoError(t, err)
	f.catalog, err = service.NewCatalogService(ctx, inmem.NewBookStore(), log)
	require.NoError(t, err)
	f.copies, err = service.NewCopyService(ctx, inmem.NewCopyStore(), f.catalog, log)
	require.NoError(t, err)
	f.lending, err = service.NewLendingService(ctx, inmem.NewLoanStore(), f.members, f.copies, log, service.WithLendingClock(clock))
	require.NoError(t, err)
	return f
}

func (f *lendingFixture) member(t *testing.T) *model.Member {
	t.Helper()
	m, err := f.members.Register(context.Background(), model.RegisterMemberRequest{
		DNI: "12345678Z", Name: "Ana", Email: "a@gmail.com", Password: "secreto",
	})
	require.NoError(t, err)
	return m
}

func (f *lendingFixture) addCopies(t *testing.T, n int) []*model.Copy {
	t.Helper()
	ctx := context.Background()
	_, err := f.catalog.Register(ctx, model.CreateBookRequest{
		ISBN: "9780134685991", Name: "Effective Java", Author: "Bloch",
	})
	require.NoError(t, err)
	out := make([]*model.Copy, 0, n)
	for i := 0; i < n; i++ {
		c, err := f.copies.Register(ctx, model.CreateCopyRequest{ISBN: "9780134685991"})
		require.NoError(t, err)
		out = append(out, c)
	}
	return out
}

func TestLendingService_Issue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newLendingFixture(t)
	m := f.member(t)
	cs := f.addCopies(t, 1)

	l, err := f.lending.Issue(ctx, m.ID, cs[0].ID)
	require.NoError(t, err)
	require.Equal(t, 1, l.ID)
	require.Equal(t, f.now, l.StartDate)
	require.Nil(t, l.ReturnDate)

	// the copy is now out and the member holds one more loan
	require.Equal(t, model.StatusLoaned, cs[0].Status)
	require.Equal(t, 1, m.ActiveLoans)

	// the same copy cannot go out twice
	_, err = f.lending.Issue(ctx, m.ID, cs[0].ID)
	require.True(t, errs.IsRuleViolation(err))
	require.ErrorContains(t, err, "this copy is not available")
}

func TestLendingService_Issue_Rejections(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newLendingFixture(t)
	m := f.member(t)
	cs := f.addCopies(t, 1)

	_, err := f.lending.Issue(ctx, 0, cs[0].ID)
	require.True(t, errs.IsValidation(err))
	require.ErrorContains(t, err, "all fields are required")

	_, err = f.lending.Issue(ctx, 99, cs[0].ID)
	require.True(t, errs.IsNotFound(err))
	require.ErrorContains(t, err, "no member registered with this id")

	_, err = f.lending.Issue(ctx, m.ID, 99)
	require.True(t, errs.IsNotFound(err))
	require.ErrorContains(t, err, "no copy registered with this id")
}

func TestLendingService_Issue_PenalizedMember(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newLendingFixture(t)
	m := f.member(t)
	cs := f.addCopies(t, 1)

	tomorrow := f.now.AddDate(0, 0, 1)
	m.PenalizedUntil = &tomorrow

	_, err := f.lending.Issue(ctx, m.ID, cs[0].ID)
	require.True(t, errs.IsRuleViolation(err))
	require.ErrorContains(t, err, "member is penalized until")
	require.ErrorContains(t, err, tomorrow.Format(time.DateOnly))

	// once the window closes the member can borrow again
	f.now = f.now.AddDate(0, 0, 2)
	_, err = f.lending.Issue(ctx, m.ID, cs[0].ID)
	require.NoError(t, err)
}

func TestLendingService_Issue_LoanLimit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newLendingFixture(t)
	m := f.member(t)
	cs := f.addCopies(t, 4)

	for i := 0; i < 3; i++ {
		_, err := f.lending.Issue(ctx, m.ID, cs[i].ID)
		require.NoError(t, err)
	}
	require.Equal(t, 3, m.ActiveLoans)

	// a fourth outstanding loan is over the limit
	_, err := f.lending.Issue(ctx, m.ID, cs[3].ID)
	require.True(t, errs.IsRuleViolation(err))
	require.ErrorContains(t, err, "active loan limit")

	// returning one frees the allowance
	_, err = f.lending.Return(ctx, 1)
	require.NoError(t, err)
	_, err = f.lending.Issue(ctx, m.ID, cs[3].ID)
	require.NoError(t, err)
}

func TestLendingService_Issue_ConcurrentSameCopy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newLendingFixture(t)
	m := f.member(t)
	cs := f.addCopies(t, 1)

	// parallel requests racing for one copy: a single loan goes out
	const callers = 4
	var wg sync.WaitGroup
	errc := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.lending.Issue(ctx, m.ID, cs[0].ID)
			errc <- err
		}()
	}
	wg.Wait()
	close(errc)

	issued := 0
	for err := range errc {
		if err == nil {
			issued++
			continue
		}
		require.True(t, errs.IsRuleViolation(err))
		require.ErrorContains(t, err, "this copy is not available")
	}
	require.Equal(t, 1, issued)
	require.Equal(t, model.StatusLoaned, cs[0].Status)
	require.Equal(t, 1, m.ActiveLoans)
	require.Len(t, f.lending.List(), 1)
}

func TestLendingService_Return(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newLendingFixture(t)
	m := f.member(t)
	cs := f.addCopies(t, 1)

	l, err := f.lending.Issue(ctx, m.ID, cs[0].ID)
	require.NoError(t, err)

	// on-time return, ten days in
	f.now = f.now.AddDate(0, 0, 10)
	res, err := f.lending.Return(ctx, l.ID)
	require.NoError(t, err)
	require.Equal(t, model.OutcomeReturned, res.Outcome)
	require.Nil(t, res.PenalizedUntil)
	require.Equal(t, model.StatusAvailable, cs[0].Status)
	require.Equal(t, 0, m.ActiveLoans)
	require.Nil(t, m.PenalizedUntil)
	require.NotNil(t, res.Loan.ReturnDate)
	require.Equal(t, f.now, *res.Loan.ReturnDate)

	// returning again fails and mutates nothing
	_, err = f.lending.Return(ctx, l.ID)
	require.True(t, errs.IsRuleViolation(err))
	require.ErrorContains(t, err, "this loan has already been returned")
	require.Equal(t, model.StatusAvailable, cs[0].Status)
	require.Equal(t, 0, m.ActiveLoans)
	require.Equal(t, f.now, *f.lending.FindByID(l.ID).ReturnDate)
}

func TestLendingService_Return_Rejections(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newLendingFixture(t)

	_, err := f.lending.Return(ctx, 0)
	require.True(t, errs.IsValidation(err))

	_, err = f.lending.Return(ctx, 42)
	require.True(t, errs.IsNotFound(err))
	require.ErrorContains(t, err, "no loan registered with this id")
}

func TestLendingService_Return_Late(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newLendingFixture(t)
	m := f.member(t)
	cs := f.addCopies(t, 1)

	start := f.now
	l, err := f.lending.Issue(ctx, m.ID, cs[0].ID)
	require.NoError(t, err)

	// sixteen days out: the return completes but the member is penalized
	f.now = start.AddDate(0, 0, 16)
	res, err := f.lending.Return(ctx, l.ID)
	require.NoError(t, err)
	require.Equal(t, model.OutcomeReturnedLate, res.Outcome)
	require.Contains(t, res.Message, "penalized")

	require.Equal(t, model.StatusAvailable, cs[0].Status)
	require.NotNil(t, m.PenalizedUntil)
	require.Equal(t, start.AddDate(0, 0, 16+15), *m.PenalizedUntil)
	require.Equal(t, m.PenalizedUntil, res.PenalizedUntil)
}

func TestLendingService_Return_OnDueDateIsLate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newLendingFixture(t)
	m := f.member(t)
	cs := f.addCopies(t, 1)

	start := f.now
	l, err := f.lending.Issue(ctx, m.ID, cs[0].ID)
	require.NoError(t, err)

	// the due date itself is not "strictly before" it
	f.now = start.AddDate(0, 0, 15)
	res, err := f.lending.Return(ctx, l.ID)
	require.NoError(t, err)
	require.Equal(t, model.OutcomeReturnedLate, res.Outcome)
}

func TestLendingService_LoadsActiveLoanCounts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	log := zap.NewNop()

	memberStore := inmem.NewMemberStore()
	bookStore := inmem.NewBookStore()
	copyStore := inmem.NewCopyStore()
	loanStore := inmem.NewLoanStore()

	members, err := service.NewMemberService(ctx, memberStore, log)
	require.NoError(t, err)
	catalog, err := service.NewCatalogService(ctx, bookStore, log)
	require.NoError(t, err)
	copies, err := service.NewCopyService(ctx, copyStore, catalog, log)
	require.NoError(t, err)

	m, err := members.Register(ctx, model.RegisterMemberRequest{
		DNI: "12345678Z", Name: "Ana", Email: "a@gmail.com", Password: "secreto",
	})
	require.NoError(t, err)

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	returned := start.AddDate(0, 0, 5)
	_, err = loanStore.Create(ctx, model.Loan{MemberID: m.ID, CopyID: 1, StartDate: start})
	require.NoError(t, err)
	_, err = loanStore.Create(ctx, model.Loan{MemberID: m.ID, CopyID: 2, StartDate: start, ReturnDate: &returned})
	require.NoError(t, err)

	// rebuilding the engine restores the derived count from outstanding loans
	_, err = service.NewLendingService(ctx, loanStore, members, copies, log)
	require.NoError(t, err)
	require.Equal(t, 1, m.ActiveLoans)
}
