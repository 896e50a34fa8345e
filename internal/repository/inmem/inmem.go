// Package inmem provides in-memory store implementations with the same
// contract as the Postgres ones. They back the service and handler tests,
// so they are safe for concurrent use the way a *sqlx.DB is.
package inmem

import (
	"context"
	"sync"

	"github.com/asanchezr/biblioteca-service/internal/errs"
	"github.com/asanchezr/biblioteca-service/internal/model"
	"github.com/asanchezr/biblioteca-service/internal/repository"
)

var (
	_ repository.MemberStore = (*MemberStore)(nil)
	_ repository.BookStore   = (*BookStore)(nil)
	_ repository.CopyStore   = (*CopyStore)(nil)
	_ repository.LoanStore   = (*LoanStore)(nil)
)

type MemberStore struct {
	mu      sync.Mutex
	seq     int
	members []model.Member
}

func NewMemberStore() *MemberStore { return &MemberStore{} }

func (s *MemberStore) Create(_ context.Context, m model.Member) (model.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	m.ID = s.seq
	s.members = append(s.members, m)
	return m, nil
}

func (s *MemberStore) ReadByID(_ context.Context, id int) (model.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.members {
		if m.ID == id {
			return m, nil
		}
	}
	return model.Member{}, errs.ErrNotFound
}

func (s *MemberStore) ReadAll(_ context.Context) ([]model.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Member, len(s.members))
	copy(out, s.members)
	return out, nil
}

func (s *MemberStore) Update(_ context.Context, m model.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.members {
		if s.members[i].ID == m.ID {
			s.members[i] = m
			return nil
		}
	}
	return errs.ErrNotFound
}

type BookStore struct {
	mu    sync.Mutex
	books []model.Book
}

func NewBookStore() *BookStore { return &BookStore{} }

func (s *BookStore) Create(_ context.Context, b model.Book) (model.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, have := range s.books {
		if have.ISBN == b.ISBN {
			return model.Book{}, errs.Validationf("this book already exists")
		}
	}
	s.books = append(s.books, b)
	return b, nil
}

func (s *BookStore) ReadByISBN(_ context.Context, isbn string) (model.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.books {
		if b.ISBN == isbn {
			return b, nil
		}
	}
	return model.Book{}, errs.ErrNotFound
}

func (s *BookStore) ReadAll(_ context.Context) ([]model.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Book, len(s.books))
	copy(out, s.books)
	return out, nil
}

func (s *BookStore) Update(_ context.Context, b model.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.books {
		if s.books[i].ISBN == b.ISBN {
			s.books[i] = b
			return nil
		}
	}
	return errs.ErrNotFound
}

type CopyStore struct {
	mu     sync.Mutex
	seq    int
	copies []model.Copy
}

func NewCopyStore() *CopyStore { return &CopyStore{} }

func (s *CopyStore) Create(_ context.Context, c model.Copy) (model.Copy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	c.ID = s.seq
	s.copies = append(s.copies, c)
	return c, nil
}

func (s *CopyStore) ReadByID(_ context.Context, id int) (model.Copy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.copies {
		if c.ID == id {
			return c, nil
		}
	}
	return model.Copy{}, errs.ErrNotFound
}

func (s *CopyStore) ReadAll(_ context.Context) ([]model.Copy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Copy, len(s.copies))
	copy(out, s.copies)
	return out, nil
}

func (s *CopyStore) Update(_ context.Context, c model.Copy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.copies {
		if s.copies[i].ID == c.ID {
			s.copies[i] = c
			return nil
		}
	}
	return errs.ErrNotFound
}

type LoanStore struct {
	mu    sync.Mutex
	seq   int
	loans []model.Loan
}

func NewLoanStore() *LoanStore { return &LoanStore{} }

func (s *LoanStore) Create(_ context.Context, l model.Loan) (model.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	l.ID = s.seq
	s.loans = append(s.loans, l)
	return l, nil
}

func (s *LoanStore) ReadByID(_ context.Context, id int) (model.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range s.loans {
		if l.ID == id {
			return l, nil
		}
	}
	return model.Loan{}, errs.ErrNotFound
}

func (s *LoanStore) ReadAll(_ context.Context) ([]model.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Loan, len(s.loans))
	copy(out, s.loans)
	return out, nil
}

func (s *LoanStore) Update(_ context.Context, l model.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.loans {
		if s.loans[i].ID == l.ID {
			s.loans[i] = l
			return nil
		}
	}
	return errs.ErrNotFound
}
