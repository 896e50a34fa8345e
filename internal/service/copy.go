package service

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/asanchezr/biblioteca-service/internal/errs"
	"github.com/asanchezr/biblioteca-service/internal/model"
	"github.com/asanchezr/biblioteca-service/internal/repository"
	"github.com/asanchezr/biblioteca-service/internal/validate"
)

type CopyService struct {
	log     *zap.Logger
	store   repository.CopyStore
	catalog *CatalogService

	mu     sync.RWMutex
	copies []*model.Copy
}

func NewCopyService(ctx context.Context, store repository.CopyStore, catalog *CatalogService, log *zap.Logger) (*CopyService, error) {
	cs, err := store.ReadAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load copies")
	}
	s := &CopyService{
		log:     log.Named("copies"),
		store:   store,
		catalog: catalog,
	}
	for i := range cs {
		s.copies = append(s.copies, &cs[i])
	}
	return s, nil
}

// Register adds a physical copy for an already-catalogued book. An empty
// status defaults to Disponible.
func (s *CopyService) Register(ctx context.Context, req model.CreateCopyRequest) (*model.Copy, error) {
	if validate.NotFilled(req.ISBN) {
		return nil, errs.Validationf("isbn is required")
	}

	status := req.Status
	if validate.NotFilled(status) {
		status = string(model.StatusAvailable)
	}

	if !validate.ISBN13Valid(req.ISBN) {
		return nil, errs.Validationf("invalid isbn-13")
	}
	if !validate.StatusValid(status) {
		return nil, errs.Validationf("invalid copy status")
	}
	parsedStatus, _ := model.ParseStatus(status)

	book := s.catalog.FindByISBN(req.ISBN)
	if book == nil {
		return nil, errs.NotFoundf("no book registered with this isbn: register the book first")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	created, err := s.store.Create(ctx, model.Copy{
		ISBN:   book.ISBN,
		Status: parsedStatus,
	})
	if err != nil {
		return nil, err
	}

	c := &created
	s.copies = append(s.copies, c)
	s.log.Info("copy registered", zap.Int("id", c.ID), zap.String("isbn", c.ISBN))
	return c, nil
}

func (s *CopyService) FindByID(id int) *model.Copy {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.copies {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// SetStatus moves a copy to the given status and persists it. The lending
// engine is the only caller that changes a copy's status.
func (s *CopyService) SetStatus(ctx context.Context, c *model.Copy, status model.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.Status = status
	return s.store.Update(ctx, *c)
}

// AvailableForBook counts the available copies of one book.
func (s *CopyService) AvailableForBook(b *model.Book) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.availableForBook(b)
}

// availableForBook expects the caller to hold s.mu.
func (s *CopyService) availableForBook(b *model.Book) int {
	n := 0
	for _, c := range s.copies {
		if c.ISBN == b.ISBN && validate.CopyAvailable(c) {
			n++
		}
	}
	return n
}

// AvailableTotal counts the available copies across the whole catalog.
func (s *CopyService) AvailableTotal() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, c := range s.copies {
		if validate.CopyAvailable(c) {
			n++
		}
	}
	return n
}

// Stock lists every catalogued book with its available copy count.
func (s *CopyService) Stock() []model.BookStock {
	books := s.catalog.List()

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.BookStock, 0, len(books))
	for i := range books {
		out = append(out, model.BookStock{
			Book:      books[i],
			Available: s.availableForBook(&books[i]),
		})
	}
	return out
}
