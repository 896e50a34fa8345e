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

type CatalogService struct {
	log   *zap.Logger
	store repository.BookStore

	mu    sync.RWMutex
	books []*model.Book
}

func NewCatalogService(ctx context.Context, store repository.BookStore, log *zap.Logger) (*CatalogService, error) {
	bs, err := store.ReadAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load books")
	}
	s := &CatalogService{
		log:   log.Named("catalog"),
		store: store,
	}
	for i := range bs {
		s.books = append(s.books, &bs[i])
	}
	return s, nil
}

// Register adds a book to the catalog. A book is immutable once created.
func (s *CatalogService) Register(ctx context.Context, req model.CreateBookRequest) (*model.Book, error) {
	if validate.NotFilled(req.ISBN, req.Name, req.Author) {
		return nil, errs.Validationf("all fields are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findByISBN(req.ISBN) != nil {
		return nil, errs.Validationf("this book already exists")
	}

	if !validate.ISBN13Valid(req.ISBN) {
		return nil, errs.Validationf("invalid isbn-13")
	}

	created, err := s.store.Create(ctx, model.Book{
		ISBN:   req.ISBN,
		Name:   req.Name,
		Author: req.Author,
	})
	if err != nil {
		return nil, err
	}

	b := &created
	s.books = append(s.books, b)
	s.log.Info("book registered", zap.String("isbn", b.ISBN), zap.String("name", b.Name))
	return b, nil
}

func (s *CatalogService) FindByISBN(isbn string) *model.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findByISBN(isbn)
}

// findByISBN expects the caller to hold s.mu.
func (s *CatalogService) findByISBN(isbn string) *model.Book {
	for _, b := range s.books {
		if b.ISBN == isbn {
			return b
		}
	}
	return nil
}

func (s *CatalogService) List() []model.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Book, 0, len(s.books))
	for _, b := range s.books {
		out = append(out, *b)
	}
	return out
}
