package repository

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/asanchezr/biblioteca-service/internal/errs"
	"github.com/asanchezr/biblioteca-service/internal/model"
)

type BookStore interface {
	Create(ctx context.Context, b model.Book) (model.Book, error)
	ReadByISBN(ctx context.Context, isbn string) (model.Book, error)
	ReadAll(ctx context.Context) ([]model.Book, error)
	Update(ctx context.Context, b model.Book) error
}

type bookStore struct {
	db  *sqlx.DB
	log *zap.Logger
}

func NewBookStore(db *sqlx.DB, log *zap.Logger) (*bookStore, error) {
	return &bookStore{
		db:  db,
		log: log.Named("book-store"),
	}, nil
}

func (r *bookStore) Create(ctx context.Context, b model.Book) (model.Book, error) {
	query, args, err := qb.Insert(booksTableName).
		Columns("isbn", "name", "author").
		Values(b.ISBN, b.Name, b.Author).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return model.Book{}, errs.Validationf("this book already exists")
		}
		r.log.Error("book create", zap.String("q", query), zap.Error(err))
		return model.Book{}, errors.Wrap(err, "book create")
	}
	return b, nil
}

func (r *bookStore) ReadByISBN(ctx context.Context, isbn string) (model.Book, error) {
	query, args, err := qb.Select("isbn", "name", "author").
		From(booksTableName).
		Where(sq.Eq{"isbn": isbn}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}

	var b model.Book
	if err := r.db.GetContext(ctx, &b, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Book{}, errs.ErrNotFound
		}
		return model.Book{}, err
	}
	return b, nil
}

func (r *bookStore) ReadAll(ctx context.Context) ([]model.Book, error) {
	query, args, err := qb.Select("isbn", "name", "author").
		From(booksTableName).
		OrderBy("isbn").
		ToSql()
	if err != nil {
		return nil, err
	}

	var bs []model.Book
	if err := r.db.SelectContext(ctx, &bs, query, args...); err != nil {
		return nil, err
	}
	return bs, nil
}

func (r *bookStore) Update(ctx context.Context, b model.Book) error {
	query, args, err := qb.Update(booksTableName).
		Set("name", b.Name).
		Set("author", b.Author).
		Where(sq.Eq{"isbn": b.ISBN}).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "book update")
	}
	return nil
}
