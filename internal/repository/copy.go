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

type CopyStore interface {
	Create(ctx context.Context, c model.Copy) (model.Copy, error)
	ReadByID(ctx context.Context, id int) (model.Copy, error)
	ReadAll(ctx context.Context) ([]model.Copy, error)
	Update(ctx context.Context, c model.Copy) error
}

type copyStore struct {
	db  *sqlx.DB
	log *zap.Logger
}

func NewCopyStore(db *sqlx.DB, log *zap.Logger) (*copyStore, error) {
	return &copyStore{
		db:  db,
		log: log.Named("copy-store"),
	}, nil
}

func (r *copyStore) Create(ctx context.Context, c model.Copy) (model.Copy, error) {
	query, args, err := qb.Insert(copiesTableName).
		Columns("isbn", "status").
		Values(c.ISBN, c.Status).
		Suffix("returning id").
		ToSql()
	if err != nil {
		return model.Copy{}, err
	}

	if err := r.db.GetContext(ctx, &c.ID, query, args...); err != nil {
		r.log.Error("copy create", zap.String("q", query), zap.Error(err))
		return model.Copy{}, errors.Wrap(err, "copy create")
	}
	return c, nil
}

func (r *copyStore) ReadByID(ctx context.Context, id int) (model.Copy, error) {
	query, args, err := qb.Select("id", "isbn", "status").
		From(copiesTableName).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Copy{}, err
	}

	var c model.Copy
	if err := r.db.GetContext(ctx, &c, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Copy{}, errs.ErrNotFound
		}
		return model.Copy{}, err
	}
	return c, nil
}

func (r *copyStore) ReadAll(ctx context.Context) ([]model.Copy, error) {
	query, args, err := qb.Select("id", "isbn", "status").
		From(copiesTableName).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, err
	}

	var cs []model.Copy
	if err := r.db.SelectContext(ctx, &cs, query, args...); err != nil {
		return nil, err
	}
	return cs, nil
}

func (r *copyStore) Update(ctx context.Context, c model.Copy) error {
	query, args, err := qb.Update(copiesTableName).
		Set("status", c.Status).
		Where(sq.Eq{"id": c.ID}).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "copy update")
	}
	return nil
}
