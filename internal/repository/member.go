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

type MemberStore interface {
	Create(ctx context.Context, m model.Member) (model.Member, error)
	ReadByID(ctx context.Context, id int) (model.Member, error)
	ReadAll(ctx context.Context) ([]model.Member, error)
	Update(ctx context.Context, m model.Member) error
}

type memberStore struct {
	db  *sqlx.DB
	log *zap.Logger
}

func NewMemberStore(db *sqlx.DB, log *zap.Logger) (*memberStore, error) {
	return &memberStore{
		db:  db,
		log: log.Named("member-store"),
	}, nil
}

func (r *memberStore) Create(ctx context.Context, m model.Member) (model.Member, error) {
	query, args, err := qb.Insert(membersTableName).
		Columns("dni", "name", "email", "password", "role", "penalized_until").
		Values(m.DNI, m.Name, m.Email, m.Password, m.Role, m.PenalizedUntil).
		Suffix("returning id").
		ToSql()
	if err != nil {
		return model.Member{}, err
	}

	if err := r.db.GetContext(ctx, &m.ID, query, args...); err != nil {
		if isUniqueViolation(err) {
			return model.Member{}, errs.Validationf("member already exists")
		}
		r.log.Error("member create", zap.String("q", query), zap.Error(err))
		return model.Member{}, errors.Wrap(err, "member create")
	}
	return m, nil
}

func (r *memberStore) ReadByID(ctx context.Context, id int) (model.Member, error) {
	query, args, err := qb.Select("id", "dni", "name", "email", "password", "role", "penalized_until").
		From(membersTableName).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Member{}, err
	}

	var m model.Member
	if err := r.db.GetContext(ctx, &m, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Member{}, errs.ErrNotFound
		}
		return model.Member{}, err
	}
	return m, nil
}

func (r *memberStore) ReadAll(ctx context.Context) ([]model.Member, error) {
	query, args, err := qb.Select("id", "dni", "name", "email", "password", "role", "penalized_until").
		From(membersTableName).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, err
	}

	var ms []model.Member
	if err := r.db.SelectContext(ctx, &ms, query, args...); err != nil {
		return nil, err
	}
	return ms, nil
}

func (r *memberStore) Update(ctx context.Context, m model.Member) error {
	query, args, err := qb.Update(membersTableName).
		Set("name", m.Name).
		Set("email", m.Email).
		Set("password", m.Password).
		Set("role", m.Role).
		Set("penalized_until", m.PenalizedUntil).
		Where(sq.Eq{"id": m.ID}).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "member update")
	}
	return nil
}
