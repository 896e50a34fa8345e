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

type LoanStore interface {
	Create(ctx context.Context, l model.Loan) (model.Loan, error)
	ReadByID(ctx context.Context, id int) (model.Loan, error)
	ReadAll(ctx context.Context) ([]model.Loan, error)
	Update(ctx context.Context, l model.Loan) error
}

type loanStore struct {
	db  *sqlx.DB
	log *zap.Logger
}

func NewLoanStore(db *sqlx.DB, log *zap.Logger) (*loanStore, error) {
	return &loanStore{
		db:  db,
		log: log.Named("loan-store"),
	}, nil
}

func (r *loanStore) Create(ctx context.Context, l model.Loan) (model.Loan, error) {
	query, args, err := qb.Insert(loansTableName).
		Columns("member_id", "copy_id", "start_date", "return_date").
		Values(l.MemberID, l.CopyID, l.StartDate, l.ReturnDate).
		Suffix("returning id").
		ToSql()
	if err != nil {
		return model.Loan{}, err
	}

	if err := r.db.GetContext(ctx, &l.ID, query, args...); err != nil {
		r.log.Error("loan create", zap.String("q", query), zap.Error(err))
		return model.Loan{}, errors.Wrap(err, "loan create")
	}
	return l, nil
}

func (r *loanStore) ReadByID(ctx context.Context, id int) (model.Loan, error) {
	query, args, err := qb.Select("id", "member_id", "copy_id", "start_date", "return_date").
		From(loansTableName).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Loan{}, err
	}

	var l model.Loan
	if err := r.db.GetContext(ctx, &l, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Loan{}, errs.ErrNotFound
		}
		return model.Loan{}, err
	}
	return l, nil
}

func (r *loanStore) ReadAll(ctx context.Context) ([]model.Loan, error) {
	query, args, err := qb.Select("id", "member_id", "copy_id", "start_date", "return_date").
		From(loansTableName).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, err
	}

	var ls []model.Loan
	if err := r.db.SelectContext(ctx, &ls, query, args...); err != nil {
		return nil, err
	}
	return ls, nil
}

func (r *loanStore) Update(ctx context.Context, l model.Loan) error {
	query, args, err := qb.Update(loansTableName).
		Set("return_date", l.ReturnDate).
		Where(sq.Eq{"id": l.ID}).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "loan update")
	}
	return nil
}
