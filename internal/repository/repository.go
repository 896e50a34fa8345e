// Package repository is the write-through persistence layer behind the
// in-memory registries. Each entity gets the same four operations: create,
// read by id, read all, update.
package repository

import (
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	membersTableName = `members`
	booksTableName   = `books`
	copiesTableName  = `copies`
	loansTableName   = `loans`
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation. Duplicate email/dni/isbn are caught by the registries first,
// the constraints are the backstop.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
