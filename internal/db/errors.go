package db

import (
	"errors"
	"runtime/debug"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"souq-orders/internal/domain"
)

const (
	codeUniqueViolation    = "23505"
	codeStringDataTooLong  = "22001"
	codeForeignKeyViolated = "23503"
	codeCheckViolation     = "23514"
	codeNumericOutOfRange  = "22003"
)

// Classify maps a driver error onto the domain error taxonomy. op names the
// failed operation and is kept on *domain.PersistenceError.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return domain.ErrAlreadyExists
		case codeStringDataTooLong:
			field := pgErr.ColumnName
			if field == "" {
				field = "request"
			}
			return domain.NewValidationError(field, "field too long")
		case codeForeignKeyViolated:
			return domain.ErrNotFound
		case codeCheckViolation, codeNumericOutOfRange:
			field := pgErr.ColumnName
			if field == "" {
				field = "request"
			}
			return domain.NewValidationError(field, "value out of range")
		}
	}
	return &domain.PersistenceError{Op: op, Err: err, Stack: string(debug.Stack())}
}
