package persistence

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/liquorledger/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// PostgreSQL SQLSTATE codes for transactions aborted by the server
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

// translateError maps driver failures onto the domain error taxonomy.
// Anything unrecognised is wrapped with op and surfaces as an internal error.
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateSerializationFailure, sqlStateDeadlockDetected:
			return shared.ErrConcurrencyConflict
		}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.NewConflictError(shared.CodeConflict, "Record already exists")
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
