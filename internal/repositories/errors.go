package repositories

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"loan-backend/internal/apperrors"
)

// Postgres error codes the API distinguishes
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// mapError converts driver errors to apperrors so handlers can pick a status.
// entity names the row being read or written ("borrower", "loan").
func mapError(err error, entity string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NotFound(entity)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apperrors.Conflict("%s already exists (%s)", entity, pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return apperrors.Invalid("%s references a missing record (%s)", entity, pgErr.ConstraintName)
		case pgCheckViolation:
			return apperrors.Invalid("%s violates %s", entity, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("%s: %w", entity, err)
}
