package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/aliskhannn/exam-simulation/internal/domain/entities"
)

const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique constraint violation,
// optionally on the named constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// IsUnavailable reports whether err means the database could not be reached
// in time.
func IsUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return true
	}
	var connErr *pgconn.ConnectError
	return errors.As(err, &connErr)
}

// Classify converts connectivity failures into entities.ErrStorageUnavailable
// and wraps everything else with op.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if entities.Kind(err) != nil {
		return err
	}
	if IsUnavailable(err) {
		return entities.NewError(entities.ErrStorageUnavailable, "", "").WithDetail("%s", op).WithCause(err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
