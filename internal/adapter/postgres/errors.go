package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/meeplelog/catalog-sync/internal/domain"
)

// mapError converts pgx errors to domain errors, tagging them with the
// failing operation. context.DeadlineExceeded and context.Canceled pass
// through unmapped so cancellation stays recognizable upstream.
func mapError(err error, op string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}

	return fmt.Errorf("%s: %w", op, err)
}
