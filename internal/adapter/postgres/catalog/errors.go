package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"github.com/meeplelog/catalog-sync/internal/domain"
)

// mapError converts pgx errors to domain errors, tagging them with the
// failing operation. Context cancellation passes through unmapped.
func mapError(err error, op string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}

	// scany signals an empty result with its own sentinel, bare pgx
	// with ErrNoRows; both mean the same thing here.
	if errors.Is(err, pgx.ErrNoRows) || pgxscan.NotFound(err) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}

	return fmt.Errorf("%s: %w", op, err)
}
