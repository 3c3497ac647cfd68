package catalog

import (
	"context"
	"fmt"

	"github.com/meeplelog/catalog-sync/internal/domain"
)

// runLockKey identifies the pipeline's advisory lock. One keyspace per
// database; the value only has to be stable and unique to this job.
const runLockKey = int64(0x6d65_6570_6c65) // "meeple"

// AcquireRunLock takes a session-scoped advisory lock guarding the
// staging area. The lock lives on a connection pinned out of the pool
// and is held until release is called; a second pipeline instance fails
// fast with domain.ErrRunInProgress instead of interleaving staging
// writes with the running one.
func (r *Repo) AcquireRunLock(ctx context.Context) (release func(), err error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire lock connection: %w", err)
	}

	var locked bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, runLockKey).Scan(&locked); err != nil {
		conn.Release()
		return nil, fmt.Errorf("try advisory lock: %w", err)
	}
	if !locked {
		conn.Release()
		return nil, domain.ErrRunInProgress
	}

	release = func() {
		// Background context: a cancelled run must still free the lock.
		_, _ = conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, runLockKey)
		conn.Release()
	}
	return release, nil
}
