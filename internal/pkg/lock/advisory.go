package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PgAdvisoryLocker holds a Postgres session-level advisory lock on a dedicated
// pooled connection. Every backend process sharing the database is serialized.
// The pool must not serve the queries run inside the critical section: a
// waiter parks on its connection until the holder unlocks.
type PgAdvisoryLocker struct {
	pool *pgxpool.Pool
}

func NewPgAdvisoryLocker(pool *pgxpool.Pool) *PgAdvisoryLocker {
	return &PgAdvisoryLocker{pool: pool}
}

func (l *PgAdvisoryLocker) Lock(ctx context.Context, key string) (func(), error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire lock connection failed: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock(hashtext($1))", key); err != nil {
		conn.Release()
		return nil, fmt.Errorf("advisory lock %q failed: %w", key, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// Detached from the request context: a cancelled request must still unlock.
			unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if _, err := conn.Exec(unlockCtx, "SELECT pg_advisory_unlock(hashtext($1))", key); err != nil {
				// Closing the session drops every lock it holds.
				_ = conn.Conn().Close(unlockCtx)
			}
			conn.Release()
		})
	}, nil
}
