// Package distlock guards jobs that must run on one host at a time.
package distlock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/adgroup-autopilot/internal/pkg/logger"
)

// ErrNotAcquired is returned by Run when another holder owns the lock.
var ErrNotAcquired = errors.New("lock held by another process")

// ErrLockLost is returned by Run when a renewable lock expired or was taken
// over while fn was running.
var ErrLockLost = errors.New("lock lost while running")

// DistLock is the interface for distributed locking.
// Implementations must be safe for use from a single goroutine;
// concurrent use across goroutines requires separate lock instances.
type DistLock interface {
	// Acquire tries to acquire the lock. Returns true if successful.
	Acquire(ctx context.Context) (bool, error)
	// Release releases the lock if we still own it.
	Release(ctx context.Context) error
}

// Renewable is a lock whose ownership expires after TTL unless extended.
// Extend must be safe to call concurrently with the holder's own work and
// return ErrNotOwner once the lock belongs to someone else.
type Renewable interface {
	DistLock
	Extend(ctx context.Context, ttl time.Duration) error
	TTL() time.Duration
}

// NewLock creates a distributed lock using the best available backend.
// If redisClient is non-nil, uses Redis. Otherwise falls back to
// PostgreSQL advisory locks.
func NewLock(redisClient *redis.Client, db *sql.DB, key string, ttl time.Duration) DistLock {
	if redisClient != nil {
		return NewRedisLock(redisClient, key, ttl)
	}
	return NewPGAdvisoryLock(db, key)
}

// Run executes fn while holding lock. It returns ErrNotAcquired without
// calling fn when the lock is taken. A Renewable lock is extended every
// TTL/3 while fn runs; if ownership is lost, fn's context is cancelled and
// Run returns ErrLockLost. Release uses a fresh context so a cancelled run
// still frees the lock.
func Run(ctx context.Context, lock DistLock, fn func(ctx context.Context) error) (err error) {
	ok, err := lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrNotAcquired
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if relErr := lock.Release(releaseCtx); relErr != nil && err == nil {
			err = fmt.Errorf("release lock: %w", relErr)
		}
	}()

	r, renewable := lock.(Renewable)
	if !renewable || r.TTL()/3 <= 0 {
		return fn(ctx)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := keepAlive(runCtx, r, cancel)

	err = fn(runCtx)
	if stop() {
		if err != nil {
			return fmt.Errorf("%w: %w", ErrLockLost, err)
		}
		return ErrLockLost
	}
	return err
}

// keepAlive extends r until stop is called or ctx is done. On ErrNotOwner it
// cancels the holder's context. stop waits for the renewal goroutine to exit
// and reports whether the lock was lost.
func keepAlive(ctx context.Context, r Renewable, cancel context.CancelFunc) (stop func() bool) {
	done := make(chan struct{})
	finished := make(chan struct{})
	var lost atomic.Bool

	go func() {
		defer close(finished)
		ticker := time.NewTicker(r.TTL() / 3)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			err := r.Extend(ctx, r.TTL())
			switch {
			case err == nil:
			case errors.Is(err, ErrNotOwner):
				lost.Store(true)
				logger.Error("lock lost, cancelling holder", "error", err)
				cancel()
				return
			default:
				// Transient; the next tick retries before the TTL runs out.
				logger.Warn("lock renewal failed", "error", err)
			}
		}
	}()

	return func() bool {
		close(done)
		<-finished
		return lost.Load()
	}
}

// PGAdvisoryLock implements DistLock using session-scoped PostgreSQL
// advisory locks. The session is pinned to one pooled connection between
// Acquire and Release; the lock is dropped with that connection.
type PGAdvisoryLock struct {
	db     *sql.DB
	lockID int64
	conn   *sql.Conn
}

// NewPGAdvisoryLock creates a PG advisory lock with a deterministic lock ID
// derived from the given key string.
func NewPGAdvisoryLock(db *sql.DB, key string) *PGAdvisoryLock {
	h := fnv.New64a()
	h.Write([]byte(key))
	return &PGAdvisoryLock{
		db:     db,
		lockID: int64(h.Sum64()),
	}
}

// Acquire tries to acquire the advisory lock without blocking.
func (l *PGAdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, err
	}
	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired); err != nil {
		conn.Close()
		return false, err
	}
	if !acquired {
		conn.Close()
		return false, nil
	}
	l.conn = conn
	return true, nil
}

// Release releases the advisory lock and returns the connection to the pool.
func (l *PGAdvisoryLock) Release(ctx context.Context) error {
	if l.conn == nil {
		return nil
	}
	conn := l.conn
	l.conn = nil
	defer conn.Close()
	_, err := conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID)
	return err
}
