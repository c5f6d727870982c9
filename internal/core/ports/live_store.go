package ports

import (
	"context"
	"time"
)

type LiveStore interface {
	Deadlines() DeadlineStore
	RequestLocks() RequestLockStore
}

// DeadlineStore tracks the timeout deadline of every in-flight transfer.
// Entries survive in the store until the transfer completes or is reverted.
type DeadlineStore interface {
	Put(ctx context.Context, requestID string, deadline time.Time) error
	Remove(ctx context.Context, requestID string) error
	// DueBefore returns the ids of transfers whose deadline is at or before t,
	// oldest first.
	DueBefore(ctx context.Context, t time.Time) ([]string, error)
	Get(ctx context.Context, requestID string) (*time.Time, error)
	Len(ctx context.Context) (int64, error)
}

// RequestLockStore arbitrates between the settlement driver and the timeout
// sweeper: whoever acquires the lock owns the transfer until release.
type RequestLockStore interface {
	TryAcquire(ctx context.Context, requestID string) (bool, error)
	Release(ctx context.Context, requestID string) error
}
