package redislivestore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/strait-labs/straitd/internal/core/ports"
)

const requestLockKeyPrefix = "requestLock"

// lockTTL bounds how long a crashed owner can keep a request locked, the
// sweeper scan picks the transfer up again once the lease expires.
const lockTTL = 5 * time.Minute

type requestLockStore struct {
	rdb *redis.Client
}

func NewRequestLockStore(rdb *redis.Client) ports.RequestLockStore {
	return &requestLockStore{rdb: rdb}
}

func (s *requestLockStore) TryAcquire(ctx context.Context, requestID string) (bool, error) {
	key := fmt.Sprintf("%s:%s", requestLockKeyPrefix, requestID)
	return s.rdb.SetNX(ctx, key, 1, lockTTL).Result()
}

func (s *requestLockStore) Release(ctx context.Context, requestID string) error {
	key := fmt.Sprintf("%s:%s", requestLockKeyPrefix, requestID)
	return s.rdb.Del(ctx, key).Err()
}
