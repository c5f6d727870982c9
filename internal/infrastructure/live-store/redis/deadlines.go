package redislivestore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/strait-labs/straitd/internal/core/ports"
)

const deadlineStoreKey = "deadlineStore:transfers"

type deadlineStore struct {
	rdb          *redis.Client
	numOfRetries int
	retryDelay   time.Duration
}

func NewDeadlineStore(rdb *redis.Client, numOfRetries int) ports.DeadlineStore {
	return &deadlineStore{
		rdb:          rdb,
		numOfRetries: numOfRetries,
		retryDelay:   10 * time.Millisecond,
	}
}

func (s *deadlineStore) Put(ctx context.Context, requestID string, deadline time.Time) error {
	var err error
	for range s.numOfRetries {
		if err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.ZAdd(ctx, deadlineStoreKey, redis.Z{
					Score:  float64(deadline.Unix()),
					Member: requestID,
				})
				return nil
			})
			return err
		}, deadlineStoreKey); err == nil {
			return nil
		}
		time.Sleep(s.retryDelay)
	}
	return fmt.Errorf("failed to store deadline after max number of retries: %v", err)
}

func (s *deadlineStore) Remove(ctx context.Context, requestID string) error {
	return s.rdb.ZRem(ctx, deadlineStoreKey, requestID).Err()
}

func (s *deadlineStore) DueBefore(ctx context.Context, t time.Time) ([]string, error) {
	return s.rdb.ZRangeByScore(ctx, deadlineStoreKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(t.Unix(), 10),
	}).Result()
}

func (s *deadlineStore) Get(ctx context.Context, requestID string) (*time.Time, error) {
	score, err := s.rdb.ZScore(ctx, deadlineStoreKey, requestID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	deadline := time.Unix(int64(score), 0)
	return &deadline, nil
}

func (s *deadlineStore) Len(ctx context.Context) (int64, error) {
	return s.rdb.ZCard(ctx, deadlineStoreKey).Result()
}
