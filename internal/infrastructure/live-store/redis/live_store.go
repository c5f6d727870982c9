package redislivestore

import (
	"github.com/redis/go-redis/v9"
	"github.com/strait-labs/straitd/internal/core/ports"
)

type liveStore struct {
	deadlineStore    ports.DeadlineStore
	requestLockStore ports.RequestLockStore
}

func NewLiveStore(rdb *redis.Client, numOfRetries int) ports.LiveStore {
	return &liveStore{
		deadlineStore:    NewDeadlineStore(rdb, numOfRetries),
		requestLockStore: NewRequestLockStore(rdb),
	}
}

func (s *liveStore) Deadlines() ports.DeadlineStore {
	return s.deadlineStore
}

func (s *liveStore) RequestLocks() ports.RequestLockStore {
	return s.requestLockStore
}
