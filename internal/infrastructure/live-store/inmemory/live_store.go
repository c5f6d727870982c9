package inmemorylivestore

import (
	"github.com/strait-labs/straitd/internal/core/ports"
)

type liveStore struct {
	deadlineStore    ports.DeadlineStore
	requestLockStore ports.RequestLockStore
}

func NewLiveStore() ports.LiveStore {
	return &liveStore{
		deadlineStore:    NewDeadlineStore(),
		requestLockStore: NewRequestLockStore(),
	}
}

func (s *liveStore) Deadlines() ports.DeadlineStore {
	return s.deadlineStore
}

func (s *liveStore) RequestLocks() ports.RequestLockStore {
	return s.requestLockStore
}
