package inmemorylivestore

import (
	"context"
	"sync"

	"github.com/strait-labs/straitd/internal/core/ports"
)

type requestLockStore struct {
	lock  *sync.Mutex
	owned map[string]struct{}
}

func NewRequestLockStore() ports.RequestLockStore {
	return &requestLockStore{
		lock:  &sync.Mutex{},
		owned: make(map[string]struct{}),
	}
}

func (s *requestLockStore) TryAcquire(_ context.Context, requestID string) (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.owned[requestID]; ok {
		return false, nil
	}
	s.owned[requestID] = struct{}{}
	return true, nil
}

func (s *requestLockStore) Release(_ context.Context, requestID string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	delete(s.owned, requestID)
	return nil
}
