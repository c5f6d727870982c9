package inmemorylivestore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/strait-labs/straitd/internal/core/ports"
)

type deadlineStore struct {
	lock      *sync.RWMutex
	deadlines map[string]time.Time
}

func NewDeadlineStore() ports.DeadlineStore {
	return &deadlineStore{
		lock:      &sync.RWMutex{},
		deadlines: make(map[string]time.Time),
	}
}

func (s *deadlineStore) Put(_ context.Context, requestID string, deadline time.Time) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.deadlines[requestID] = deadline
	return nil
}

func (s *deadlineStore) Remove(_ context.Context, requestID string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	delete(s.deadlines, requestID)
	return nil
}

func (s *deadlineStore) DueBefore(_ context.Context, t time.Time) ([]string, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	type entry struct {
		requestID string
		deadline  time.Time
	}
	due := make([]entry, 0)
	for requestID, deadline := range s.deadlines {
		if !deadline.After(t) {
			due = append(due, entry{requestID, deadline})
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].deadline.Before(due[j].deadline)
	})

	requestIDs := make([]string, 0, len(due))
	for _, e := range due {
		requestIDs = append(requestIDs, e.requestID)
	}
	return requestIDs, nil
}

func (s *deadlineStore) Get(_ context.Context, requestID string) (*time.Time, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	deadline, ok := s.deadlines[requestID]
	if !ok {
		return nil, nil
	}
	return &deadline, nil
}

func (s *deadlineStore) Len(_ context.Context) (int64, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return int64(len(s.deadlines)), nil
}
