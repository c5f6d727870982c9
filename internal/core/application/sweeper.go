package application

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/strait-labs/straitd/internal/core/ports"
)

// scanInterval is how often the sweeper re-reads the deadline store, catching
// transfers whose one-shot task was lost to a crash.
const scanInterval = 30

// sweeper is an unexported service running while the main application service
// is started. It reverts transfers that exceed the settlement timeout: every
// pending transfer has a deadline in the live store, a one-shot task fires at
// the deadline and a recurring scan backstops the one-shots across restarts.
type sweeper struct {
	repoManager ports.RepoManager
	liveStore   ports.LiveStore
	scheduler   ports.SchedulerService
	timeout     time.Duration

	// revert is provided by the orchestrator, it owns the compensation logic
	revert func(requestID, reason string)

	// cache of scheduled tasks, avoid scheduling the same revert multiple times
	locker         *sync.Mutex
	scheduledTasks map[string]struct{}
}

func newSweeper(
	repoManager ports.RepoManager, liveStore ports.LiveStore,
	scheduler ports.SchedulerService, timeout time.Duration,
	revert func(requestID, reason string),
) *sweeper {
	return &sweeper{
		repoManager, liveStore, scheduler, timeout, revert,
		&sync.Mutex{}, make(map[string]struct{}),
	}
}

func (s *sweeper) start() error {
	s.scheduler.Start()

	ctx := context.Background()

	pendingTransfers, err := s.repoManager.Transfers().GetPendingTransfers(ctx)
	if err != nil {
		return err
	}

	if len(pendingTransfers) > 0 {
		log.Infof("sweeper: restoring %d pending transfers", len(pendingTransfers))

		for _, transfer := range pendingTransfers {
			deadline := transfer.Deadline(s.timeout)
			if err := s.liveStore.Deadlines().Put(
				ctx, transfer.RequestID, time.Unix(deadline, 0),
			); err != nil {
				log.WithError(err).Errorf(
					"sweeper: failed to restore deadline for %s", transfer.RequestID,
				)
				continue
			}
			s.scheduleRevert(transfer.RequestID, deadline)
		}
	}

	return s.scheduler.ScheduleTaskEvery(scanInterval, s.checkDeadlines)
}

func (s *sweeper) stop() {
	s.scheduler.Stop()
}

// track registers the transfer's deadline and schedules its revert task.
func (s *sweeper) track(ctx context.Context, requestID string, deadline int64) error {
	if err := s.liveStore.Deadlines().Put(ctx, requestID, time.Unix(deadline, 0)); err != nil {
		return err
	}
	s.scheduleRevert(requestID, deadline)
	return nil
}

// cancel drops the deadline of a transfer that reached a final state.
func (s *sweeper) cancel(ctx context.Context, requestID string) {
	s.removeTask(requestID)
	if err := s.liveStore.Deadlines().Remove(ctx, requestID); err != nil {
		log.WithError(err).Warnf("sweeper: failed to remove deadline for %s", requestID)
	}
}

func (s *sweeper) scheduleRevert(requestID string, at int64) {
	if !s.scheduler.AfterNow(at) {
		log.Debugf("sweeper: deadline for %s already passed, reverting now", requestID)
		s.revert(requestID, "transfer timed out")
		return
	}

	s.locker.Lock()
	defer s.locker.Unlock()

	if _, scheduled := s.scheduledTasks[requestID]; scheduled {
		return
	}
	s.scheduledTasks[requestID] = struct{}{}

	if err := s.scheduler.ScheduleTaskOnce(at, func() {
		// check if the task is still scheduled before executing it
		s.locker.Lock()
		if _, scheduled := s.scheduledTasks[requestID]; !scheduled {
			s.locker.Unlock()
			return
		}
		s.locker.Unlock()

		s.removeTask(requestID)
		s.revert(requestID, "transfer timed out")
	}); err != nil {
		log.WithError(err).Errorf("sweeper: failed to schedule revert for %s", requestID)
		delete(s.scheduledTasks, requestID)
	}
}

// checkDeadlines reverts every transfer whose deadline passed. Reverting is
// idempotent, a transfer already finalized by its one-shot task is skipped by
// the orchestrator.
func (s *sweeper) checkDeadlines() {
	ctx := context.Background()

	due, err := s.liveStore.Deadlines().DueBefore(ctx, time.Now())
	if err != nil {
		log.WithError(err).Warn("sweeper: failed to read due deadlines")
		return
	}

	for _, requestID := range due {
		s.removeTask(requestID)
		s.revert(requestID, "transfer timed out")
	}
}

// removeTask updates the cached map of scheduled tasks
func (s *sweeper) removeTask(id string) {
	s.locker.Lock()
	defer s.locker.Unlock()
	delete(s.scheduledTasks, id)
}
