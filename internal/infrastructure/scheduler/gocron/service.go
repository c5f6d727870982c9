package timescheduler

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/strait-labs/straitd/internal/core/ports"
)

type service struct {
	scheduler *gocron.Scheduler
}

func NewScheduler() ports.SchedulerService {
	svc := gocron.NewScheduler(time.UTC)
	return &service{svc}
}

func (s *service) Start() {
	s.scheduler.StartAsync()
}

func (s *service) Stop() {
	s.scheduler.Stop()
}

func (s *service) AddNow(delta int64) int64 {
	return time.Now().Add(time.Duration(delta) * time.Second).Unix()
}

func (s *service) AfterNow(at int64) bool {
	return at > time.Now().Unix()
}

func (s *service) ScheduleTaskOnce(at int64, task func()) error {
	delay := at - time.Now().Unix()
	if delay < 0 {
		return fmt.Errorf("cannot schedule task in the past")
	}

	if _, err := s.scheduler.Every(int(delay)).Seconds().
		WaitForSchedule().LimitRunsTo(1).Do(task); err != nil {
		return err
	}

	return nil
}

func (s *service) ScheduleTaskEvery(interval int64, task func()) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}

	if _, err := s.scheduler.Every(int(interval)).Seconds().Do(task); err != nil {
		return err
	}

	return nil
}
