package ports

// SchedulerService runs deferred and recurring tasks for the timeout sweeper.
type SchedulerService interface {
	Start()
	Stop()
	// ScheduleTaskOnce runs task once at the given unix time. Scheduling in
	// the past is an error.
	ScheduleTaskOnce(at int64, task func()) error
	// ScheduleTaskEvery runs task every interval seconds until the scheduler
	// stops.
	ScheduleTaskEvery(interval int64, task func()) error
	// AddNow returns the unix time delta seconds from now.
	AddNow(delta int64) int64
	// AfterNow reports whether the given unix time is in the future.
	AfterNow(at int64) bool
}
