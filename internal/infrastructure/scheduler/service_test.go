package scheduler_test

import (
	"sync/atomic"
	"testing"
	"time"

	timescheduler "github.com/strait-labs/straitd/internal/infrastructure/scheduler/gocron"
	"github.com/stretchr/testify/require"
)

func TestScheduleTaskOnce(t *testing.T) {
	t.Parallel()

	svc := timescheduler.NewScheduler()
	svc.Start()
	t.Cleanup(func() { svc.Stop() })

	var handlerFuncCalled atomic.Bool
	handlerFunc := func() {
		handlerFuncCalled.Store(true)
	}

	err := svc.ScheduleTaskOnce(svc.AddNow(2), handlerFunc)
	require.NoError(t, err)

	time.Sleep(3 * time.Second)

	require.True(t, handlerFuncCalled.Load())
}

func TestScheduleTaskOnceInThePast(t *testing.T) {
	t.Parallel()

	svc := timescheduler.NewScheduler()
	svc.Start()
	t.Cleanup(func() { svc.Stop() })

	err := svc.ScheduleTaskOnce(svc.AddNow(-10), func() {})
	require.Error(t, err)
}

func TestScheduleTaskEvery(t *testing.T) {
	t.Parallel()

	svc := timescheduler.NewScheduler()
	svc.Start()
	t.Cleanup(func() { svc.Stop() })

	var count atomic.Int32
	err := svc.ScheduleTaskEvery(1, func() {
		count.Add(1)
	})
	require.NoError(t, err)

	time.Sleep(3500 * time.Millisecond)

	require.GreaterOrEqual(t, count.Load(), int32(2))
}

func TestAfterNow(t *testing.T) {
	t.Parallel()

	svc := timescheduler.NewScheduler()

	require.True(t, svc.AfterNow(svc.AddNow(60)))
	require.False(t, svc.AfterNow(svc.AddNow(-60)))
}
