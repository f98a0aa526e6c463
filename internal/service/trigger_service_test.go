package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/craftops/game-backup-service/internal/domain"
	"github.com/craftops/game-backup-service/pkg/workerpool"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// countingExecutor 只统计调用次数
type countingExecutor struct {
	calls       int64
	lastTrigger atomic.Value
}

func (e *countingExecutor) Execute(_ context.Context, targetID int64, _ int, trigger string) *domain.BackupResult {
	atomic.AddInt64(&e.calls, 1)
	e.lastTrigger.Store(trigger)
	return &domain.BackupResult{TargetID: targetID, Status: domain.BackupStatusSuccess}
}

func newTestTrigger(t *testing.T, scheduleRepo domain.ScheduleRepository, executor BackupExecutor) TriggerEngine {
	t.Helper()
	pool := workerpool.New(&workerpool.Config{MaxWorkers: 2, QueueSize: 8}, zap.NewNop())
	t.Cleanup(func() { _ = pool.Shutdown(context.Background()) })
	return NewTriggerEngine(scheduleRepo, executor, pool, NewMetricsAggregator(nil), nil, zap.NewNop())
}

func TestTriggerRegisterUnregister(t *testing.T) {
	engine := newTestTrigger(t, newMemScheduleRepo(), &countingExecutor{})

	schedule := &domain.BackupSchedule{ID: 1, TargetID: 1, Type: domain.ScheduleDaily, Hour: 3, Minute: 30}
	require.NoError(t, engine.Register(schedule))
	assert.Equal(t, 1, engine.EntryCount())

	// 重复注册替换而不是追加
	require.NoError(t, engine.Register(schedule))
	assert.Equal(t, 1, engine.EntryCount())

	engine.Unregister(1)
	assert.Equal(t, 0, engine.EntryCount())

	// 幂等
	engine.Unregister(1)
	assert.Equal(t, 0, engine.EntryCount())
}

func TestTriggerRejectsUnknownType(t *testing.T) {
	engine := newTestTrigger(t, newMemScheduleRepo(), &countingExecutor{})

	schedule := &domain.BackupSchedule{ID: 1, TargetID: 1, Type: "hourly"}
	err := engine.Register(schedule)
	assert.Error(t, err)
	assert.Equal(t, 0, engine.EntryCount())
}

func TestTriggerNextRun(t *testing.T) {
	engine := newTestTrigger(t, newMemScheduleRepo(), &countingExecutor{})

	assert.True(t, engine.NextRun(1).IsZero())

	schedule := &domain.BackupSchedule{ID: 1, TargetID: 1, Type: domain.ScheduleDaily, Hour: 3, Minute: 30}
	require.NoError(t, engine.Register(schedule))
	require.NoError(t, engine.Start(context.Background()))
	defer func() { _ = engine.Stop(context.Background()) }()

	next := engine.NextRun(1)
	require.False(t, next.IsZero())
	assert.Equal(t, 3, next.Hour())
	assert.Equal(t, 30, next.Minute())
}

func TestTriggerStartRunsCatchup(t *testing.T) {
	// 上次执行在两天前，每日计划必然错过至少一次
	schedule := &domain.BackupSchedule{
		ID:       1,
		TargetID: 7,
		Type:     domain.ScheduleDaily,
		Hour:     3,
		Minute:   0,
		Enabled:  true,
		LastRun:  time.Now().Add(-48 * time.Hour),
	}
	executor := &countingExecutor{}
	engine := newTestTrigger(t, newMemScheduleRepo(schedule), executor)

	require.NoError(t, engine.Start(context.Background()))
	defer func() { _ = engine.Stop(context.Background()) }()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&executor.calls) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, domain.TriggerCatchup, executor.lastTrigger.Load())
}

func TestTriggerStartSkipsNeverRunSchedules(t *testing.T) {
	// 从未执行过的计划不补偿，等待首次正常触发
	schedule := &domain.BackupSchedule{
		ID:       1,
		TargetID: 7,
		Type:     domain.ScheduleDaily,
		Hour:     3,
		Minute:   0,
		Enabled:  true,
	}
	executor := &countingExecutor{}
	engine := newTestTrigger(t, newMemScheduleRepo(schedule), executor)

	require.NoError(t, engine.Start(context.Background()))
	defer func() { _ = engine.Stop(context.Background()) }()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(0), atomic.LoadInt64(&executor.calls))
}
