package service

import (
	"context"
	"sync"
	"time"

	"github.com/craftops/game-backup-service/internal/domain"
	"github.com/craftops/game-backup-service/pkg/workerpool"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// TriggerEngine 计划调度引擎，将计划注册为 cron 任务
type TriggerEngine interface {
	// Start 启动调度器并加载所有启用的计划，必要时执行补偿备份
	Start(ctx context.Context) error

	// Stop 停止调度器，等待在途 cron 回调返回
	Stop(ctx context.Context) error

	// Register 注册或替换一个计划的 cron 任务
	Register(schedule *domain.BackupSchedule) error

	// Unregister 移除一个计划的 cron 任务，幂等
	Unregister(scheduleID int64)

	// NextRun 返回计划的下一次触发时间，未注册时返回零值
	NextRun(scheduleID int64) time.Time

	// EntryCount 当前已注册的计划数量
	EntryCount() int
}

type triggerEngine struct {
	scheduleRepo domain.ScheduleRepository
	executor     BackupExecutor
	pool         *workerpool.Pool
	metrics      MetricsAggregator
	alerts       AlertNotifier
	logger       *zap.Logger

	cron *cron.Cron

	mu      sync.Mutex
	entries map[int64]cron.EntryID
}

// NewTriggerEngine 创建调度引擎，重叠触发会被跳过而不是排队
func NewTriggerEngine(
	scheduleRepo domain.ScheduleRepository,
	executor BackupExecutor,
	pool *workerpool.Pool,
	metrics MetricsAggregator,
	alerts AlertNotifier,
	logger *zap.Logger,
) TriggerEngine {
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DiscardLogger),
		cron.Recover(cron.DiscardLogger),
	))
	return &triggerEngine{
		scheduleRepo: scheduleRepo,
		executor:     executor,
		pool:         pool,
		metrics:      metrics,
		alerts:       alerts,
		logger:       logger,
		cron:         c,
		entries:      make(map[int64]cron.EntryID),
	}
}

func (e *triggerEngine) Start(ctx context.Context) error {
	schedules, err := e.scheduleRepo.ListEnabled(ctx)
	if err != nil {
		return err
	}

	for _, schedule := range schedules {
		if err := e.Register(schedule); err != nil {
			e.logger.Error("failed to register schedule",
				zap.Int64("scheduleId", schedule.ID),
				zap.Error(err))
			continue
		}
		if e.missedLastOccurrence(schedule) {
			e.logger.Info("schedule missed last occurrence, running catch-up backup",
				zap.Int64("scheduleId", schedule.ID),
				zap.Int64("targetId", schedule.TargetID))
			e.dispatch(schedule, domain.TriggerCatchup)
		}
	}

	e.cron.Start()
	e.logger.Info("trigger engine started", zap.Int("schedules", len(e.entries)))
	return nil
}

func (e *triggerEngine) Stop(ctx context.Context) error {
	stopCtx := e.cron.Stop()
	select {
	case <-stopCtx.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *triggerEngine) Register(schedule *domain.BackupSchedule) error {
	if !schedule.Type.Valid() {
		return errors.Errorf("unknown schedule type %q", schedule.Type)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// 重复注册先移除旧条目，保证每个计划至多一个 cron 任务
	if old, ok := e.entries[schedule.ID]; ok {
		e.cron.Remove(old)
		delete(e.entries, schedule.ID)
	}

	s := *schedule
	entryID, err := e.cron.AddFunc(s.CronExpression(), func() {
		e.dispatch(&s, domain.TriggerScheduled)
	})
	if err != nil {
		return err
	}
	e.entries[schedule.ID] = entryID

	e.logger.Info("schedule registered",
		zap.Int64("scheduleId", schedule.ID),
		zap.Int64("targetId", schedule.TargetID),
		zap.String("cron", s.CronExpression()))
	return nil
}

func (e *triggerEngine) Unregister(scheduleID int64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if entryID, ok := e.entries[scheduleID]; ok {
		e.cron.Remove(entryID)
		delete(e.entries, scheduleID)
		e.logger.Info("schedule unregistered", zap.Int64("scheduleId", scheduleID))
	}
}

func (e *triggerEngine) NextRun(scheduleID int64) time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()

	if entryID, ok := e.entries[scheduleID]; ok {
		return e.cron.Entry(entryID).Next
	}
	return time.Time{}
}

func (e *triggerEngine) EntryCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.entries)
}

// dispatch hands the backup to the worker pool; schedule failures feed metrics and alerts
// dispatch 将备份提交到工作池，调度失败计入指标并告警
func (e *triggerEngine) dispatch(schedule *domain.BackupSchedule, trigger string) {
	err := e.pool.SubmitAsync(context.Background(), func(ctx context.Context) error {
		result := e.executor.Execute(ctx, schedule.TargetID, 0, trigger)
		if result.Status != domain.BackupStatusSuccess {
			e.recordScheduleFailure(schedule, result.Message)
		}
		return nil
	})
	if err != nil {
		e.logger.Error("failed to dispatch scheduled backup",
			zap.Int64("scheduleId", schedule.ID),
			zap.Error(err))
		e.recordScheduleFailure(schedule, err.Error())
	}
}

func (e *triggerEngine) recordScheduleFailure(schedule *domain.BackupSchedule, message string) {
	if e.metrics != nil {
		e.metrics.RecordScheduleFailure()
	}
	if e.alerts != nil && e.metrics != nil {
		e.alerts.NotifyScheduleFailure(schedule.TargetID, message, e.metrics.Snapshot())
	}
}

// missedLastOccurrence reports whether a run was due since last_run
// missedLastOccurrence 判断上次执行之后是否错过了一次应触发时间
func (e *triggerEngine) missedLastOccurrence(schedule *domain.BackupSchedule) bool {
	if schedule.LastRun.IsZero() {
		return false
	}

	spec, err := cron.ParseStandard(schedule.CronExpression())
	if err != nil {
		return false
	}

	due := spec.Next(schedule.LastRun)
	return due.Before(time.Now())
}
