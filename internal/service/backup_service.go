package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/craftops/game-backup-service/internal/domain"
	"github.com/craftops/game-backup-service/pkg/archive"
	"github.com/craftops/game-backup-service/pkg/diskusage"
	"github.com/craftops/game-backup-service/pkg/logger"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// 执行失败的稳定错误值，供调用方分支判断
var (
	ErrTargetNotFound = errors.New("backup target not found")
	ErrAlreadyRunning = errors.New("backup already running for target")
	ErrArchiveCreate  = errors.New("archive creation failed after retries")
	ErrVerification   = errors.New("archive verification failed")
	ErrProcessStop    = errors.New("failed to stop target process")
	ErrDiskSpace      = errors.New("insufficient disk space for backup")
)

// BackupExecutorConfig 执行器配置
type BackupExecutorConfig struct {
	// BackupRoot 归档根目录，实际归档写入 BackupRoot/<target_name>/
	BackupRoot string
	// MaxRetries 默认最大重试次数
	MaxRetries int
	// IncludeRestoreTest 验证时是否执行恢复抽验
	IncludeRestoreTest bool
	// DiskEmergencyPercent 备份卷使用率达到该值时拒绝执行，0 表示不检查
	DiskEmergencyPercent float64
}

// BackupExecutor 单次备份执行编排
type BackupExecutor interface {
	// Execute 端到端执行一次备份，maxRetries <= 0 时使用配置默认值
	// 同一目标的并发执行会被跳过而不是排队
	Execute(ctx context.Context, targetID int64, maxRetries int, trigger string) *domain.BackupResult
}

// archiveCreateFunc 归档产物生成函数，测试中可替换
type archiveCreateFunc func(ctx context.Context, srcDir string, destPath string) (int, int64, error)

// backoffFunc 重试间隔函数，attempt 从 1 开始
type backoffFunc func(attempt int) time.Duration

type backupExecutor struct {
	config       BackupExecutorConfig
	targetRepo   domain.TargetRepository
	scheduleRepo domain.ScheduleRepository
	historyRepo  domain.HistoryRepository
	verifier     VerificationEngine
	process      ProcessController
	retention    RetentionManager
	metrics      MetricsAggregator
	alerts       AlertNotifier
	logger       *zap.Logger

	createArchive archiveCreateFunc
	backoff       backoffFunc
	diskUsage     DiskUsageFunc

	// 单飞控制：每个目标至多一个在途执行
	mu      sync.Mutex
	running map[int64]bool
}

// ExecutorOption 执行器可选依赖
type ExecutorOption func(*backupExecutor)

// WithArchiveFunc 替换归档生成函数
func WithArchiveFunc(fn archiveCreateFunc) ExecutorOption {
	return func(e *backupExecutor) { e.createArchive = fn }
}

// WithBackoff 替换重试间隔函数
func WithBackoff(fn backoffFunc) ExecutorOption {
	return func(e *backupExecutor) { e.backoff = fn }
}

// WithDiskUsage 替换磁盘使用率探针
func WithDiskUsage(fn DiskUsageFunc) ExecutorOption {
	return func(e *backupExecutor) { e.diskUsage = fn }
}

// NewBackupExecutor 创建 BackupExecutor 实例
func NewBackupExecutor(
	config BackupExecutorConfig,
	targetRepo domain.TargetRepository,
	scheduleRepo domain.ScheduleRepository,
	historyRepo domain.HistoryRepository,
	verifier VerificationEngine,
	process ProcessController,
	retention RetentionManager,
	metrics MetricsAggregator,
	alerts AlertNotifier,
	logger *zap.Logger,
	opts ...ExecutorOption,
) BackupExecutor {
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	e := &backupExecutor{
		config:        config,
		targetRepo:    targetRepo,
		scheduleRepo:  scheduleRepo,
		historyRepo:   historyRepo,
		verifier:      verifier,
		process:       process,
		retention:     retention,
		metrics:       metrics,
		alerts:        alerts,
		logger:        logger,
		running:       make(map[int64]bool),
		createArchive: archive.Create,
		diskUsage: func(path string) (float64, error) {
			u, err := diskusage.Get(path)
			if err != nil {
				return 0, err
			}
			return u.UsedPercent, nil
		},
		backoff: func(attempt int) time.Duration {
			return time.Duration(1<<uint(attempt)) * time.Second
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// tryAcquire marks the target as running; false when already in flight
// tryAcquire 标记目标为执行中，已在途时返回 false
func (e *backupExecutor) tryAcquire(targetID int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running[targetID] {
		return false
	}
	e.running[targetID] = true
	return true
}

func (e *backupExecutor) release(targetID int64) {
	e.mu.Lock()
	delete(e.running, targetID)
	e.mu.Unlock()
}

func (e *backupExecutor) Execute(ctx context.Context, targetID int64, maxRetries int, trigger string) *domain.BackupResult {
	if maxRetries <= 0 {
		maxRetries = e.config.MaxRetries
	}
	if trigger == "" {
		trigger = domain.TriggerManual
	}

	result := &domain.BackupResult{
		TargetID:  targetID,
		StartTime: time.Now(),
		Status:    domain.BackupStatusFailed,
	}

	// 目标不存在快速失败，不占用执行槽
	target, err := e.targetRepo.GetByID(ctx, targetID)
	if err != nil {
		result.Message = err.Error()
		e.finish(ctx, result, nil, trigger)
		return result
	}
	if target == nil {
		result.Cause = ErrTargetNotFound
		result.Message = ErrTargetNotFound.Error()
		e.finish(ctx, result, nil, trigger)
		return result
	}
	result.TargetName = target.Name

	if !e.tryAcquire(targetID) {
		result.Cause = ErrAlreadyRunning
		result.Message = ErrAlreadyRunning.Error()
		e.logger.Warn("backup skipped, already running",
			zap.Int64(logger.FieldTargetID, targetID))
		return result
	}
	defer e.release(targetID)

	e.run(ctx, target, maxRetries, result)
	e.finish(ctx, result, target, trigger)
	return result
}

// run drives stop -> archive -> verify -> retention -> restart
// run 依次执行 停止 -> 归档 -> 验证 -> 保留清理 -> 重启
func (e *backupExecutor) run(ctx context.Context, target *domain.Target, maxRetries int, result *domain.BackupResult) {
	// Step 0: 备份卷达到紧急水位时直接拒绝，不触碰目标进程
	if e.config.DiskEmergencyPercent > 0 {
		if percent, err := e.diskUsage(e.config.BackupRoot); err == nil && percent >= e.config.DiskEmergencyPercent {
			result.Cause = ErrDiskSpace
			result.Message = fmt.Sprintf("%s: %.1f%% used", ErrDiskSpace.Error(), percent)
			e.logger.Error("refusing backup, disk at emergency watermark",
				zap.Int64(logger.FieldTargetID, target.ID),
				zap.Float64("usedPercent", percent))
			return
		}
	}

	// Step 1: 记录运行状态并停止进程
	wasRunning, pid := e.process.IsRunning(ctx, target)
	result.WasTargetRunning = wasRunning
	if wasRunning {
		target.PID = pid
		if err := e.process.Stop(ctx, target); err != nil {
			result.Cause = ErrProcessStop
			result.Message = ErrProcessStop.Error() + ": " + err.Error()
			e.logger.Error("aborting backup, process stop failed",
				zap.Int64(logger.FieldTargetID, target.ID),
				zap.Error(err))
			return
		}
		_ = e.targetRepo.SetStatus(ctx, target.ID, domain.ProcessStatusStopped, 0)
	}

	// Step 2: 带退避的归档创建
	archivePath, fileCount, size, err := e.createWithRetry(ctx, target, maxRetries, result)
	if err != nil {
		result.Cause = err
		result.Message = err.Error()
		e.restartIfNeeded(ctx, target, result)
		return
	}
	result.ArchivePath = archivePath
	result.FileCount = fileCount
	result.ArchiveSize = size

	// Step 3: 验证，无效归档直接删除，绝不保留
	report := e.verifier.Verify(ctx, archivePath, "", e.config.IncludeRestoreTest)
	result.Verification = report
	if !report.Valid {
		_ = os.Remove(archivePath)
		result.ArchivePath = ""
		result.Cause = ErrVerification
		result.Message = fmt.Sprintf("%s: score %d (%s)", ErrVerification.Error(), report.Score, report.Quality)
		e.logger.Error("archive failed verification, deleted",
			zap.Int64(logger.FieldTargetID, target.ID),
			zap.String(logger.FieldArchive, archivePath),
			zap.Int("score", report.Score))
		e.restartIfNeeded(ctx, target, result)
		return
	}
	for _, stage := range report.Stages {
		if stage.Stage == domain.StageChecksum {
			result.Checksum = stage.Digest
			break
		}
	}

	// Step 4: 仅在成功验证之后执行保留清理
	if schedule, err := e.scheduleRepo.GetByTargetID(ctx, target.ID); err == nil && schedule != nil {
		e.retention.Apply(ctx, target.ID, filepath.Dir(archivePath), schedule.RetentionDays)
	}

	result.Status = domain.BackupStatusSuccess
	result.Message = "backup completed"

	// Step 5: 重启失败不改变备份结果
	e.restartIfNeeded(ctx, target, result)
}

// createWithRetry attempts archive creation with 2^attempt backoff between tries
// createWithRetry 重试创建归档，两次尝试之间按 2^attempt 退避
func (e *backupExecutor) createWithRetry(ctx context.Context, target *domain.Target, maxRetries int, result *domain.BackupResult) (string, int, int64, error) {
	backupDir := filepath.Join(e.config.BackupRoot, target.Name)
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return "", 0, 0, errors.Wrap(err, "create backup directory")
	}

	archiveName := fmt.Sprintf("%s_backup_%s.tar.gz", target.Name, time.Now().Format("20060102_150405"))
	archivePath := filepath.Join(backupDir, archiveName)

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		result.Attempts = attempt

		fileCount, size, err := e.createArchive(ctx, target.WorldPath, archivePath)
		if err == nil {
			return archivePath, fileCount, size, nil
		}
		lastErr = err
		_ = os.Remove(archivePath)

		e.logger.Warn("archive creation attempt failed",
			zap.Int64(logger.FieldTargetID, target.ID),
			zap.Int(logger.FieldAttempt, attempt),
			zap.Error(err))

		if attempt < maxRetries {
			select {
			case <-ctx.Done():
				return "", 0, 0, ctx.Err()
			case <-time.After(e.backoff(attempt)):
			}
		}
	}

	return "", 0, 0, errors.Wrapf(ErrArchiveCreate, "%d attempts: %v", maxRetries, lastErr)
}

// restartIfNeeded restarts a previously running target; failure is logged only
// restartIfNeeded 重启此前在运行的目标，失败只记录不影响结果
func (e *backupExecutor) restartIfNeeded(ctx context.Context, target *domain.Target, result *domain.BackupResult) {
	if !result.WasTargetRunning {
		return
	}

	pid, err := e.process.Start(ctx, target)
	if err != nil {
		e.logger.Error("restart after backup failed",
			zap.Int64(logger.FieldTargetID, target.ID),
			zap.Error(err))
		_ = e.targetRepo.SetStatus(ctx, target.ID, domain.ProcessStatusStopped, 0)
		return
	}
	_ = e.targetRepo.SetStatus(ctx, target.ID, domain.ProcessStatusRunning, pid)
}

// finish persists last_run and history, then feeds metrics and alerts
// finish 回写 last_run 与历史记录，再上报指标与告警
func (e *backupExecutor) finish(ctx context.Context, result *domain.BackupResult, target *domain.Target, trigger string) {
	result.Duration = time.Since(result.StartTime)

	// last_run 无论成败都更新
	var scheduleID int64
	if target != nil {
		if schedule, err := e.scheduleRepo.GetByTargetID(ctx, target.ID); err == nil && schedule != nil {
			scheduleID = schedule.ID
			if err := e.scheduleRepo.UpdateLastRun(ctx, schedule.ID, result.Status, result.Message); err != nil {
				e.logger.Warn("failed to update schedule last_run",
					zap.Int64("scheduleId", schedule.ID),
					zap.Error(err))
			}
		}
	}

	if e.historyRepo != nil && target != nil {
		history := &domain.BackupHistory{
			TargetID:   result.TargetID,
			ScheduleID: scheduleID,
			Trigger:    trigger,
			StartTime:  result.StartTime,
			EndTime:    result.StartTime.Add(result.Duration),
			Status:     result.Status,
			FilePath:   result.ArchivePath,
			FileSize:   result.ArchiveSize,
			FileCount:  int64(result.FileCount),
			Checksum:   result.Checksum,
			Attempts:   result.Attempts,
			Message:    result.Message,
		}
		if result.Verification != nil {
			history.Score = result.Verification.Score
		}
		if _, err := e.historyRepo.Create(ctx, history); err != nil {
			e.logger.Warn("failed to persist backup history", zap.Error(err))
		}
	}

	if e.metrics != nil {
		e.metrics.Record(result)
		if e.alerts != nil {
			e.alerts.NotifyResult(result, e.metrics.Snapshot())
		}
	}

	e.logger.Info("backup execution finished",
		zap.Int64(logger.FieldTargetID, result.TargetID),
		zap.Int("status", result.Status),
		zap.Int("attempts", result.Attempts),
		zap.Int64(logger.FieldSize, result.ArchiveSize),
		zap.Duration(logger.FieldDuration, result.Duration))
}
