// Package app 提供应用容器，封装所有依赖和服务
package app

import (
	"time"

	"github.com/craftops/game-backup-service/global"
	"github.com/craftops/game-backup-service/internal/dao"
	"github.com/craftops/game-backup-service/internal/domain"
	"github.com/craftops/game-backup-service/internal/service"
	"github.com/craftops/game-backup-service/internal/task"
	pkgapp "github.com/craftops/game-backup-service/pkg/app"
	"github.com/craftops/game-backup-service/pkg/safe_close"
	"github.com/craftops/game-backup-service/pkg/workerpool"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Name 服务名称
const Name = "game-backup-service"

// App 应用容器，封装所有依赖和服务
type App struct {
	logger *zap.Logger
	DB     *gorm.DB
	Dao    *dao.Dao

	// 并发控制组件
	WorkerPool *workerpool.Pool

	// Prometheus 指标注册表，私有端口暴露
	Registry *prometheus.Registry

	// Repository 层
	TargetRepo   domain.TargetRepository
	ScheduleRepo domain.ScheduleRepository
	HistoryRepo  domain.HistoryRepository

	// Service 层
	Verifier      service.VerificationEngine
	Process       service.ProcessController
	Retention     service.RetentionManager
	Metrics       service.MetricsAggregator
	Alerts        service.AlertNotifier
	Executor      service.BackupExecutor
	Trigger       service.TriggerEngine
	ScheduleStore service.ScheduleStore
	TargetStore   service.TargetStore
	BackupManager service.BackupManager

	// 后台任务
	TaskManager *task.Manager

	// StartTime 服务启动时间
	StartTime time.Time
}

// NewApp 创建应用容器实例，初始化所有依赖并进行依赖注入
func NewApp(logger *zap.Logger, db *gorm.DB, sc *safe_close.SafeClose) (*App, error) {
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if db == nil {
		return nil, errors.New("database is required")
	}

	cfg := global.Config

	a := &App{
		logger:    logger,
		DB:        db,
		Dao:       dao.New(db),
		Registry:  prometheus.NewRegistry(),
		StartTime: time.Now(),
	}

	a.WorkerPool = workerpool.New(&workerpool.Config{
		MaxWorkers: cfg.Backup.MaxWorkers,
		QueueSize:  cfg.Backup.QueueSize,
	}, logger)

	// Repository 层
	a.TargetRepo = dao.NewTargetRepository(a.Dao)
	a.ScheduleRepo = dao.NewScheduleRepository(a.Dao)
	a.HistoryRepo = dao.NewHistoryRepository(a.Dao)

	// Service 层
	a.Verifier = service.NewVerificationEngine(service.NewWorldValidator(logger), cfg.App.TempPath, cfg.Backup.RestoreSampleCount, logger)
	a.Process = service.NewProcessController(time.Duration(cfg.Backup.StopTimeout)*time.Second, logger)
	a.Retention = service.NewRetentionManager(service.RetentionConfig{
		MinRetained:      1,
		WarnPercent:      cfg.Backup.DiskWarnPercent,
		EmergencyPercent: cfg.Backup.DiskEmergencyPercent,
	}, nil, a.HistoryRepo, logger)
	a.Metrics = service.NewMetricsAggregator(a.Registry)
	a.Alerts = service.NewAlertNotifier(service.DefaultAlertConfig(), buildAlertSinks(), logger)

	a.Executor = service.NewBackupExecutor(service.BackupExecutorConfig{
		BackupRoot:           cfg.Backup.Dir,
		MaxRetries:           cfg.Backup.MaxRetries,
		IncludeRestoreTest:   cfg.Backup.RestoreTest,
		DiskEmergencyPercent: cfg.Backup.DiskEmergencyPercent,
	}, a.TargetRepo, a.ScheduleRepo, a.HistoryRepo, a.Verifier, a.Process, a.Retention, a.Metrics, a.Alerts, logger)

	a.Trigger = service.NewTriggerEngine(a.ScheduleRepo, a.Executor, a.WorkerPool, a.Metrics, a.Alerts, logger)
	a.ScheduleStore = service.NewScheduleStore(a.ScheduleRepo, a.TargetRepo, a.Trigger, logger)
	a.TargetStore = service.NewTargetStore(a.TargetRepo, a.ScheduleRepo, a.Process, a.Trigger, logger)
	a.BackupManager = service.NewBackupManager(cfg.Backup.Dir, a.Executor, a.Verifier, a.Retention,
		a.TargetRepo, a.ScheduleRepo, a.HistoryRepo, logger)

	// 后台任务
	a.TaskManager = task.NewManager(logger, sc)
	if err := a.TaskManager.RegisterTasks(a.Retention, a.Metrics, a.Alerts); err != nil {
		return nil, errors.Wrap(err, "register background tasks")
	}

	logger.Info("app container initialized",
		zap.Int("workerPoolMaxWorkers", cfg.Backup.MaxWorkers),
		zap.String("backupDir", cfg.Backup.Dir))

	return a, nil
}

// buildAlertSinks 根据配置组装告警通道，未启用时返回空
func buildAlertSinks() []service.AlertSink {
	var sinks []service.AlertSink
	if e := global.Config.Alert.Email; e.Enabled {
		sinks = append(sinks, service.NewEmailSink(e.Host, e.Port, e.UserName, e.Password, e.From, e.To))
	}
	if w := global.Config.Alert.Webhook; w.Enabled {
		sinks = append(sinks, service.NewWebhookSink(w.URL, time.Duration(w.Timeout)*time.Second))
	}
	return sinks
}

// Close 释放应用容器持有的资源
func (a *App) Close() error {
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err != nil {
			return errors.Wrap(err, "get sql.DB")
		}
		if err := sqlDB.Close(); err != nil {
			return errors.Wrap(err, "close database")
		}
		a.logger.Info("database connection closed")
	}
	return nil
}

// Logger 获取日志器
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Version 获取版本信息
func (a *App) Version() pkgapp.VersionInfo {
	return pkgapp.VersionInfo{
		Version:   Version,
		GitTag:    GitTag,
		BuildTime: BuildTime,
	}
}
