package task

import (
	"time"

	"github.com/craftops/game-backup-service/global"
	"github.com/craftops/game-backup-service/internal/service"
	"github.com/craftops/game-backup-service/pkg/safe_close"

	"go.uber.org/zap"
)

// Manager 任务管理器，负责创建和管理所有后台任务
type Manager struct {
	scheduler *Scheduler
	logger    *zap.Logger
}

// NewManager 创建任务管理器
func NewManager(logger *zap.Logger, sc *safe_close.SafeClose) *Manager {
	return &Manager{
		scheduler: NewScheduler(logger, sc),
		logger:    logger,
	}
}

// RegisterTasks 注册所有后台任务
func (m *Manager) RegisterTasks(
	retention service.RetentionManager,
	metrics service.MetricsAggregator,
	alerts service.AlertNotifier,
) error {
	cfg := global.Config.Backup

	diskGuard := NewDiskGuardTask(
		cfg.Dir,
		cfg.DiskWarnPercent,
		cfg.DiskEmergencyPercent,
		time.Duration(cfg.DiskGuardInterval)*time.Second,
		retention,
		metrics,
		alerts,
		m.logger,
	)
	m.scheduler.AddTask(diskGuard)

	return nil
}

// Start 启动所有已注册的任务
func (m *Manager) Start() {
	m.scheduler.Start()
}
