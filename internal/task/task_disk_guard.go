package task

import (
	"context"
	"time"

	"github.com/craftops/game-backup-service/internal/service"
	"github.com/craftops/game-backup-service/pkg/diskusage"

	"go.uber.org/zap"
)

// DiskGuardTask 周期巡检备份盘水位
// 超过告警阈值时发送告警，超过紧急阈值时触发紧急清理
type DiskGuardTask struct {
	backupRoot       string
	warnPercent      float64
	emergencyPercent float64
	interval         time.Duration
	retention        service.RetentionManager
	metrics          service.MetricsAggregator
	alerts           service.AlertNotifier
	logger           *zap.Logger
}

// NewDiskGuardTask 创建磁盘水位巡检任务
func NewDiskGuardTask(
	backupRoot string,
	warnPercent float64,
	emergencyPercent float64,
	interval time.Duration,
	retention service.RetentionManager,
	metrics service.MetricsAggregator,
	alerts service.AlertNotifier,
	logger *zap.Logger,
) *DiskGuardTask {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &DiskGuardTask{
		backupRoot:       backupRoot,
		warnPercent:      warnPercent,
		emergencyPercent: emergencyPercent,
		interval:         interval,
		retention:        retention,
		metrics:          metrics,
		alerts:           alerts,
		logger:           logger,
	}
}

// Name 返回任务名称
func (t *DiskGuardTask) Name() string {
	return "DiskGuard"
}

// LoopInterval 返回执行间隔
func (t *DiskGuardTask) LoopInterval() time.Duration {
	return t.interval
}

// IsStartupRun 是否立即执行一次
func (t *DiskGuardTask) IsStartupRun() bool {
	return true
}

// Run 执行一次水位检查
func (t *DiskGuardTask) Run(ctx context.Context) error {
	usage, err := diskusage.Get(t.backupRoot)
	if err != nil {
		return err
	}

	t.metrics.SetDiskUsage(usage.UsedPercent)

	if usage.UsedPercent >= t.warnPercent && t.alerts != nil {
		t.alerts.NotifyDiskUsage(usage.UsedPercent, t.warnPercent, t.emergencyPercent, t.metrics.Snapshot())
	}

	if usage.UsedPercent >= t.emergencyPercent {
		t.logger.Warn("disk usage above emergency watermark, starting cleanup",
			zap.Float64("usedPercent", usage.UsedPercent),
			zap.Float64("emergencyPercent", t.emergencyPercent))

		report := t.retention.EmergencyCleanup(ctx, t.backupRoot)
		t.logger.Info("emergency cleanup finished",
			zap.Int("removed", report.Removed),
			zap.Int64("freedBytes", report.FreedBytes))
	}

	return nil
}
