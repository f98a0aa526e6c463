package service

import (
	"sync"
	"time"

	"github.com/craftops/game-backup-service/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsAggregator 进程级备份指标聚合器
// 注入到执行器与触发器，不使用包级单例
type MetricsAggregator interface {
	// Record 记录一次备份结果
	Record(result *domain.BackupResult)

	// RecordScheduleFailure 记录一次调度执行失败
	RecordScheduleFailure()

	// SetDiskUsage 更新备份盘使用率
	SetDiskUsage(percent float64)

	// Snapshot 返回当前指标快照
	Snapshot() domain.MetricsSnapshot
}

type metricsAggregator struct {
	mu       sync.Mutex
	snapshot domain.MetricsSnapshot

	// Prometheus 指标
	backupsTotal      *prometheus.CounterVec
	backupDuration    prometheus.Histogram
	archiveBytesTotal prometheus.Counter
	diskUsagePercent  prometheus.Gauge
	verifyFailures    prometheus.Counter
	corruptionsTotal  prometheus.Counter
}

// NewMetricsAggregator 创建指标聚合器并注册 Prometheus 指标
// registry 为 nil 时不导出 Prometheus 指标
func NewMetricsAggregator(registry *prometheus.Registry) MetricsAggregator {
	m := &metricsAggregator{
		backupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "game_backup",
			Name:      "backups_total",
			Help:      "Total backup executions by result.",
		}, []string{"result"}),
		backupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "game_backup",
			Name:      "backup_duration_seconds",
			Help:      "Duration of successful backup executions.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		archiveBytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "game_backup",
			Name:      "archive_bytes_total",
			Help:      "Cumulative size of produced archives.",
		}),
		diskUsagePercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "game_backup",
			Name:      "disk_usage_percent",
			Help:      "Disk usage of the backup volume.",
		}),
		verifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "game_backup",
			Name:      "verification_failures_total",
			Help:      "Archives that failed verification.",
		}),
		corruptionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "game_backup",
			Name:      "corruptions_detected_total",
			Help:      "Archives with corruption detected.",
		}),
	}

	if registry != nil {
		registry.MustRegister(
			m.backupsTotal,
			m.backupDuration,
			m.archiveBytesTotal,
			m.diskUsagePercent,
			m.verifyFailures,
			m.corruptionsTotal,
		)
	}

	return m
}

func (m *metricsAggregator) Record(result *domain.BackupResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := &m.snapshot
	s.TotalBackups++
	s.LastBackupTime = time.Now()
	s.LastBackupStatus = result.Status

	if result.Status == domain.BackupStatusSuccess {
		s.SuccessfulBackups++
		s.ConsecutiveFailures = 0
		s.TotalArchiveBytes += result.ArchiveSize
		// 滚动平均: new_avg = old_avg + (d - old_avg) / n
		n := s.SuccessfulBackups
		s.AverageDuration += (result.Duration - s.AverageDuration) / time.Duration(n)

		m.backupsTotal.WithLabelValues("success").Inc()
		m.backupDuration.Observe(result.Duration.Seconds())
		m.archiveBytesTotal.Add(float64(result.ArchiveSize))
	} else {
		s.FailedBackups++
		s.ConsecutiveFailures++
		m.backupsTotal.WithLabelValues("failure").Inc()
	}

	if result.Verification != nil {
		if result.Verification.CorruptionDetected {
			s.CorruptedBackups++
			m.corruptionsTotal.Inc()
		}
		if !result.Verification.Valid {
			s.VerificationFailures++
			m.verifyFailures.Inc()
		}
	}

	if s.TotalBackups > 0 {
		s.SuccessRate = float64(s.SuccessfulBackups) / float64(s.TotalBackups)
	}
}

func (m *metricsAggregator) RecordScheduleFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot.ScheduleExecutionFailures++
}

func (m *metricsAggregator) SetDiskUsage(percent float64) {
	m.mu.Lock()
	m.snapshot.DiskUsagePercent = percent
	m.mu.Unlock()
	m.diskUsagePercent.Set(percent)
}

func (m *metricsAggregator) Snapshot() domain.MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}
