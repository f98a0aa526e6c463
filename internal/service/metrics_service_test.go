package service

import (
	"sync"
	"testing"
	"time"

	"github.com/craftops/game-backup-service/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func successResult(size int64, d time.Duration) *domain.BackupResult {
	return &domain.BackupResult{
		Status:      domain.BackupStatusSuccess,
		ArchiveSize: size,
		Duration:    d,
	}
}

func TestMetricsRecordSuccess(t *testing.T) {
	m := NewMetricsAggregator(prometheus.NewRegistry())

	m.Record(successResult(1000, 10*time.Second))
	m.Record(successResult(2000, 20*time.Second))

	s := m.Snapshot()
	assert.Equal(t, int64(2), s.TotalBackups)
	assert.Equal(t, int64(2), s.SuccessfulBackups)
	assert.Equal(t, int64(0), s.FailedBackups)
	assert.Equal(t, int64(3000), s.TotalArchiveBytes)
	assert.Equal(t, 1.0, s.SuccessRate)
	// 滚动平均 (10+20)/2
	assert.Equal(t, 15*time.Second, s.AverageDuration)
}

func TestMetricsRecordFailureAndRate(t *testing.T) {
	m := NewMetricsAggregator(prometheus.NewRegistry())

	m.Record(successResult(100, time.Second))
	m.Record(&domain.BackupResult{Status: domain.BackupStatusFailed})
	m.Record(&domain.BackupResult{Status: domain.BackupStatusFailed})

	s := m.Snapshot()
	assert.Equal(t, int64(3), s.TotalBackups)
	assert.Equal(t, int64(2), s.FailedBackups)
	assert.Equal(t, int64(2), s.ConsecutiveFailures)
	assert.InDelta(t, 1.0/3.0, s.SuccessRate, 0.001)

	// 成功后连续失败归零
	m.Record(successResult(100, time.Second))
	assert.Equal(t, int64(0), m.Snapshot().ConsecutiveFailures)
}

func TestMetricsVerificationCounters(t *testing.T) {
	m := NewMetricsAggregator(prometheus.NewRegistry())

	m.Record(&domain.BackupResult{
		Status: domain.BackupStatusFailed,
		Verification: &domain.VerificationReport{
			Valid:              false,
			CorruptionDetected: true,
		},
	})

	s := m.Snapshot()
	assert.Equal(t, int64(1), s.VerificationFailures)
	assert.Equal(t, int64(1), s.CorruptedBackups)
}

func TestMetricsScheduleFailureAndDisk(t *testing.T) {
	m := NewMetricsAggregator(prometheus.NewRegistry())

	m.RecordScheduleFailure()
	m.SetDiskUsage(87.5)

	s := m.Snapshot()
	assert.Equal(t, int64(1), s.ScheduleExecutionFailures)
	assert.Equal(t, 87.5, s.DiskUsagePercent)
}

func TestMetricsConcurrentRecord(t *testing.T) {
	m := NewMetricsAggregator(prometheus.NewRegistry())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Record(successResult(10, time.Second))
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), m.Snapshot().TotalBackups)
}
