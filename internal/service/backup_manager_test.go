package service

import (
	"context"
	"testing"
	"time"

	"github.com/craftops/game-backup-service/internal/domain"
	"github.com/craftops/game-backup-service/pkg/code"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// errRetention 清理报告中带删除失败
type errRetention struct{}

func (m *errRetention) Apply(_ context.Context, targetID int64, backupDir string, retentionDays int) *domain.RetentionReport {
	return &domain.RetentionReport{
		TargetID: targetID,
		Scanned:  2,
		Errors:   []string{"remove old.tar.gz: permission denied"},
	}
}

func (m *errRetention) EmergencyCleanup(_ context.Context, backupRoot string) *domain.RetentionReport {
	return &domain.RetentionReport{}
}

func newTestManager(t *testing.T, executor BackupExecutor, retention RetentionManager, targetRepo domain.TargetRepository, scheduleRepo domain.ScheduleRepository) BackupManager {
	t.Helper()
	return NewBackupManager(t.TempDir(), executor, &fakeVerifier{valid: true}, retention,
		targetRepo, scheduleRepo, &memHistoryRepo{}, zap.NewNop())
}

func TestExecuteBackupMapsTargetNotFound(t *testing.T) {
	targetRepo := newMemTargetRepo()
	scheduleRepo := newMemScheduleRepo()
	exec := newTestExecutor(t, targetRepo, scheduleRepo, &memHistoryRepo{},
		&fakeVerifier{valid: true}, &fakeProcess{}, &nopRetention{})
	m := newTestManager(t, exec, &nopRetention{}, targetRepo, scheduleRepo)

	_, cerr := m.ExecuteBackup(context.Background(), 42)

	require.NotNil(t, cerr)
	assert.Equal(t, code.ErrorTargetNotFound.Code(), cerr.Code())
}

func TestExecuteBackupMapsVerificationFailure(t *testing.T) {
	target := &domain.Target{ID: 1, Name: "survival", WorldPath: t.TempDir()}
	targetRepo := newMemTargetRepo(target)
	scheduleRepo := newMemScheduleRepo()
	exec := newTestExecutor(t, targetRepo, scheduleRepo, &memHistoryRepo{},
		&fakeVerifier{valid: false}, &fakeProcess{}, &nopRetention{})
	m := newTestManager(t, exec, &nopRetention{}, targetRepo, scheduleRepo)

	out, cerr := m.ExecuteBackup(context.Background(), 1)

	require.NotNil(t, cerr)
	assert.Equal(t, code.ErrorVerificationFailed.Code(), cerr.Code())
	assert.Equal(t, domain.BackupStatusFailed, out.Status)
}

func TestExecuteBackupMapsProcessStopFailure(t *testing.T) {
	target := &domain.Target{ID: 1, Name: "survival", WorldPath: t.TempDir()}
	targetRepo := newMemTargetRepo(target)
	scheduleRepo := newMemScheduleRepo()
	process := &fakeProcess{running: true, pid: 1000, stopErr: errors.New("sigterm timeout")}
	exec := newTestExecutor(t, targetRepo, scheduleRepo, &memHistoryRepo{},
		&fakeVerifier{valid: true}, process, &nopRetention{})
	m := newTestManager(t, exec, &nopRetention{}, targetRepo, scheduleRepo)

	_, cerr := m.ExecuteBackup(context.Background(), 1)

	require.NotNil(t, cerr)
	assert.Equal(t, code.ErrorProcessControl.Code(), cerr.Code())
}

func TestExecuteBackupMapsArchiveCreateFailure(t *testing.T) {
	target := &domain.Target{ID: 1, Name: "survival", WorldPath: t.TempDir()}
	targetRepo := newMemTargetRepo(target)
	scheduleRepo := newMemScheduleRepo()
	exec := newTestExecutor(t, targetRepo, scheduleRepo, &memHistoryRepo{},
		&fakeVerifier{valid: true}, &fakeProcess{}, &nopRetention{},
		WithArchiveFunc(func(_ context.Context, srcDir, destPath string) (int, int64, error) {
			return 0, 0, errors.New("disk hiccup")
		}))
	m := newTestManager(t, exec, &nopRetention{}, targetRepo, scheduleRepo)

	_, cerr := m.ExecuteBackup(context.Background(), 1)

	require.NotNil(t, cerr)
	assert.Equal(t, code.ErrorArchiveCreate.Code(), cerr.Code())
}

func TestExecuteBackupMapsDiskEmergency(t *testing.T) {
	target := &domain.Target{ID: 1, Name: "survival", WorldPath: t.TempDir()}
	targetRepo := newMemTargetRepo(target)
	scheduleRepo := newMemScheduleRepo()

	cfg := BackupExecutorConfig{BackupRoot: t.TempDir(), MaxRetries: 3, DiskEmergencyPercent: 95}
	exec := NewBackupExecutor(cfg, targetRepo, scheduleRepo, &memHistoryRepo{},
		&fakeVerifier{valid: true}, &fakeProcess{}, &nopRetention{},
		NewMetricsAggregator(nil), nil, zap.NewNop(),
		WithBackoff(func(int) time.Duration { return 0 }),
		WithDiskUsage(func(string) (float64, error) { return 99, nil }))
	m := newTestManager(t, exec, &nopRetention{}, targetRepo, scheduleRepo)

	_, cerr := m.ExecuteBackup(context.Background(), 1)

	require.NotNil(t, cerr)
	assert.Equal(t, code.ErrorDiskSpaceLow.Code(), cerr.Code())
}

func TestExecuteBackupMapsAlreadyRunning(t *testing.T) {
	target := &domain.Target{ID: 1, Name: "survival", WorldPath: t.TempDir()}
	targetRepo := newMemTargetRepo(target)
	scheduleRepo := newMemScheduleRepo()
	exec := newTestExecutor(t, targetRepo, scheduleRepo, &memHistoryRepo{},
		&fakeVerifier{valid: true}, &fakeProcess{}, &nopRetention{})
	exec.(*backupExecutor).running[1] = true
	m := newTestManager(t, exec, &nopRetention{}, targetRepo, scheduleRepo)

	_, cerr := m.ExecuteBackup(context.Background(), 1)

	require.NotNil(t, cerr)
	assert.Equal(t, code.ErrorBackupRunning.Code(), cerr.Code())
}

func TestCleanupReportsRetentionErrors(t *testing.T) {
	target := &domain.Target{ID: 1, Name: "survival", WorldPath: t.TempDir()}
	targetRepo := newMemTargetRepo(target)
	scheduleRepo := newMemScheduleRepo(&domain.BackupSchedule{ID: 10, TargetID: 1, Type: domain.ScheduleDaily, RetentionDays: 7})
	exec := newTestExecutor(t, targetRepo, scheduleRepo, &memHistoryRepo{},
		&fakeVerifier{valid: true}, &fakeProcess{}, &nopRetention{})
	m := newTestManager(t, exec, &errRetention{}, targetRepo, scheduleRepo)

	reports, cerr := m.Cleanup(context.Background(), 1)

	require.NotNil(t, cerr)
	assert.Equal(t, code.ErrorRetentionCleanup.Code(), cerr.Code())
	// 报告仍然返回，错误明细在 code 中
	require.Len(t, reports, 1)
	assert.Equal(t, 2, reports[0].Scanned)
}

func TestCleanupCleanRun(t *testing.T) {
	target := &domain.Target{ID: 1, Name: "survival", WorldPath: t.TempDir()}
	targetRepo := newMemTargetRepo(target)
	scheduleRepo := newMemScheduleRepo(&domain.BackupSchedule{ID: 10, TargetID: 1, Type: domain.ScheduleDaily, RetentionDays: 7})
	retention := &nopRetention{}
	exec := newTestExecutor(t, targetRepo, scheduleRepo, &memHistoryRepo{},
		&fakeVerifier{valid: true}, &fakeProcess{}, retention)
	m := newTestManager(t, exec, retention, targetRepo, scheduleRepo)

	reports, cerr := m.Cleanup(context.Background(), 1)

	require.Nil(t, cerr)
	require.Len(t, reports, 1)
	assert.Equal(t, 1, retention.applyCalled)
}
