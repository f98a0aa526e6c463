package service

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/craftops/game-backup-service/internal/domain"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memTargetRepo 内存目标仓储
type memTargetRepo struct {
	targets    map[int64]*domain.Target
	lastStatus int
	lastPID    int32
}

func newMemTargetRepo(targets ...*domain.Target) *memTargetRepo {
	r := &memTargetRepo{targets: make(map[int64]*domain.Target)}
	for _, t := range targets {
		r.targets[t.ID] = t
	}
	return r
}

func (r *memTargetRepo) GetByID(_ context.Context, id int64) (*domain.Target, error) {
	return r.targets[id], nil
}

func (r *memTargetRepo) GetByName(_ context.Context, name string) (*domain.Target, error) {
	for _, t := range r.targets {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, nil
}

func (r *memTargetRepo) Create(_ context.Context, target *domain.Target) (*domain.Target, error) {
	r.targets[target.ID] = target
	return target, nil
}

func (r *memTargetRepo) Update(_ context.Context, target *domain.Target) (*domain.Target, error) {
	r.targets[target.ID] = target
	return target, nil
}

func (r *memTargetRepo) SetStatus(_ context.Context, id int64, status int, pid int32) error {
	r.lastStatus = status
	r.lastPID = pid
	return nil
}

func (r *memTargetRepo) Delete(_ context.Context, id int64) error {
	delete(r.targets, id)
	return nil
}

func (r *memTargetRepo) List(_ context.Context) ([]*domain.Target, error) {
	var out []*domain.Target
	for _, t := range r.targets {
		out = append(out, t)
	}
	return out, nil
}

func (r *memTargetRepo) ListEnabled(ctx context.Context) ([]*domain.Target, error) {
	return r.List(ctx)
}

// memScheduleRepo 内存计划仓储，记录 last_run 回写
type memScheduleRepo struct {
	schedules      map[int64]*domain.BackupSchedule
	lastRunID      int64
	lastRunStatus  int
	lastRunMessage string
	lastRunCalls   int
}

func newMemScheduleRepo(schedules ...*domain.BackupSchedule) *memScheduleRepo {
	r := &memScheduleRepo{schedules: make(map[int64]*domain.BackupSchedule)}
	for _, s := range schedules {
		r.schedules[s.ID] = s
	}
	return r
}

func (r *memScheduleRepo) GetByID(_ context.Context, id int64) (*domain.BackupSchedule, error) {
	return r.schedules[id], nil
}

func (r *memScheduleRepo) GetByTargetID(_ context.Context, targetID int64) (*domain.BackupSchedule, error) {
	for _, s := range r.schedules {
		if s.TargetID == targetID {
			return s, nil
		}
	}
	return nil, nil
}

func (r *memScheduleRepo) Create(_ context.Context, schedule *domain.BackupSchedule) (*domain.BackupSchedule, error) {
	r.schedules[schedule.ID] = schedule
	return schedule, nil
}

func (r *memScheduleRepo) Update(_ context.Context, schedule *domain.BackupSchedule) (*domain.BackupSchedule, error) {
	r.schedules[schedule.ID] = schedule
	return schedule, nil
}

func (r *memScheduleRepo) UpdateLastRun(_ context.Context, id int64, status int, message string) error {
	r.lastRunID = id
	r.lastRunStatus = status
	r.lastRunMessage = message
	r.lastRunCalls++
	return nil
}

func (r *memScheduleRepo) Delete(_ context.Context, id int64) error {
	delete(r.schedules, id)
	return nil
}

func (r *memScheduleRepo) List(_ context.Context) ([]*domain.BackupSchedule, error) {
	var out []*domain.BackupSchedule
	for _, s := range r.schedules {
		out = append(out, s)
	}
	return out, nil
}

func (r *memScheduleRepo) ListEnabled(ctx context.Context) ([]*domain.BackupSchedule, error) {
	return r.List(ctx)
}

// memHistoryRepo 内存历史仓储
type memHistoryRepo struct {
	records []*domain.BackupHistory
}

func (r *memHistoryRepo) Create(_ context.Context, history *domain.BackupHistory) (*domain.BackupHistory, error) {
	r.records = append(r.records, history)
	return history, nil
}

func (r *memHistoryRepo) GetByID(_ context.Context, id int64) (*domain.BackupHistory, error) {
	return nil, nil
}

func (r *memHistoryRepo) ListByTarget(_ context.Context, targetID int64, page, pageSize int) ([]*domain.BackupHistory, error) {
	return r.records, nil
}

func (r *memHistoryRepo) CountByTarget(_ context.Context, targetID int64) (int64, error) {
	return int64(len(r.records)), nil
}

func (r *memHistoryRepo) DeleteByFilePath(_ context.Context, filePath string) error {
	return nil
}

// fakeProcess 可编程进程控制器
type fakeProcess struct {
	running     bool
	pid         int32
	stopErr     error
	startErr    error
	stopCalled  int
	startCalled int
}

func (p *fakeProcess) IsRunning(_ context.Context, target *domain.Target) (bool, int32) {
	return p.running, p.pid
}

func (p *fakeProcess) Stop(_ context.Context, target *domain.Target) error {
	p.stopCalled++
	return p.stopErr
}

func (p *fakeProcess) Start(_ context.Context, target *domain.Target) (int32, error) {
	p.startCalled++
	if p.startErr != nil {
		return 0, p.startErr
	}
	return p.pid + 1, nil
}

// fakeVerifier 返回固定验证结论
type fakeVerifier struct {
	valid  bool
	digest string
}

func (v *fakeVerifier) Verify(_ context.Context, archivePath string, _ string, _ bool) *domain.VerificationReport {
	report := &domain.VerificationReport{
		ArchivePath: archivePath,
		Valid:       v.valid,
		VerifiedAt:  time.Now(),
	}
	if v.valid {
		report.Score = 100
		report.Quality = domain.QualityExcellent
	} else {
		report.Score = 20
		report.Quality = domain.QualityCritical
		report.CorruptionDetected = true
	}
	report.Stages = append(report.Stages, domain.StageResult{
		Stage:  domain.StageChecksum,
		Passed: v.valid,
		Digest: v.digest,
	})
	return report
}

func (v *fakeVerifier) Repair(_ context.Context, archivePath string) *domain.RepairReport {
	return &domain.RepairReport{}
}

// nopRetention 不做任何清理
type nopRetention struct {
	applyCalled int
}

func (m *nopRetention) Apply(_ context.Context, targetID int64, backupDir string, retentionDays int) *domain.RetentionReport {
	m.applyCalled++
	return &domain.RetentionReport{TargetID: targetID}
}

func (m *nopRetention) EmergencyCleanup(_ context.Context, backupRoot string) *domain.RetentionReport {
	return &domain.RetentionReport{}
}

func newTestExecutor(t *testing.T, targetRepo domain.TargetRepository, scheduleRepo domain.ScheduleRepository, historyRepo domain.HistoryRepository, verifier VerificationEngine, process ProcessController, retention RetentionManager, opts ...ExecutorOption) BackupExecutor {
	t.Helper()
	cfg := BackupExecutorConfig{BackupRoot: t.TempDir(), MaxRetries: 3}
	base := []ExecutorOption{
		WithBackoff(func(int) time.Duration { return 0 }),
		WithArchiveFunc(func(_ context.Context, srcDir, destPath string) (int, int64, error) {
			if err := os.WriteFile(destPath, []byte("archive"), 0644); err != nil {
				return 0, 0, err
			}
			return 3, 7, nil
		}),
	}
	return NewBackupExecutor(cfg, targetRepo, scheduleRepo, historyRepo, verifier, process, retention,
		NewMetricsAggregator(nil), nil, zap.NewNop(), append(base, opts...)...)
}

func TestExecuteTargetNotFound(t *testing.T) {
	exec := newTestExecutor(t, newMemTargetRepo(), newMemScheduleRepo(), &memHistoryRepo{},
		&fakeVerifier{valid: true}, &fakeProcess{}, &nopRetention{})

	result := exec.Execute(context.Background(), 42, 0, domain.TriggerManual)

	assert.Equal(t, domain.BackupStatusFailed, result.Status)
	assert.Contains(t, result.Message, "not found")
	assert.Equal(t, 0, result.Attempts)
}

func TestExecuteStopsAndRestartsRunningTarget(t *testing.T) {
	target := &domain.Target{ID: 1, Name: "survival", WorldPath: t.TempDir()}
	targetRepo := newMemTargetRepo(target)
	process := &fakeProcess{running: true, pid: 1000}

	exec := newTestExecutor(t, targetRepo, newMemScheduleRepo(), &memHistoryRepo{},
		&fakeVerifier{valid: true, digest: "abc123"}, process, &nopRetention{})

	result := exec.Execute(context.Background(), 1, 0, domain.TriggerManual)

	assert.Equal(t, domain.BackupStatusSuccess, result.Status)
	assert.True(t, result.WasTargetRunning)
	assert.Equal(t, 1, process.stopCalled)
	assert.Equal(t, 1, process.startCalled)
	assert.Equal(t, domain.ProcessStatusRunning, targetRepo.lastStatus)
	assert.Equal(t, "abc123", result.Checksum)
}

func TestExecuteRetriesWithBackoff(t *testing.T) {
	target := &domain.Target{ID: 1, Name: "survival", WorldPath: t.TempDir()}
	calls := 0

	exec := newTestExecutor(t, newMemTargetRepo(target), newMemScheduleRepo(), &memHistoryRepo{},
		&fakeVerifier{valid: true}, &fakeProcess{}, &nopRetention{},
		WithArchiveFunc(func(_ context.Context, srcDir, destPath string) (int, int64, error) {
			calls++
			if calls < 3 {
				return 0, 0, errors.New("disk hiccup")
			}
			if err := os.WriteFile(destPath, []byte("archive"), 0644); err != nil {
				return 0, 0, err
			}
			return 10, 128, nil
		}))

	result := exec.Execute(context.Background(), 1, 3, domain.TriggerManual)

	assert.Equal(t, domain.BackupStatusSuccess, result.Status)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, 10, result.FileCount)
}

func TestExecuteFailsAfterMaxRetries(t *testing.T) {
	target := &domain.Target{ID: 1, Name: "survival", WorldPath: t.TempDir()}
	calls := 0

	exec := newTestExecutor(t, newMemTargetRepo(target), newMemScheduleRepo(), &memHistoryRepo{},
		&fakeVerifier{valid: true}, &fakeProcess{}, &nopRetention{},
		WithArchiveFunc(func(_ context.Context, srcDir, destPath string) (int, int64, error) {
			calls++
			return 0, 0, errors.New("disk full")
		}))

	result := exec.Execute(context.Background(), 1, 3, domain.TriggerManual)

	assert.Equal(t, domain.BackupStatusFailed, result.Status)
	assert.Equal(t, 3, calls)
	assert.Contains(t, result.Message, "3 attempts")
}

func TestExecuteDeletesInvalidArchive(t *testing.T) {
	target := &domain.Target{ID: 1, Name: "survival", WorldPath: t.TempDir()}
	var archivePath string

	exec := newTestExecutor(t, newMemTargetRepo(target), newMemScheduleRepo(), &memHistoryRepo{},
		&fakeVerifier{valid: false}, &fakeProcess{}, &nopRetention{},
		WithArchiveFunc(func(_ context.Context, srcDir, destPath string) (int, int64, error) {
			archivePath = destPath
			if err := os.WriteFile(destPath, []byte("corrupt"), 0644); err != nil {
				return 0, 0, err
			}
			return 1, 7, nil
		}))

	result := exec.Execute(context.Background(), 1, 0, domain.TriggerManual)

	assert.Equal(t, domain.BackupStatusFailed, result.Status)
	assert.Empty(t, result.ArchivePath)
	assert.NoFileExists(t, archivePath)
}

func TestExecuteUpdatesLastRunOnFailure(t *testing.T) {
	target := &domain.Target{ID: 1, Name: "survival", WorldPath: t.TempDir()}
	schedule := &domain.BackupSchedule{ID: 9, TargetID: 1, Type: domain.ScheduleDaily, RetentionDays: 7}
	scheduleRepo := newMemScheduleRepo(schedule)

	exec := newTestExecutor(t, newMemTargetRepo(target), scheduleRepo, &memHistoryRepo{},
		&fakeVerifier{valid: true}, &fakeProcess{}, &nopRetention{},
		WithArchiveFunc(func(_ context.Context, srcDir, destPath string) (int, int64, error) {
			return 0, 0, errors.New("disk full")
		}))

	result := exec.Execute(context.Background(), 1, 1, domain.TriggerScheduled)

	assert.Equal(t, domain.BackupStatusFailed, result.Status)
	assert.Equal(t, 1, scheduleRepo.lastRunCalls)
	assert.Equal(t, int64(9), scheduleRepo.lastRunID)
	assert.Equal(t, domain.BackupStatusFailed, scheduleRepo.lastRunStatus)
}

func TestExecuteRetentionOnlyAfterSuccess(t *testing.T) {
	target := &domain.Target{ID: 1, Name: "survival", WorldPath: t.TempDir()}
	schedule := &domain.BackupSchedule{ID: 9, TargetID: 1, Type: domain.ScheduleDaily, RetentionDays: 7}
	retention := &nopRetention{}

	exec := newTestExecutor(t, newMemTargetRepo(target), newMemScheduleRepo(schedule), &memHistoryRepo{},
		&fakeVerifier{valid: false}, &fakeProcess{}, retention)
	result := exec.Execute(context.Background(), 1, 0, domain.TriggerManual)
	require.Equal(t, domain.BackupStatusFailed, result.Status)
	assert.Equal(t, 0, retention.applyCalled)

	exec = newTestExecutor(t, newMemTargetRepo(target), newMemScheduleRepo(schedule), &memHistoryRepo{},
		&fakeVerifier{valid: true}, &fakeProcess{}, retention)
	result = exec.Execute(context.Background(), 1, 0, domain.TriggerManual)
	require.Equal(t, domain.BackupStatusSuccess, result.Status)
	assert.Equal(t, 1, retention.applyCalled)
}

func TestExecuteRefusesAtDiskEmergency(t *testing.T) {
	target := &domain.Target{ID: 1, Name: "survival", WorldPath: t.TempDir()}
	process := &fakeProcess{running: true, pid: 1000}

	cfg := BackupExecutorConfig{BackupRoot: t.TempDir(), MaxRetries: 3, DiskEmergencyPercent: 95}
	exec := NewBackupExecutor(cfg, newMemTargetRepo(target), newMemScheduleRepo(), &memHistoryRepo{},
		&fakeVerifier{valid: true}, process, &nopRetention{},
		NewMetricsAggregator(nil), nil, zap.NewNop(),
		WithBackoff(func(int) time.Duration { return 0 }),
		WithDiskUsage(func(string) (float64, error) { return 97.5, nil }))

	result := exec.Execute(context.Background(), 1, 0, domain.TriggerManual)

	assert.Equal(t, domain.BackupStatusFailed, result.Status)
	assert.ErrorIs(t, result.Cause, ErrDiskSpace)
	assert.Contains(t, result.Message, "97.5")
	// 磁盘拒绝发生在停进程之前，目标进程不受影响
	assert.Equal(t, 0, process.stopCalled)
}

func TestExecuteSkipsWhenAlreadyRunning(t *testing.T) {
	target := &domain.Target{ID: 1, Name: "survival", WorldPath: t.TempDir()}

	exec := newTestExecutor(t, newMemTargetRepo(target), newMemScheduleRepo(), &memHistoryRepo{},
		&fakeVerifier{valid: true}, &fakeProcess{}, &nopRetention{})
	exec.(*backupExecutor).running[1] = true

	result := exec.Execute(context.Background(), 1, 0, domain.TriggerManual)

	assert.Equal(t, domain.BackupStatusFailed, result.Status)
	assert.Contains(t, result.Message, "already running")
}

func TestExecuteRecordsHistory(t *testing.T) {
	target := &domain.Target{ID: 1, Name: "survival", WorldPath: t.TempDir()}
	history := &memHistoryRepo{}

	exec := newTestExecutor(t, newMemTargetRepo(target), newMemScheduleRepo(), history,
		&fakeVerifier{valid: true, digest: "deadbeef"}, &fakeProcess{}, &nopRetention{})

	result := exec.Execute(context.Background(), 1, 0, domain.TriggerCatchup)
	require.Equal(t, domain.BackupStatusSuccess, result.Status)

	require.Len(t, history.records, 1)
	record := history.records[0]
	assert.Equal(t, domain.TriggerCatchup, record.Trigger)
	assert.Equal(t, "deadbeef", record.Checksum)
	assert.Equal(t, 100, record.Score)
}
