package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// writeArchiveAged 写入一个指定修改时间的归档文件
func writeArchiveAged(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("archive content"), 0644))
	mtime := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

func TestRetentionApplyRemovesExpired(t *testing.T) {
	dir := t.TempDir()
	old1 := writeArchiveAged(t, dir, "w_backup_20250101_000000.tar.gz", 20*24*time.Hour)
	old2 := writeArchiveAged(t, dir, "w_backup_20250201_000000.tar.gz", 15*24*time.Hour)
	fresh := writeArchiveAged(t, dir, "w_backup_20260829_000000.tar.gz", time.Hour)

	m := NewRetentionManager(DefaultRetentionConfig(), nil, nil, zap.NewNop())
	report := m.Apply(context.Background(), 1, dir, 7)

	assert.Equal(t, 3, report.Scanned)
	assert.Equal(t, 2, report.Removed)
	assert.NoFileExists(t, old1)
	assert.NoFileExists(t, old2)
	assert.FileExists(t, fresh)
}

func TestRetentionApplyIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeArchiveAged(t, dir, "a.tar.gz", 30*24*time.Hour)
	writeArchiveAged(t, dir, "b.tar.gz", time.Hour)

	m := NewRetentionManager(DefaultRetentionConfig(), nil, nil, zap.NewNop())
	first := m.Apply(context.Background(), 1, dir, 7)
	assert.Equal(t, 1, first.Removed)

	// 无新归档时第二次执行不应再删除
	second := m.Apply(context.Background(), 1, dir, 7)
	assert.Equal(t, 0, second.Removed)
}

func TestRetentionNeverDeletesLastArchive(t *testing.T) {
	dir := t.TempDir()
	only := writeArchiveAged(t, dir, "a.tar.gz", 100*24*time.Hour)

	m := NewRetentionManager(DefaultRetentionConfig(), nil, nil, zap.NewNop())
	report := m.Apply(context.Background(), 1, dir, 7)

	assert.Equal(t, 0, report.Removed)
	assert.FileExists(t, only)
}

func TestRetentionApplyMissingDir(t *testing.T) {
	m := NewRetentionManager(DefaultRetentionConfig(), nil, nil, zap.NewNop())
	report := m.Apply(context.Background(), 1, filepath.Join(t.TempDir(), "missing"), 7)
	assert.Equal(t, 0, report.Scanned)
	assert.Empty(t, report.Errors)
}

func TestEmergencyCleanupRemovesOldest(t *testing.T) {
	root := t.TempDir()
	targetDir := filepath.Join(root, "survival-world")
	oldest := writeArchiveAged(t, targetDir, "a.tar.gz", 96*time.Hour)
	writeArchiveAged(t, targetDir, "b.tar.gz", 72*time.Hour)
	writeArchiveAged(t, targetDir, "c.tar.gz", 48*time.Hour)
	writeArchiveAged(t, targetDir, "d.tar.gz", 24*time.Hour)

	// 首次探测 95%，删除一个后降到 80%
	calls := 0
	probe := func(path string) (float64, error) {
		calls++
		if calls == 1 {
			return 95, nil
		}
		return 80, nil
	}

	m := NewRetentionManager(DefaultRetentionConfig(), probe, nil, zap.NewNop())
	report := m.EmergencyCleanup(context.Background(), root)

	assert.True(t, report.Triggered)
	assert.Equal(t, 1, report.Removed)
	assert.NoFileExists(t, oldest)

	remaining, err := listArchives(targetDir)
	require.NoError(t, err)
	assert.Len(t, remaining, 3)
}

func TestEmergencyCleanupNotTriggered(t *testing.T) {
	root := t.TempDir()
	writeArchiveAged(t, filepath.Join(root, "w"), "a.tar.gz", 24*time.Hour)

	probe := func(path string) (float64, error) { return 50, nil }
	m := NewRetentionManager(DefaultRetentionConfig(), probe, nil, zap.NewNop())
	report := m.EmergencyCleanup(context.Background(), root)

	assert.False(t, report.Triggered)
	assert.Equal(t, 0, report.Removed)
}

func TestEmergencyCleanupPreservesMinRetained(t *testing.T) {
	root := t.TempDir()
	targetDir := filepath.Join(root, "w")
	keeper := writeArchiveAged(t, targetDir, "only.tar.gz", 240*time.Hour)

	// 水位始终超限，但唯一归档不可删除
	probe := func(path string) (float64, error) { return 97, nil }
	m := NewRetentionManager(DefaultRetentionConfig(), probe, nil, zap.NewNop())
	report := m.EmergencyCleanup(context.Background(), root)

	assert.True(t, report.Triggered)
	assert.Equal(t, 0, report.Removed)
	assert.FileExists(t, keeper)
}
