package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/craftops/game-backup-service/internal/domain"
	"github.com/craftops/game-backup-service/pkg/archive"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newVerifyEngine(t *testing.T) VerificationEngine {
	t.Helper()
	return NewVerificationEngine(NewWorldValidator(zap.NewNop()), t.TempDir(), 3, zap.NewNop())
}

func makeWorldArchive(t *testing.T) string {
	t.Helper()
	world := newWorldDir(t)
	dest := filepath.Join(t.TempDir(), "world.tar.gz")
	_, _, err := archive.Create(context.Background(), world, dest)
	require.NoError(t, err)
	return dest
}

func TestVerifyValidArchive(t *testing.T) {
	e := newVerifyEngine(t)
	report := e.Verify(context.Background(), makeWorldArchive(t), "", false)

	assert.True(t, report.Valid)
	assert.False(t, report.CorruptionDetected)
	assert.Len(t, report.Stages, 3)
	// playerdata/data 可选缺失只轻微扣分
	assert.GreaterOrEqual(t, report.Score, 90)
	assert.Equal(t, domain.QualityExcellent, report.Quality)
}

func TestVerifyWithRestoreProbe(t *testing.T) {
	e := newVerifyEngine(t)
	report := e.Verify(context.Background(), makeWorldArchive(t), "", true)

	assert.True(t, report.Valid)
	require.Len(t, report.Stages, 4)
	restore := report.Stages[3]
	assert.Equal(t, domain.StageRestore, restore.Stage)
	assert.True(t, restore.Passed)
}

func TestVerifyRestoreSamplesRegionFiles(t *testing.T) {
	world := newWorldDir(t)
	full := make([]byte, regionHeaderBytes+256)
	require.NoError(t, os.WriteFile(filepath.Join(world, "region", "r.0.0.mca"), full, 0644))
	dest := filepath.Join(t.TempDir(), "world.tar.gz")
	_, _, err := archive.Create(context.Background(), world, dest)
	require.NoError(t, err)

	e := newVerifyEngine(t)
	report := e.Verify(context.Background(), dest, "", true)

	assert.True(t, report.Valid)
	assert.True(t, report.Stages[3].Passed)
}

func TestVerifyRestoreDetectsTruncatedRegion(t *testing.T) {
	world := newWorldDir(t)
	// 区块文件不足 8 KiB 文件头，解包本身不会报错
	require.NoError(t, os.WriteFile(filepath.Join(world, "region", "r.0.0.mca"), []byte("stub"), 0644))
	dest := filepath.Join(t.TempDir(), "world.tar.gz")
	_, _, err := archive.Create(context.Background(), world, dest)
	require.NoError(t, err)

	e := newVerifyEngine(t)
	report := e.Verify(context.Background(), dest, "", true)

	assert.False(t, report.Valid)
	restore := report.Stages[3]
	assert.Equal(t, domain.StageRestore, restore.Stage)
	assert.False(t, restore.Passed)
	assert.Contains(t, restore.Message, "truncated")
}

func TestVerifyChecksumMismatch(t *testing.T) {
	e := newVerifyEngine(t)
	report := e.Verify(context.Background(), makeWorldArchive(t), "deadbeef", false)

	assert.False(t, report.Valid)
	assert.True(t, report.CorruptionDetected)
	assert.False(t, report.Stages[0].Passed)
	// 后续阶段仍然执行
	assert.True(t, report.Stages[1].Passed)
}

func TestVerifyZeroByteArchive(t *testing.T) {
	empty := filepath.Join(t.TempDir(), "empty.tar.gz")
	require.NoError(t, os.WriteFile(empty, nil, 0644))

	e := newVerifyEngine(t)
	report := e.Verify(context.Background(), empty, "", false)

	assert.False(t, report.Valid)
	assert.True(t, report.CorruptionDetected)
}

func TestVerifyUnopenableArchive(t *testing.T) {
	junk := filepath.Join(t.TempDir(), "junk.tar.gz")
	require.NoError(t, os.WriteFile(junk, []byte("this is not an archive"), 0644))

	e := newVerifyEngine(t)
	report := e.Verify(context.Background(), junk, "", false)

	assert.False(t, report.Valid)
	assert.True(t, report.CorruptionDetected)
	assert.Equal(t, domain.QualityCritical, domain.QualityForScore(0))
}

func TestVerifyMissingWorldEntries(t *testing.T) {
	// 归档内容不是存档结构
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "random.txt"), []byte("hello"), 0644))
	dest := filepath.Join(t.TempDir(), "random.tar.gz")
	_, _, err := archive.Create(context.Background(), dir, dest)
	require.NoError(t, err)

	e := newVerifyEngine(t)
	report := e.Verify(context.Background(), dest, "", false)

	assert.False(t, report.Valid)
	// 结构缺失不是损坏
	assert.False(t, report.CorruptionDetected)
	world := report.Stages[2]
	assert.Equal(t, domain.StageWorld, world.Stage)
	assert.False(t, world.Passed)
}

func TestRepairTruncatedArchive(t *testing.T) {
	src := makeWorldArchive(t)
	data, err := os.ReadFile(src)
	require.NoError(t, err)

	truncated := filepath.Join(t.TempDir(), "truncated.tar.gz")
	require.NoError(t, os.WriteFile(truncated, data[:len(data)*3/4], 0644))

	e := newVerifyEngine(t)
	report := e.Repair(context.Background(), truncated)

	assert.True(t, report.Attempted)
	assert.Contains(t, report.MethodsTried, "salvage-entries")
	if report.Succeeded {
		// 修复成功后归档必须通过完整性检查
		assert.Contains(t, report.MethodsTried, "replace-original")
		assert.NoError(t, archive.CheckIntegrity(truncated))
	}
}

func TestRepairNotAnArchive(t *testing.T) {
	junk := filepath.Join(t.TempDir(), "junk.tar.gz")
	require.NoError(t, os.WriteFile(junk, []byte("garbage"), 0644))

	e := newVerifyEngine(t)
	report := e.Repair(context.Background(), junk)

	assert.True(t, report.Attempted)
	assert.False(t, report.Succeeded)
	assert.NotEmpty(t, report.Errors)
}
