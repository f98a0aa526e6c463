package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWorldFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "region"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "level.dat"), []byte("level data"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "session.lock"), []byte{0}, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "region", "r.0.0.mca"), []byte("region chunk data"), 0644))
	return dir
}

func TestCreateAndList(t *testing.T) {
	src := writeWorldFixture(t)
	dest := filepath.Join(t.TempDir(), "world.tar.gz")

	count, size, err := Create(context.Background(), src, dest)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Greater(t, size, int64(0))

	entries, err := List(dest)
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	assert.Contains(t, names, "level.dat")
	assert.Contains(t, names, "region/r.0.0.mca")
}

func TestCreateSourceNotDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	_, _, err := Create(context.Background(), file, filepath.Join(t.TempDir(), "out.tar.gz"))
	assert.Error(t, err)
}

func TestExtractRoundTrip(t *testing.T) {
	src := writeWorldFixture(t)
	dest := filepath.Join(t.TempDir(), "world.tar.gz")

	_, _, err := Create(context.Background(), src, dest)
	require.NoError(t, err)

	restore := t.TempDir()
	require.NoError(t, Extract(context.Background(), dest, restore))

	data, err := os.ReadFile(filepath.Join(restore, "region", "r.0.0.mca"))
	require.NoError(t, err)
	assert.Equal(t, []byte("region chunk data"), data)
}

func TestExtractFile(t *testing.T) {
	src := writeWorldFixture(t)
	dest := filepath.Join(t.TempDir(), "world.tar.gz")

	_, _, err := Create(context.Background(), src, dest)
	require.NoError(t, err)

	data, err := ExtractFile(dest, "level.dat")
	require.NoError(t, err)
	assert.Equal(t, []byte("level data"), data)

	_, err = ExtractFile(dest, "missing.dat")
	assert.Error(t, err)
}

func TestCheckMagic(t *testing.T) {
	src := writeWorldFixture(t)
	dest := filepath.Join(t.TempDir(), "world.tar.gz")

	_, _, err := Create(context.Background(), src, dest)
	require.NoError(t, err)
	assert.NoError(t, CheckMagic(dest))

	// 非 gzip 文件应被拒绝
	fake := filepath.Join(t.TempDir(), "fake.tar.gz")
	require.NoError(t, os.WriteFile(fake, []byte("not a gzip file"), 0644))
	assert.Error(t, CheckMagic(fake))

	// 零字节文件应被拒绝
	empty := filepath.Join(t.TempDir(), "empty.tar.gz")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	assert.Error(t, CheckMagic(empty))
}

func TestCheckIntegrityTruncated(t *testing.T) {
	src := writeWorldFixture(t)
	dest := filepath.Join(t.TempDir(), "world.tar.gz")

	_, _, err := Create(context.Background(), src, dest)
	require.NoError(t, err)
	require.NoError(t, CheckIntegrity(dest))

	// 截断归档后完整性检查应失败
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	truncated := filepath.Join(t.TempDir(), "truncated.tar.gz")
	require.NoError(t, os.WriteFile(truncated, data[:len(data)/2], 0644))
	assert.Error(t, CheckIntegrity(truncated))
}
