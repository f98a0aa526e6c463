package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSHA256(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "level.dat")
	content := []byte("minecraft world data")
	require.NoError(t, os.WriteFile(path, content, 0644))

	want := sha256.Sum256(content)

	got, err := FileSHA256(path)
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(want[:]), got)
}

func TestFileSHA256NotExist(t *testing.T) {
	_, err := FileSHA256(filepath.Join(t.TempDir(), "missing.dat"))
	assert.Error(t, err)
}

func TestFileSHA256Tamper(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "region.mca")
	require.NoError(t, os.WriteFile(path, []byte("region data"), 0644))

	digest, err := FileSHA256(path)
	require.NoError(t, err)

	// 文件被篡改后摘要必须变化
	require.NoError(t, os.WriteFile(path, []byte("tampered"), 0644))
	changed, err := FileSHA256(path)
	require.NoError(t, err)
	assert.NotEqual(t, digest, changed)
}
