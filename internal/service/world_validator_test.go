package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newWorldDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "region"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "level.dat"), []byte("level data"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "session.lock"), []byte{0}, 0644))
	return dir
}

func TestWorldValidatorValid(t *testing.T) {
	v := NewWorldValidator(zap.NewNop())

	result, err := v.Validate(newWorldDir(t))
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Empty(t, result.MissingEntries)
	assert.Empty(t, result.EmptyFiles)
	// playerdata 与 data 缺失只记为可选缺失
	assert.Contains(t, result.MissingOptional, "playerdata")
}

func TestWorldValidatorMissingLevelDat(t *testing.T) {
	dir := newWorldDir(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "level.dat")))

	v := NewWorldValidator(zap.NewNop())
	result, err := v.Validate(dir)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Contains(t, result.MissingEntries, "level.dat")
}

func TestWorldValidatorEmptyLevelDat(t *testing.T) {
	dir := newWorldDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "level.dat"), nil, 0644))

	v := NewWorldValidator(zap.NewNop())
	result, err := v.Validate(dir)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Contains(t, result.EmptyFiles, "level.dat")
}

func TestWorldValidatorMissingRegionDir(t *testing.T) {
	dir := newWorldDir(t)
	require.NoError(t, os.RemoveAll(filepath.Join(dir, "region")))

	v := NewWorldValidator(zap.NewNop())
	result, err := v.Validate(dir)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Contains(t, result.MissingEntries, "region")
}

func TestWorldValidatorNotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	v := NewWorldValidator(zap.NewNop())
	_, err := v.Validate(file)
	assert.Error(t, err)
}
