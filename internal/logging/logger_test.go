package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetState(t *testing.T) {
	t.Cleanup(func() {
		CloseAll()
		enabled = false
		logsDir = ""
		jsonFormat = false
		logLevel = LevelInfo
	})
}

func TestInitializeSilentCreatesNoFiles(t *testing.T) {
	resetState(t)
	dir := t.TempDir()
	require.NoError(t, Initialize(dir, "silent"))
	assert.False(t, IsEnabled())

	Get(CategoryBoot).Info("should not be written")
	_, err := os.Stat(filepath.Join(dir, "logs"))
	assert.True(t, os.IsNotExist(err))
}

func TestInitializeSummaryWritesInfoNotDebug(t *testing.T) {
	resetState(t)
	dir := t.TempDir()
	require.NoError(t, Initialize(dir, "summary"))

	Get(CategoryExecutor).Debug("hidden")
	Get(CategoryExecutor).Info("visible")

	data, err := os.ReadFile(filepath.Join(dir, "logs", "executor.log"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "visible")
}

func TestInitializeFullUsesJSON(t *testing.T) {
	resetState(t)
	dir := t.TempDir()
	require.NoError(t, Initialize(dir, "full"))

	Get(CategoryPlanner).Debug("plateau detected")
	data, err := os.ReadFile(filepath.Join(dir, "logs", "planner.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"plateau detected"`)
}

func TestGetWithoutInitializeIsNoop(t *testing.T) {
	resetState(t)
	l := Get(CategoryBoot)
	assert.NotPanics(t, func() { l.Info("no-op") })
}
