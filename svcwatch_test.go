package svcwatch

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StoreDSN = "sqlite://" + filepath.Join(t.TempDir(), "cfg.db")

	eng, closeAll, err := New(cfg)
	require.NoError(t, err)
	require.NotNil(t, eng)
	defer closeAll()

	assert.Empty(t, eng.Folder())
}

func TestNewPersistsFolderFromConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.StoreDSN = "sqlite://" + filepath.Join(t.TempDir(), "cfg.db")
	cfg.FolderPath = dir

	eng, closeAll, err := New(cfg)
	require.NoError(t, err)
	defer closeAll()

	assert.Equal(t, dir, eng.Folder())
}

func TestRegisterMetricsIdempotent(t *testing.T) {
	require.NoError(t, RegisterMetrics())
	require.NoError(t, RegisterMetrics())
	assert.NotNil(t, MetricsHandler())
}
