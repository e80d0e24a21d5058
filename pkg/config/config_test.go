package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Deleranax/ccpm/pkg/config"
)

func TestDefaultConfigHonoursDataDirEnv(t *testing.T) {
	t.Setenv("CCPM_DATA_DIR", "/srv/ccpm")

	cfg := config.DefaultConfig()
	assert.Equal(t, "/srv/ccpm", cfg.DataDir)
	assert.False(t, cfg.Debug)
}

func TestLoadConfigMissingFileReturnsDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), cfg)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := &config.Config{DataDir: "/data/ccpm", Debug: true}
	require.NoError(t, config.SaveConfig(cfg, path))

	_, err := os.Stat(path)
	require.NoError(t, err)

	loaded, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
