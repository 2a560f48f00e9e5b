package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	assert.Equal(t, 9001, config.Server.Port)
	assert.Equal(t, 4, config.Analyzers.Concurrency)
	assert.Equal(t, "10m", config.Jobs.Cache)
	require.NoError(t, config.Validate())
}

func TestLoadFromFilesOverrides(t *testing.T) {
	dir := t.TempDir()

	base := filepath.Join(dir, "base.toml")
	require.NoError(t, os.WriteFile(base, []byte(`
[server]
port = 8000

[jobs]
cache = "30m"
`), 0644))

	override := filepath.Join(dir, "override.toml")
	require.NoError(t, os.WriteFile(override, []byte(`
[server]
port = 8080
`), 0644))

	config, err := LoadFromFiles(base, override)
	require.NoError(t, err)

	assert.Equal(t, 8080, config.Server.Port, "later file should win")
	assert.Equal(t, "30m", config.Jobs.Cache, "earlier file should survive where not overridden")
	assert.Equal(t, "localhost", config.Server.Host, "defaults should fill the rest")
}

func TestDurationOptions(t *testing.T) {
	config := NewDefaultConfig()

	config.Jobs.Cache = "1h"
	ttl, err := config.CacheTTL()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, ttl)

	config.Jobs.Cache = "0"
	ttl, err = config.CacheTTL()
	require.NoError(t, err)
	assert.Zero(t, ttl, "zero disables the cache")

	config.Jobs.Cache = "soon"
	_, err = config.CacheTTL()
	assert.Error(t, err)

	config.Jobs.Cache = "-5m"
	_, err = config.CacheTTL()
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SCRUTOR_SERVER_PORT", "7777")
	t.Setenv("SCRUTOR_JOB_CACHE", "2h")

	config, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, 7777, config.Server.Port)
	assert.Equal(t, "2h", config.Jobs.Cache)
}

func TestValidateRejectsBadPort(t *testing.T) {
	config := NewDefaultConfig()
	config.Server.Port = 99999
	assert.Error(t, config.Validate())
}

func TestApplyFlagOverrides(t *testing.T) {
	config := NewDefaultConfig()

	ApplyFlagOverrides(config, 1234, "0.0.0.0")
	assert.Equal(t, 1234, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)

	// Zero values leave the config untouched
	ApplyFlagOverrides(config, 0, "")
	assert.Equal(t, 1234, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)
}
