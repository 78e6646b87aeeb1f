package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, "geoknn.yaml", `
server:
  addr: "127.0.0.1:9000"
  mode: debug
  read_timeout: 3s
index:
  chunk_size: 256
  memory_limit_bytes: 1048576
  max_concurrent_queries: 2
log:
  level: debug
  format: text
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	// untouched keys keep their defaults
	assert.Equal(t, 10*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 256, cfg.Index.ChunkSize)
	assert.Equal(t, int64(1<<20), cfg.Index.MemoryLimitBytes)
	assert.Equal(t, int64(2), cfg.Index.MaxConcurrentQueries)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Len(t, cfg.Index.Options(), 4)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeFile(t, "geoknn.yaml", "server:\n  addr: \":7000\"\n")

	t.Setenv("GEOKNN_ADDR", ":7001")
	t.Setenv("GEOKNN_MEMORY_LIMIT_BYTES", "4096")
	t.Setenv("GEOKNN_INSERTS_PER_SEC", "12.5")
	t.Setenv("GEOKNN_SHUTDOWN_TIMEOUT", "1m")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7001", cfg.Server.Addr)
	assert.Equal(t, int64(4096), cfg.Index.MemoryLimitBytes)
	assert.Equal(t, 12.5, cfg.Index.InsertsPerSec)
	assert.Equal(t, time.Minute, cfg.Server.ShutdownTimeout)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("bad yaml", func(t *testing.T) {
		_, err := Load(writeFile(t, "bad.yaml", "server: [unterminated"))
		assert.ErrorContains(t, err, "config: parse")
	})

	t.Run("bad env", func(t *testing.T) {
		t.Setenv("GEOKNN_CHUNK_SIZE", "lots")
		_, err := Load("")
		assert.ErrorContains(t, err, "GEOKNN_CHUNK_SIZE")
	})

	t.Run("invalid values", func(t *testing.T) {
		_, err := Load(writeFile(t, "invalid.yaml", `
server:
  mode: turbo
index:
  memory_limit_bytes: -1
log:
  level: loud
  format: xml
`))
		require.Error(t, err)
		for _, want := range []string{"server.mode", "memory_limit_bytes", "log.level", "log.format"} {
			assert.ErrorContains(t, err, want)
		}
	})
}

func TestValidate_Timeouts(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"zero shutdown", func(c *Config) { c.Server.ShutdownTimeout = 0 }, "server.shutdown_timeout"},
		{"negative shutdown", func(c *Config) { c.Server.ShutdownTimeout = -time.Second }, "server.shutdown_timeout"},
		{"negative read", func(c *Config) { c.Server.ReadTimeout = -time.Second }, "server.read_timeout"},
		{"negative write", func(c *Config) { c.Server.WriteTimeout = -time.Second }, "server.write_timeout"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tc.want)
		})
	}

	t.Run("zero read and write disable the limit", func(t *testing.T) {
		cfg := Default()
		cfg.Server.ReadTimeout = 0
		cfg.Server.WriteTimeout = 0
		assert.NoError(t, cfg.Validate())
	})

	t.Run("from file", func(t *testing.T) {
		_, err := Load(writeFile(t, "zero.yaml", "server:\n  shutdown_timeout: 0s\n"))
		assert.ErrorContains(t, err, "server.shutdown_timeout")
	})
}

func TestLoadEnv(t *testing.T) {
	path := writeFile(t, ".env", "GEOKNN_LOG_LEVEL=warn\n")
	t.Setenv("GEOKNN_LOG_LEVEL", "")
	require.NoError(t, os.Unsetenv("GEOKNN_LOG_LEVEL"))

	require.NoError(t, LoadEnv(filepath.Join(t.TempDir(), "missing.env"), path))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)

	level, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, "WARN", level.String())
	assert.NotNil(t, cfg.Log.Logger())
}
