package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 10, cfg.Pipeline.FibonacciLength)
	assert.Equal(t, "uploads", cfg.Output.Dir)
	assert.Equal(t, "jpeg", cfg.Output.Format)
	assert.Equal(t, 95, cfg.Output.JPEGQuality)
	assert.Equal(t, BackendStd, cfg.Codec.Backend)
	assert.True(t, cfg.Snapshot.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig().Output, cfg.Output)
	})

	t.Run("file overrides selected keys", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "protonfusion.yaml")
		body := "pipeline:\n  fibonacci_length: 16\noutput:\n  format: png\ncodec:\n  backend: opencv\n"
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 16, cfg.Pipeline.FibonacciLength)
		assert.Equal(t, "png", cfg.Output.Format)
		assert.Equal(t, BackendOpenCV, cfg.Codec.Backend)
		assert.Equal(t, 95, cfg.Output.JPEGQuality)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("pipeline: [1, 2"), 0o644))

		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PF_ELEMENTS_PATH", "/data/table.yaml")
	t.Setenv("PF_OUTPUT_DIR", "/tmp/out")
	t.Setenv("PF_CODEC", "OpenCV")
	t.Setenv("PF_SNAPSHOT_PATH", "/tmp/snap.db")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/data/table.yaml", cfg.Elements.Path)
	assert.Equal(t, "/tmp/out", cfg.Output.Dir)
	assert.Equal(t, BackendOpenCV, cfg.Codec.Backend)
	assert.Equal(t, "/tmp/snap.db", cfg.Snapshot.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no elements", func(c *Config) { c.Elements.Path = "" }},
		{"zero fibonacci", func(c *Config) { c.Pipeline.FibonacciLength = 0 }},
		{"long fibonacci", func(c *Config) { c.Pipeline.FibonacciLength = 1025 }},
		{"negative workers", func(c *Config) { c.Pipeline.Workers = -2 }},
		{"quality high", func(c *Config) { c.Output.JPEGQuality = 101 }},
		{"format", func(c *Config) { c.Output.Format = "gif" }},
		{"backend", func(c *Config) { c.Codec.Backend = "vips" }},
		{"snapshot path", func(c *Config) { c.Snapshot.Path = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := DefaultConfig()
	cfg.Output.Dir = "renders"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "renders", loaded.Output.Dir)
	assert.Equal(t, cfg.Parallelism(), loaded.Parallelism())
}
