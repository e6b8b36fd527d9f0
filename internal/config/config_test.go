package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(EnvLibraryPath, "")
	t.Setenv(EnvLogLevel, "")
	return home
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	home := withHome(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".flowdex", "library"), cfg.LibraryPath)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
	assert.Equal(t, 1000, cfg.VectorSpace.MaxFeatures)
	assert.InDelta(t, 0.9, cfg.VectorSpace.MaxDF, 1e-9)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Tracing.Enabled)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	withHome(t)

	cfg, err := DefaultConfig()
	require.NoError(t, err)
	cfg.LibraryPath = "~/flows"
	cfg.Search.DefaultLimit = 25
	cfg.LockTimeout = 5 * time.Second
	cfg.Watch.Schedule = "0 * * * *"
	require.NoError(t, Save(cfg))

	got, err := Load()
	require.NoError(t, err)
	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, "flows"), got.LibraryPath)
	assert.Equal(t, 25, got.Search.DefaultLimit)
	assert.Equal(t, 5*time.Second, got.LockTimeout)
	assert.Equal(t, "0 * * * *", got.Watch.Schedule)
}

func TestLoad_EnvOverrides(t *testing.T) {
	home := withHome(t)
	t.Setenv(EnvLibraryPath, filepath.Join(home, "elsewhere"))
	t.Setenv(EnvLogLevel, "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "elsewhere"), cfg.LibraryPath)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_InvalidYAML(t *testing.T) {
	home := withHome(t)
	dir := filepath.Join(home, ".flowdex")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "flowdex.yaml"), []byte("search: [\n"), 0o644))

	_, err := Load()
	assert.ErrorContains(t, err, "invalid YAML")
}

func TestValidate(t *testing.T) {
	withHome(t)
	base := func() *Config {
		cfg, err := DefaultConfig()
		require.NoError(t, err)
		return cfg
	}

	assert.NoError(t, base().Validate())

	cases := map[string]func(*Config){
		"empty library":  func(c *Config) { c.LibraryPath = "" },
		"zero limit":     func(c *Config) { c.Search.DefaultLimit = 0 },
		"max_df above 1": func(c *Config) { c.VectorSpace.MaxDF = 1.5 },
		"min_df zero":    func(c *Config) { c.VectorSpace.MinDF = 0 },
		"log level":      func(c *Config) { c.LogLevel = "loud" },
		"bad schedule":   func(c *Config) { c.Watch.Schedule = "every tuesday" },
		"bad exporter":   func(c *Config) { c.Tracing.Exporter = "jaeger" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestParams(t *testing.T) {
	withHome(t)
	cfg, err := DefaultConfig()
	require.NoError(t, err)
	cfg.VectorSpace.MaxFeatures = 50
	p := cfg.Params()
	assert.Equal(t, 50, p.MaxFeatures)
	assert.Equal(t, 2, p.NgramMax)
}

func TestExpandPath(t *testing.T) {
	home := withHome(t)
	got, err := ExpandPath("~/x")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "x"), got)

	got, err = ExpandPath("/abs")
	require.NoError(t, err)
	assert.Equal(t, "/abs", got)
}
