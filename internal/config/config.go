package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/kamusis/flowdex/internal/search/vectorspace"
	"github.com/kamusis/flowdex/internal/tracing"
)

// Environment keys that override the config file.
const (
	EnvLibraryPath = "FLOWDEX_LIBRARY_PATH"
	EnvLogLevel    = "FLOWDEX_LOG_LEVEL"
)

// SearchConfig holds query defaults.
type SearchConfig struct {
	DefaultLimit int     `yaml:"default_limit" validate:"min=1,max=1000"`
	MinScore     float64 `yaml:"min_score" validate:"min=0,max=1"`
}

// VectorSpaceConfig holds the term-weighting fit parameters.
type VectorSpaceConfig struct {
	MaxFeatures int     `yaml:"max_features" validate:"min=1"`
	MaxDF       float64 `yaml:"max_df" validate:"gt=0,lte=1"`
	MinDF       int     `yaml:"min_df" validate:"min=1"`
}

// WatchConfig controls automatic rebuilds.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce" validate:"min=0"`
	Schedule string        `yaml:"schedule,omitempty" validate:"omitempty,cronspec"`
}

// Config is the in-memory representation of ~/.flowdex/flowdex.yaml.
type Config struct {
	LibraryPath string            `yaml:"library_path" validate:"required"`
	Search      SearchConfig      `yaml:"search"`
	VectorSpace VectorSpaceConfig `yaml:"vector_space"`
	LogLevel    string            `yaml:"log_level" validate:"oneof=debug info warn error"`
	LockTimeout time.Duration     `yaml:"lock_timeout" validate:"min=0"`
	Watch       WatchConfig       `yaml:"watch"`
	Tracing     tracing.Config    `yaml:"tracing"`
}

// Params returns the vector space fit parameters.
func (c *Config) Params() vectorspace.Params {
	p := vectorspace.DefaultParams()
	p.MaxFeatures = c.VectorSpace.MaxFeatures
	p.MaxDF = c.VectorSpace.MaxDF
	p.MinDF = c.VectorSpace.MinDF
	return p
}

// FlowdexDir returns the absolute path to ~/.flowdex/.
func FlowdexDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".flowdex"), nil
}

// ConfigPath returns the absolute path to ~/.flowdex/flowdex.yaml.
func ConfigPath() (string, error) {
	dir, err := FlowdexDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "flowdex.yaml"), nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(p string) (string, error) {
	if !strings.HasPrefix(p, "~") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot expand ~: %w", err)
	}
	return filepath.Join(home, p[1:]), nil
}

// DefaultConfig returns the default Config written on first flowdex init.
func DefaultConfig() (*Config, error) {
	dir, err := FlowdexDir()
	if err != nil {
		return nil, err
	}
	p := vectorspace.DefaultParams()

	return &Config{
		LibraryPath: filepath.Join(dir, "library"),
		Search: SearchConfig{
			DefaultLimit: 10,
			MinScore:     0,
		},
		VectorSpace: VectorSpaceConfig{
			MaxFeatures: p.MaxFeatures,
			MaxDF:       p.MaxDF,
			MinDF:       p.MinDF,
		},
		LogLevel:    "info",
		LockTimeout: 30 * time.Second,
		Watch: WatchConfig{
			Debounce: 2 * time.Second,
		},
		Tracing: tracing.Config{
			Enabled:  false,
			Exporter: tracing.ExporterStdout,
		},
	}, nil
}

// Load reads ~/.flowdex/flowdex.yaml over the defaults, applies environment
// overrides and validates the result. A missing file yields the defaults.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	cfg, err := DefaultConfig()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("cannot read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
		}
	}

	if v, err := GetConfigValue(EnvLibraryPath); err != nil {
		return nil, err
	} else if v != "" {
		cfg.LibraryPath = v
	}
	if v, err := GetConfigValue(EnvLogLevel); err != nil {
		return nil, err
	} else if v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	// Expand ~ in LibraryPath at load time.
	cfg.LibraryPath, err = ExpandPath(cfg.LibraryPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save marshals cfg and writes it to ~/.flowdex/flowdex.yaml.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", filepath.Dir(path), err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write config %s: %w", path, err)
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("cronspec", func(fl validator.FieldLevel) bool {
		_, err := cron.ParseStandard(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	return validate.Struct(c)
}
