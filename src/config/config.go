package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const defaultConfigFile = ".cpdstage.yml"

// Config is the top-level cpdstage configuration.
type Config struct {
	BuildSettings BuildSettings             `yaml:"build_settings" toml:"build_settings"`
	Stages        map[string][]PluginConfig `yaml:"stages" toml:"stages" validate:"dive,keys,oneof=setup test deploy complete success failure fixed broken,endkeys,dive"`
	Store         StoreConfig               `yaml:"store" toml:"store"`
	Log           LogConfig                 `yaml:"log" toml:"log"`
	Runner        RunnerConfig              `yaml:"runner" toml:"runner"`
}

// BuildSettings apply to every plugin of a build.
type BuildSettings struct {
	Ignore     []string `yaml:"ignore" toml:"ignore" validate:"dive,required"`
	BinaryPath string   `yaml:"binary_path" toml:"binary_path"`
}

// PluginConfig enables one plugin in a phase.
type PluginConfig struct {
	Plugin  string         `yaml:"plugin" toml:"plugin" validate:"required"`
	Options map[string]any `yaml:"options,omitempty" toml:"options,omitempty"`
}

// StoreConfig locates the embedded build store.
type StoreConfig struct {
	Path string `yaml:"path" toml:"path" validate:"required"`
}

// LogConfig controls diagnostics output.
type LogConfig struct {
	Level string `yaml:"level" toml:"level" validate:"oneof=debug info warn warning error"`
}

// RunnerConfig bounds tool execution.
type RunnerConfig struct {
	// Timeout is a Go duration per tool invocation; "0" disables it.
	Timeout string `yaml:"timeout" toml:"timeout"`
	// Concurrency is how many builds run at once.
	Concurrency int `yaml:"concurrency" toml:"concurrency" validate:"gte=1"`
}

// TimeoutDuration parses Timeout. Empty means the runner default.
func (r RunnerConfig) TimeoutDuration() (time.Duration, error) {
	if r.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(r.Timeout)
	if err != nil {
		return 0, fmt.Errorf("runner.timeout: %w", err)
	}
	if d == 0 {
		return -1, nil
	}
	return d, nil
}

// Plugins returns the plugins configured for a phase, in order.
func (c *Config) Plugins(stage string) []PluginConfig {
	return c.Stages[stage]
}

// Load reads configuration from a YAML or TOML file, picked by extension.
// If path is empty, it tries the default file.
// Returns defaults if the file doesn't exist.
func Load(path string) (*Config, error) {
	if path == "" {
		path = defaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return defaults(), nil
		}
		return nil, err
	}

	return Parse(data, strings.EqualFold(filepath.Ext(path), ".toml"))
}

// Parse decodes configuration over the defaults and validates it.
func Parse(data []byte, isTOML bool) (*Config, error) {
	cfg := defaults()
	// Explicit stages replace the default plugin list rather than merging into it.
	cfg.Stages = nil

	var err error
	if isTOML {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Stages == nil {
		cfg.Stages = DefaultStages()
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultStages runs the duplicate-code detector in the test phase.
func DefaultStages() map[string][]PluginConfig {
	return map[string][]PluginConfig{
		"test": {{Plugin: "php_cpd"}},
	}
}

func defaults() *Config {
	return &Config{
		BuildSettings: BuildSettings{Ignore: []string{}},
		Stages:        DefaultStages(),
		Store:         StoreConfig{Path: ".cpdstage/db"},
		Log:           LogConfig{Level: "info"},
		Runner:        RunnerConfig{Timeout: "10m", Concurrency: 2},
	}
}
