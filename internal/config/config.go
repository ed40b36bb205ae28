// Package config loads and saves the plugin's YAML configuration, including
// the per-type enabled flags edited from the settings panel.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go-admonitions/internal/admonition"

	"gopkg.in/yaml.v3"
)

// EnvPath overrides the default config file location.
const EnvPath = "GO_ADMONITIONS_CONFIG"

const (
	DefaultAddr     = "127.0.0.1:7777"
	DefaultLogLevel = "info"
)

// Config is the on-disk configuration.
type Config struct {
	// Addr is where the reading-mode preview listens.
	Addr string `yaml:"addr"`
	// LogLevel is a logrus level name.
	LogLevel string `yaml:"log_level"`
	// LogFile receives the log; empty means stderr.
	LogFile string `yaml:"log_file,omitempty"`
	// Styles controls whether highlight groups and the reading stylesheet are
	// installed. Nil means true.
	Styles *bool `yaml:"styles,omitempty"`
	// Admonitions maps a type keyword to its enabled flag. Missing types are enabled.
	Admonitions map[string]bool `yaml:"admonitions"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{}.applyDefaults()
}

func (c Config) applyDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	admonitions := make(map[string]bool, len(admonition.Types()))
	for _, t := range admonition.Types() {
		admonitions[t.String()] = true
	}
	for k, v := range c.Admonitions {
		admonitions[k] = v
	}
	c.Admonitions = admonitions
	return c
}

// Validate reports every unusable field.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Addr) == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic":
	default:
		errs = append(errs, fmt.Errorf("log_level %q is not a log level", c.LogLevel))
	}

	keys := make([]string, 0, len(c.Admonitions))
	for k := range c.Admonitions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := admonition.ParseType(k); err != nil {
			errs = append(errs, fmt.Errorf("admonitions: %w", err))
		}
	}
	return errors.Join(errs...)
}

// StylesEnabled reports whether styling should be installed.
func (c Config) StylesEnabled() bool {
	return c.Styles == nil || *c.Styles
}

// Settings converts the enabled flags into the enum-keyed form.
func (c Config) Settings() admonition.Settings {
	s := admonition.DefaultSettings()
	for k, v := range c.Admonitions {
		if t, err := admonition.ParseType(k); err == nil {
			s.Set(t, v)
		}
	}
	return s
}

// WithSettings returns a copy of c carrying s.
func (c Config) WithSettings(s admonition.Settings) Config {
	admonitions := make(map[string]bool, len(admonition.Types()))
	for _, t := range admonition.Types() {
		admonitions[t.String()] = s.Enabled(t)
	}
	c.Admonitions = admonitions
	return c
}

// DefaultPath returns the config location, honouring EnvPath.
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvPath); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "go-admonitions", "config.yaml"), nil
}

// Load reads path. A missing file yields the defaults.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg = cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes c to path, creating parent directories.
func Save(path string, c Config) error {
	raw, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
