// Package config handles reading and writing ~/.scribe/config.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level structure for config.yaml.
type Config struct {
	Version     int               `yaml:"version"`
	DataDir     string            `yaml:"data_dir"`
	Transcriber TranscriberConfig `yaml:"transcriber"`
	Catalog     CatalogConfig     `yaml:"catalog"`
	Log         LogConfig         `yaml:"log"`
	Cleanup     CleanupConfig     `yaml:"cleanup"`
}

// TranscriberConfig names the external speech-to-text program.
// "{audio}" in Args is replaced with the audio path; without it the path is
// appended.
type TranscriberConfig struct {
	Command        string   `yaml:"command"`
	Args           []string `yaml:"args"`
	TimeoutSeconds int      `yaml:"timeout_seconds"` // 0 = no limit
	MaxFailures    int      `yaml:"max_failures"`    // consecutive failures that stop a batch
}

// CatalogConfig controls the SQLite session catalog.
type CatalogConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level string `yaml:"level"` // debug | info | warn | error
}

// CleanupConfig controls session retention for "scribe prune".
type CleanupConfig struct {
	MaxAgeDays int `yaml:"max_age_days"`
}

const (
	appDir     = ".scribe"
	configFile = "config.yaml"

	// EnvConfig overrides the config file location.
	EnvConfig = "SCRIBE_CONFIG"
)

// Data directory layout.
const (
	SessionsDirName = "sessions"
	CatalogFileName = "catalog.db"
	StateFileName   = "state.json"
	LockFileName    = ".lock"
)

// DefaultPath returns the config file location: $SCRIBE_CONFIG if set,
// otherwise ~/.scribe/config.yaml.
func DefaultPath() string {
	if p := strings.TrimSpace(os.Getenv(EnvConfig)); p != "" {
		return p
	}
	return filepath.Join(homeDir(), appDir, configFile)
}

// ReadConfig reads the config file at path. Fields absent from the file keep
// their DefaultConfig values.
// Returns an error if the file is not found or YAML is malformed.
func ReadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.DataDir = expandHome(cfg.DataDir)

	return cfg, nil
}

// LoadOrDefault reads path, falling back to DefaultConfig when the file does
// not exist. A malformed file is still an error.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := ReadConfig(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// WriteConfig writes cfg to path, creating the parent directory if needed.
func WriteConfig(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		DataDir: filepath.Join(homeDir(), appDir),
		Transcriber: TranscriberConfig{
			Command:        "whisper-cli",
			Args:           []string{"--no-timestamps", "--file", "{audio}"},
			TimeoutSeconds: 600,
			MaxFailures:    3,
		},
		Catalog: CatalogConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level: "info",
		},
		Cleanup: CleanupConfig{
			MaxAgeDays: 90,
		},
	}
}

// SessionsDir returns the directory holding session directories.
func (c *Config) SessionsDir() string {
	return filepath.Join(c.DataDir, SessionsDirName)
}

// CatalogPath returns the SQLite catalog location.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.DataDir, CatalogFileName)
}

// StatePath returns the CLI state file location.
func (c *Config) StatePath() string {
	return filepath.Join(c.DataDir, StateFileName)
}

// LockPath returns the mutator lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.DataDir, LockFileName)
}

// TranscribeTimeout returns the transcriber timeout, 0 for none.
func (c *Config) TranscribeTimeout() time.Duration {
	if c.Transcriber.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Transcriber.TimeoutSeconds) * time.Second
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

func expandHome(p string) string {
	if p == "~" {
		return homeDir()
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(homeDir(), p[2:])
	}
	return p
}
