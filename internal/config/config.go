package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Default config file path.
const DefaultConfigPath = "~/.config/webpersona/config.yaml"

// Config holds all webpersona configuration.
type Config struct {
	Analysis  AnalysisConfig  `yaml:"analysis"`
	History   HistoryConfig   `yaml:"history"`
	Retention RetentionConfig `yaml:"retention"`
	Capture   CaptureConfig   `yaml:"capture"`
	Storage   StorageConfig   `yaml:"storage"`
	Daemon    DaemonConfig    `yaml:"daemon"`
	Insight   InsightConfig   `yaml:"insight"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type AnalysisConfig struct {
	TimeframeDays int `yaml:"timeframe_days"`
	MaxResults    int `yaml:"max_results"`
}

type HistoryConfig struct {
	Browser string `yaml:"browser"`
	Path    string `yaml:"path"` // empty = auto-detect
}

type RetentionConfig struct {
	EngagementDays int `yaml:"engagement_days"`
}

// CaptureConfig lists hosts the engagement log never records, on top of
// DefaultDenylistDomains.
type CaptureConfig struct {
	DenylistDomains []string `yaml:"denylist_domains"`
	DenylistRegex   []string `yaml:"denylist_regex"`
}

type StorageConfig struct {
	Path              string `yaml:"path"`
	SQLiteFile        string `yaml:"sqlite_file"`
	SQLiteJournalMode string `yaml:"sqlite_journal_mode"`
}

type DaemonConfig struct {
	Host                  string   `yaml:"host"`
	Port                  int      `yaml:"port"`
	AuthToken             string   `yaml:"auth_token"`
	MaxRequestSize        int      `yaml:"max_request_size"`
	MaxHistoryRequestSize int      `yaml:"max_history_request_size"`
	AllowedOrigins        []string `yaml:"allowed_origins"`
}

type InsightConfig struct {
	Endpoint       string  `yaml:"endpoint"`
	Model          string  `yaml:"model"`
	MaxTokens      int     `yaml:"max_tokens"`
	Temperature    float64 `yaml:"temperature"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	EnvFile        string  `yaml:"env_file"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Load reads a YAML config file at path and merges it with defaults.
// Returns an error if the file cannot be read or contains invalid YAML.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	if c.Analysis.TimeframeDays < 0 {
		return fmt.Errorf("analysis.timeframe_days must not be negative")
	}
	if c.Analysis.MaxResults < 0 {
		return fmt.Errorf("analysis.max_results must not be negative")
	}
	if c.Retention.EngagementDays < 0 {
		return fmt.Errorf("retention.engagement_days must not be negative")
	}
	if c.Daemon.Port < 0 || c.Daemon.Port > 65535 {
		return fmt.Errorf("daemon.port %d out of range", c.Daemon.Port)
	}
	if c.Daemon.MaxRequestSize < 0 || c.Daemon.MaxHistoryRequestSize < 0 {
		return fmt.Errorf("daemon request size limits must not be negative")
	}
	if c.Insight.Temperature < 0 || c.Insight.Temperature > 2 {
		return fmt.Errorf("insight.temperature must be between 0 and 2")
	}
	return nil
}

// DatabasePath returns the expanded path of the SQLite state file.
func (c *Config) DatabasePath() (string, error) {
	dir, err := ExpandPath(c.Storage.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Storage.SQLiteFile), nil
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// LoadOrCreate loads the config from the default path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreate() (*Config, error) {
	path, err := ExpandPath(DefaultConfigPath)
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads the config from the given path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreateAt(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()

		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling default config: %w", err)
		}

		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}

		return cfg, nil
	}

	return Load(path)
}
