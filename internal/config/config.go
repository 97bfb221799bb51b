// Package config loads the touchless YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/touchless/internal/detector"
	"github.com/ayusman/touchless/internal/gesture"
)

// Config is the full application configuration.
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Camera    CameraConfig     `yaml:"camera"`
	Pipeline  string           `yaml:"pipeline"`
	Detection gesture.Settings `yaml:"detection"`
	Detector  DetectorConfig   `yaml:"detector"`
	Redis     RedisConfig      `yaml:"redis"`
	Log       LogConfig        `yaml:"log"`
	Plugins   PluginsConfig    `yaml:"plugins"`
	Tray      bool             `yaml:"tray"`

	// DataDir holds the database. Empty means ~/.touchless.
	DataDir string `yaml:"data_dir"`
	// EventRetention bounds the event log; zero keeps everything.
	EventRetention time.Duration `yaml:"event_retention"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
}

// CameraConfig selects the capture device and its frame rates.
type CameraConfig struct {
	Device    int `yaml:"device"`
	IdleFPS   int `yaml:"idle_fps"`
	ActiveFPS int `yaml:"active_fps"`
}

// DetectorConfig configures the landmark detector and its warm-up budget.
type DetectorConfig struct {
	detector.Config `yaml:",inline"`
	InitAttempts    int           `yaml:"init_attempts"`
	InitInterval    time.Duration `yaml:"init_interval"`
}

// RedisConfig enables event publishing when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

// Enabled reports whether redis publishing is configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// LogConfig controls the logger.
type LogConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

// PluginsConfig locates action plugins.
type PluginsConfig struct {
	Dir     string        `yaml:"dir"`
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080"},
		Camera: CameraConfig{
			Device:    0,
			IdleFPS:   5,
			ActiveFPS: 15,
		},
		Pipeline:  "motion",
		Detection: gesture.DefaultSettings(),
		Detector: DetectorConfig{
			Config:       detector.DefaultConfig(),
			InitAttempts: detector.DefaultInitAttempts,
			InitInterval: detector.DefaultInitInterval,
		},
		Redis:   RedisConfig{Channel: "touchless:gestures"},
		Log:     LogConfig{Level: "info"},
		Plugins: PluginsConfig{Timeout: 5 * time.Second},
		Tray:    false,
	}
}

// Load reads path over the defaults. Keys missing from the file keep their
// default values. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	var errs []error
	switch c.Pipeline {
	case "motion", "landmarks":
	default:
		errs = append(errs, fmt.Errorf("pipeline %q must be motion or landmarks", c.Pipeline))
	}
	if c.Camera.IdleFPS <= 0 || c.Camera.ActiveFPS <= 0 {
		errs = append(errs, fmt.Errorf("camera frame rates must be positive"))
	}
	if c.EventRetention < 0 {
		errs = append(errs, fmt.Errorf("event_retention %v is negative", c.EventRetention))
	}
	if err := c.Detection.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ResolveDataDir returns DataDir, defaulting to ~/.touchless, and creates it.
func (c *Config) ResolveDataDir() (string, error) {
	dir := c.DataDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, ".touchless")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dir, nil
}

// PluginDir returns Plugins.Dir, defaulting to <data dir>/plugins.
func (c *Config) PluginDir(dataDir string) string {
	if c.Plugins.Dir != "" {
		return c.Plugins.Dir
	}
	return filepath.Join(dataDir, "plugins")
}
