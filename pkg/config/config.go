package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Default configuration values exported for documentation and validation
const (
	DefaultOutputDir      = "demo-output"
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
	DefaultLogDir         = ".demoreel/logs"
	DefaultArchivePath    = ".demoreel/recordings.db"
)

// RecordingConfig controls how a single recording session behaves
type RecordingConfig struct {
	CaptureVideo      bool   `yaml:"capture_video"`
	CaptureTrace      bool   `yaml:"capture_trace"`
	ScreenshotPerStep bool   `yaml:"screenshot_per_step"`
	OutputDir         string `yaml:"output_dir"`
	ViewportWidth     int    `yaml:"viewport_width"`
	ViewportHeight    int    `yaml:"viewport_height"`
	Headless          bool   `yaml:"headless"`
}

// LoggingConfig controls the structured JSONL logs
type LoggingConfig struct {
	Dir   string `yaml:"dir"`
	Level string `yaml:"level"`
}

// ArchiveConfig controls the SQLite recording archive
type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Config represents the complete demoreel configuration
type Config struct {
	Recording RecordingConfig `yaml:"recording"`
	Logging   LoggingConfig   `yaml:"logging"`
	Archive   ArchiveConfig   `yaml:"archive"`
}

// Default returns a config populated with the documented defaults
func Default() *Config {
	return &Config{
		Recording: RecordingConfig{
			CaptureVideo:      true,
			CaptureTrace:      false,
			ScreenshotPerStep: true,
			OutputDir:         DefaultOutputDir,
			ViewportWidth:     DefaultViewportWidth,
			ViewportHeight:    DefaultViewportHeight,
			Headless:          true,
		},
		Logging: LoggingConfig{
			Dir:   DefaultLogDir,
			Level: "info",
		},
		Archive: ArchiveConfig{
			Enabled: true,
			Path:    DefaultArchivePath,
		},
	}
}

// Load reads configuration from path, layering the file over defaults.
// A missing file is not an error; defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("DEMOREEL_CONFIG")
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the recorder cannot work with
func (c *Config) Validate() error {
	if c.Recording.OutputDir == "" {
		return fmt.Errorf("recording.output_dir must not be empty")
	}
	if c.Recording.ViewportWidth <= 0 || c.Recording.ViewportHeight <= 0 {
		return fmt.Errorf("viewport dimensions must be positive, got %dx%d",
			c.Recording.ViewportWidth, c.Recording.ViewportHeight)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logging.level %q", c.Logging.Level)
	}
	return nil
}

// Save writes the configuration to path, creating parent directories
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0644)
}
