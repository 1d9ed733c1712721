// Package config loads stream-yolo configuration from a YAML file with
// environment variable overrides. Validation is fail-fast: a bad value is
// rejected at startup, before any stream connection is attempted.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	// EnvConfigPath overrides the config file location.
	EnvConfigPath = "STREAM_YOLO_CONFIG"
	// EnvModelPath overrides model.path.
	EnvModelPath = "STREAM_YOLO_MODEL"
	// EnvInterval overrides sampling.interval.
	EnvInterval = "STREAM_YOLO_INTERVAL"
	// EnvOutputDir overrides export.dir.
	EnvOutputDir = "STREAM_YOLO_OUTPUT_DIR"
	// EnvJournalPath overrides journal.path.
	EnvJournalPath = "STREAM_YOLO_JOURNAL"
	// EnvListen overrides api.listen.
	EnvListen = "STREAM_YOLO_LISTEN"
	// EnvLogLevel overrides log_level.
	EnvLogLevel = "STREAM_YOLO_LOG_LEVEL"

	// DefaultConfigPath is used when EnvConfigPath is not set.
	DefaultConfigPath = "config.yaml"
	// DefaultInterval admits roughly one frame per second at a nominal
	// 30 fps stream. The rate is a static assumption, not measured.
	DefaultInterval = 30
)

// Config is the root configuration document.
type Config struct {
	Model    ModelConfig    `yaml:"model"`
	Sampling SamplingConfig `yaml:"sampling"`
	Export   ExportConfig   `yaml:"export"`
	Journal  JournalConfig  `yaml:"journal"`
	API      APIConfig      `yaml:"api"`
	LogLevel string         `yaml:"log_level"`
}

// ModelConfig configures the detection model.
type ModelConfig struct {
	// Path to the serialized ONNX weights. Required.
	Path string `yaml:"path"`
	// InputSize is the square tensor side the model expects.
	InputSize int `yaml:"input_size"`
	// ConfidenceThreshold filters detections below this score.
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	// NMSThreshold is the IoU threshold for non-maximum suppression.
	NMSThreshold float64 `yaml:"nms_threshold"`
	// Labels overrides the built-in COCO class names when set.
	Labels []string `yaml:"labels"`
}

// SamplingConfig configures the frame sample gate.
type SamplingConfig struct {
	// Interval is the decimation interval K: frame n is admitted to
	// detection iff n mod K == 0.
	Interval uint64 `yaml:"interval"`
}

// ExportConfig configures the detection export writer.
type ExportConfig struct {
	// Dir is the directory cropped artifacts are written to.
	Dir string `yaml:"dir"`
}

// JournalConfig configures the optional artifact journal.
type JournalConfig struct {
	// Path to the SQLite journal file. Empty disables the journal.
	Path string `yaml:"path"`
}

// APIConfig configures the optional stats/metrics listener.
type APIConfig struct {
	// Listen is the address for the stats HTTP server, e.g. ":9120".
	// Empty disables the listener.
	Listen string `yaml:"listen"`
}

// Load reads the config file at path (missing file is not an error, defaults
// apply), layers environment overrides on top, and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Model: ModelConfig{
			InputSize:           640,
			ConfidenceThreshold: 0.25,
			NMSThreshold:        0.45,
		},
		Sampling: SamplingConfig{Interval: DefaultInterval},
		Export:   ExportConfig{Dir: "."},
		LogLevel: "info",
	}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Defaults plus environment only.
	default:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvModelPath); v != "" {
		c.Model.Path = v
	}
	if v := os.Getenv(EnvInterval); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config: invalid %s: %w", EnvInterval, err)
		}
		c.Sampling.Interval = n
	}
	if v := os.Getenv(EnvOutputDir); v != "" {
		c.Export.Dir = v
	}
	if v := os.Getenv(EnvJournalPath); v != "" {
		c.Journal.Path = v
	}
	if v := os.Getenv(EnvListen); v != "" {
		c.API.Listen = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	return nil
}

// Validate rejects configurations that cannot run.
func (c *Config) Validate() error {
	if c.Model.Path == "" {
		return fmt.Errorf("config: model.path is required")
	}
	if c.Model.InputSize <= 0 {
		return fmt.Errorf("config: model.input_size must be positive, got %d", c.Model.InputSize)
	}
	if c.Model.ConfidenceThreshold < 0 || c.Model.ConfidenceThreshold > 1 {
		return fmt.Errorf("config: model.confidence_threshold %.2f out of range [0,1]", c.Model.ConfidenceThreshold)
	}
	if c.Model.NMSThreshold < 0 || c.Model.NMSThreshold > 1 {
		return fmt.Errorf("config: model.nms_threshold %.2f out of range [0,1]", c.Model.NMSThreshold)
	}
	if c.Sampling.Interval == 0 {
		return fmt.Errorf("config: sampling.interval must be at least 1")
	}
	if c.Export.Dir == "" {
		return fmt.Errorf("config: export.dir must not be empty")
	}
	return nil
}

// Path returns the config file location from the environment, or the default.
func Path() string {
	if v := os.Getenv(EnvConfigPath); v != "" {
		return v
	}
	return DefaultConfigPath
}
