package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(EnvModelPath, "models/yolov8n.onnx")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load with missing file should use defaults: %v", err)
	}

	if cfg.Sampling.Interval != DefaultInterval {
		t.Errorf("default interval = %d, want %d", cfg.Sampling.Interval, DefaultInterval)
	}
	if cfg.Model.InputSize != 640 {
		t.Errorf("default input size = %d, want 640", cfg.Model.InputSize)
	}
	if cfg.Export.Dir != "." {
		t.Errorf("default export dir = %q, want .", cfg.Export.Dir)
	}
	if cfg.Journal.Path != "" || cfg.API.Listen != "" {
		t.Errorf("journal and api should be disabled by default")
	}
}

func TestLoad_FromFile(t *testing.T) {
	doc := `
model:
  path: /opt/models/yolov8s.onnx
  confidence_threshold: 0.4
sampling:
  interval: 15
export:
  dir: /var/lib/stream-yolo
journal:
  path: /var/lib/stream-yolo/journal.db
api:
  listen: ":9120"
log_level: debug
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Model.Path != "/opt/models/yolov8s.onnx" {
		t.Errorf("model path = %q", cfg.Model.Path)
	}
	if cfg.Model.ConfidenceThreshold != 0.4 {
		t.Errorf("confidence = %v, want 0.4", cfg.Model.ConfidenceThreshold)
	}
	if cfg.Sampling.Interval != 15 {
		t.Errorf("interval = %d, want 15", cfg.Sampling.Interval)
	}
	if cfg.Journal.Path == "" || cfg.API.Listen != ":9120" {
		t.Errorf("journal/api not loaded: %+v", cfg)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %q, want debug", cfg.LogLevel)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	doc := "model:\n  path: from-file.onnx\nsampling:\n  interval: 10\n"
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv(EnvModelPath, "from-env.onnx")
	t.Setenv(EnvInterval, "45")
	t.Setenv(EnvOutputDir, "/tmp/out")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model.Path != "from-env.onnx" {
		t.Errorf("env should override file: got %q", cfg.Model.Path)
	}
	if cfg.Sampling.Interval != 45 {
		t.Errorf("interval = %d, want 45", cfg.Sampling.Interval)
	}
	if cfg.Export.Dir != "/tmp/out" {
		t.Errorf("export dir = %q", cfg.Export.Dir)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Model:    ModelConfig{Path: "m.onnx", InputSize: 640, ConfidenceThreshold: 0.25, NMSThreshold: 0.45},
			Sampling: SamplingConfig{Interval: 30},
			Export:   ExportConfig{Dir: "."},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing model path", func(c *Config) { c.Model.Path = "" }, true},
		{"zero interval", func(c *Config) { c.Sampling.Interval = 0 }, true},
		{"negative input size", func(c *Config) { c.Model.InputSize = -1 }, true},
		{"confidence above one", func(c *Config) { c.Model.ConfidenceThreshold = 1.5 }, true},
		{"nms below zero", func(c *Config) { c.Model.NMSThreshold = -0.1 }, true},
		{"empty export dir", func(c *Config) { c.Export.Dir = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_BadIntervalEnv(t *testing.T) {
	t.Setenv(EnvModelPath, "m.onnx")
	t.Setenv(EnvInterval, "not-a-number")

	if _, err := Load(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Fatal("expected error for malformed interval override")
	}
}
