// Command stream-yolo ingests an encoded video stream, samples decoded
// frames at a fixed decimation interval, runs object detection on the
// sampled frames, and writes one cropped PNG per detection.
//
// Usage:
//
//	stream-yolo <stream URI>
//
// Configuration is read from config.yaml (or STREAM_YOLO_CONFIG) with
// STREAM_YOLO_* environment overrides; a .env file is honored.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/nkust-monitor-iot-project-2024/stream-yolo/internal/api"
	"github.com/nkust-monitor-iot-project-2024/stream-yolo/internal/config"
	"github.com/nkust-monitor-iot-project-2024/stream-yolo/internal/detect"
	"github.com/nkust-monitor-iot-project-2024/stream-yolo/internal/export"
	"github.com/nkust-monitor-iot-project-2024/stream-yolo/internal/journal"
	"github.com/nkust-monitor-iot-project-2024/stream-yolo/internal/logging"
	"github.com/nkust-monitor-iot-project-2024/stream-yolo/internal/metrics"
	"github.com/nkust-monitor-iot-project-2024/stream-yolo/internal/pipeline"
	"github.com/nkust-monitor-iot-project-2024/stream-yolo/internal/sample"
)

func main() {
	// Exactly one positional argument. Anything else prints usage and
	// exits successfully without running a pipeline.
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <stream URI>\n", os.Args[0])
		return
	}

	if err := run(os.Args[1]); err != nil {
		slog.Error("stream-yolo: terminated with error", "error", err)
		os.Exit(1)
	}
}

func run(uri string) error {
	_ = godotenv.Load()

	cfg, err := config.Load(config.Path())
	if err != nil {
		return err
	}
	logging.Setup(cfg.LogLevel)

	// The model session is loaded before any stream connection is
	// attempted; a load failure is fatal.
	labels := make([]string, len(cfg.Model.Labels))
	copy(labels, cfg.Model.Labels)
	engine, err := detect.NewDNNEngine(detect.DNNConfig{
		ModelPath:           cfg.Model.Path,
		InputSize:           cfg.Model.InputSize,
		ConfidenceThreshold: float32(cfg.Model.ConfidenceThreshold),
		NMSThreshold:        float32(cfg.Model.NMSThreshold),
		Labels:              labels,
	})
	if err != nil {
		return err
	}
	defer engine.Close()
	slog.Info("stream-yolo: model loaded", "path", cfg.Model.Path)

	writer, err := export.NewWriter(cfg.Export.Dir)
	if err != nil {
		return err
	}

	var jnl *journal.Journal
	if cfg.Journal.Path != "" {
		jnl, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			return err
		}
		defer jnl.Close()
	}

	m := metrics.New()
	processor := pipeline.NewProcessor(detect.NewDispatcher(engine), writer, jnl, m)
	gate, err := sample.NewGate(cfg.Sampling.Interval, processor)
	if err != nil {
		return err
	}

	controller := pipeline.New(gate, m)
	defer controller.Shutdown()

	if cfg.API.Listen != "" {
		server := api.New(cfg.API.Listen, func() api.Stats {
			return api.Stats{
				PipelineState: controller.State().String(),
				FramesSeen:    controller.FramesSeen(),
				Interval:      gate.Interval(),
			}
		}, m.Registry)
		server.Start()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			server.Shutdown(ctx)
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := controller.Start(uri); err != nil {
		return err
	}

	err = controller.RunUntilTerminal(ctx)
	switch {
	case err == nil:
		slog.Info("stream-yolo: stream ended", "frames_seen", controller.FramesSeen())
		return nil
	case errors.Is(err, context.Canceled):
		slog.Info("stream-yolo: interrupted, shutting down",
			"frames_seen", controller.FramesSeen())
		return nil
	default:
		return err
	}
}
