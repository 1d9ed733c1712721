package pipeline

import (
	"log/slog"

	"github.com/nkust-monitor-iot-project-2024/stream-yolo/internal/detect"
	"github.com/nkust-monitor-iot-project-2024/stream-yolo/internal/export"
	"github.com/nkust-monitor-iot-project-2024/stream-yolo/internal/journal"
	"github.com/nkust-monitor-iot-project-2024/stream-yolo/internal/metrics"
	"github.com/nkust-monitor-iot-project-2024/stream-yolo/internal/sample"
)

// Processor is the sink behind the sample gate: it dispatches an admitted
// frame to inference and exports one artifact per detection. It runs
// synchronously on the frame delivery thread; a slow inference call applies
// backpressure upstream, which is acceptable degraded behavior.
type Processor struct {
	dispatcher *detect.Dispatcher
	writer     *export.Writer
	journal    *journal.Journal // nil when the journal is disabled
	metrics    *metrics.Metrics
}

// NewProcessor wires the dispatcher and writer. journal may be nil.
func NewProcessor(dispatcher *detect.Dispatcher, writer *export.Writer, jnl *journal.Journal, m *metrics.Metrics) *Processor {
	return &Processor{
		dispatcher: dispatcher,
		writer:     writer,
		journal:    jnl,
		metrics:    m,
	}
}

// Process implements sample.Sink. An inference failure is returned for the
// gate to log; export and journal failures are contained here since they
// never affect the frame's remaining detections or the stream.
func (p *Processor) Process(f sample.Frame) error {
	slog.Info("pipeline: inferring frame", "seq", f.Seq, "trace_id", f.TraceID)

	detections, elapsed, err := p.dispatcher.Dispatch(f)
	if err != nil {
		p.metrics.InferenceFailures.Inc()
		return err
	}
	p.metrics.InferenceSeconds.Observe(elapsed.Seconds())
	p.metrics.Detections.Add(float64(len(detections)))

	slog.Info("pipeline: inference complete",
		"seq", f.Seq,
		"entities", len(detections),
		"elapsed", elapsed,
		"trace_id", f.TraceID,
	)
	if len(detections) == 0 {
		return nil
	}

	written, exportErr := p.writer.Export(f, detections)
	p.metrics.ArtifactsWritten.Add(float64(len(written)))
	if exportErr != nil {
		p.metrics.ExportFailures.Inc()
		slog.Warn("pipeline: some artifacts failed to persist",
			"seq", f.Seq, "written", len(written), "error", exportErr, "trace_id", f.TraceID)
	}

	if p.journal != nil {
		for _, art := range written {
			err := p.journal.Record(journal.Artifact{
				Seq:         f.Seq,
				Label:       art.Detection.Label,
				Confidence:  art.Detection.Confidence,
				Path:        art.Path,
				InferenceMS: elapsed.Milliseconds(),
			})
			if err != nil {
				slog.Warn("pipeline: journal record failed",
					"seq", f.Seq, "path", art.Path, "error", err)
			}
		}
	}

	return nil
}
