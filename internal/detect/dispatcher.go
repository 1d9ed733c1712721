package detect

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nkust-monitor-iot-project-2024/stream-yolo/internal/sample"
)

// Dispatcher invokes the inference engine for admitted frames and sanitizes
// the results. The call blocks for the full duration of inference; upstream
// buffering absorbs the delay.
type Dispatcher struct {
	engine Engine
}

// NewDispatcher wraps an inference engine.
func NewDispatcher(engine Engine) *Dispatcher {
	return &Dispatcher{engine: engine}
}

// Dispatch runs inference on one frame and returns the detections together
// with elapsed wall-clock time. Every returned box is clamped to the frame
// bounds; detections whose box is empty after clamping are dropped.
//
// Engine failures are wrapped in ErrInference. The caller records the failure
// and continues with the next frame; a failed inference never aborts the
// pipeline.
func (d *Dispatcher) Dispatch(f sample.Frame) ([]Detection, time.Duration, error) {
	start := time.Now()
	raw, err := d.engine.Detect(f)
	elapsed := time.Since(start)
	if err != nil {
		return nil, elapsed, fmt.Errorf("%w: frame %d: %v", ErrInference, f.Seq, err)
	}

	detections := make([]Detection, 0, len(raw))
	for _, det := range raw {
		box, ok := det.Box.Clamp(f.Width, f.Height)
		if !ok {
			slog.Warn("detect: dropping detection with empty box",
				"seq", f.Seq,
				"label", det.Label,
				"box", fmt.Sprintf("%+v", det.Box),
				"trace_id", f.TraceID,
			)
			continue
		}
		det.Box = box
		detections = append(detections, det)
	}

	return detections, elapsed, nil
}
