package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/nkust-monitor-iot-project-2024/stream-yolo/internal/metrics"
	"github.com/nkust-monitor-iot-project-2024/stream-yolo/internal/sample"
)

// onNewSample is the appsink callback: the single point where the media
// framework's streaming thread enters our code. It pulls the decoded sample,
// copies the pixel buffer, and hands a Frame to the gate.
//
// Delivery is strictly sequential per stream, so the gate is never invoked
// concurrently. The callback always returns FlowOK: containment policy lives
// with the gate and the bus drain, a bad frame must not terminate the stream.
func onNewSample(sink *app.Sink, gate *sample.Gate, m *metrics.Metrics) gst.FlowReturn {
	s := sink.PullSample()
	if s == nil {
		slog.Warn("pipeline: failed to pull sample from appsink, skipping frame")
		return gst.FlowOK
	}

	buffer := s.GetBuffer()
	if buffer == nil {
		slog.Warn("pipeline: sample carries no buffer, skipping frame")
		return gst.FlowOK
	}

	width, height, err := sampleDimensions(s)
	if err != nil {
		slog.Warn("pipeline: could not read sample caps, skipping frame", "error", err)
		return gst.FlowOK
	}

	mapInfo := buffer.Map(gst.MapRead)
	raw := mapInfo.Bytes()
	if len(raw) == 0 {
		buffer.Unmap()
		slog.Warn("pipeline: empty buffer received, skipping frame")
		return gst.FlowOK
	}

	// The framework reuses the buffer after this callback returns.
	data := make([]byte, len(raw))
	copy(data, raw)
	buffer.Unmap()

	frame := sample.Frame{
		Timestamp: time.Now(),
		Width:     width,
		Height:    height,
		Format:    sample.FormatRGB,
		Data:      data,
		TraceID:   uuid.NewString(),
	}

	decision, err := gate.HandleFrame(frame)
	m.FramesSeen.Inc()
	switch decision {
	case sample.DecisionAdmitted:
		m.FramesAdmitted.Inc()
	case sample.DecisionRejected:
		m.FramesRejected.Inc()
	}
	if err != nil {
		// Contained: the failure is recorded and the stream continues.
		slog.Warn("pipeline: frame processing failed",
			"decision", decision.String(),
			"error", err,
			"trace_id", frame.TraceID,
		)
	}

	return gst.FlowOK
}

// sampleDimensions reads width and height from the sample's negotiated caps.
func sampleDimensions(s *gst.Sample) (width, height int, err error) {
	caps := s.GetCaps()
	if caps == nil {
		return 0, 0, fmt.Errorf("sample has no caps")
	}
	structure := caps.GetStructureAt(0)
	if structure == nil {
		return 0, 0, fmt.Errorf("caps have no structure")
	}

	wv, err := structure.GetValue("width")
	if err != nil {
		return 0, 0, fmt.Errorf("caps width: %w", err)
	}
	hv, err := structure.GetValue("height")
	if err != nil {
		return 0, 0, fmt.Errorf("caps height: %w", err)
	}

	width, ok := wv.(int)
	if !ok {
		return 0, 0, fmt.Errorf("caps width has type %T", wv)
	}
	height, ok = hv.(int)
	if !ok {
		return 0, 0, fmt.Errorf("caps height has type %T", hv)
	}
	return width, height, nil
}
