package sample

import (
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Decision is the gate's verdict for one delivered frame.
type Decision int

const (
	// DecisionSkipped means the frame fell outside the decimation interval.
	DecisionSkipped Decision = iota
	// DecisionAdmitted means the frame was handed to detection.
	DecisionAdmitted
	// DecisionRejected means the frame was admitted by the interval but its
	// buffer failed validation.
	DecisionRejected
)

func (d Decision) String() string {
	switch d {
	case DecisionSkipped:
		return "skipped"
	case DecisionAdmitted:
		return "admitted"
	case DecisionRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Sink consumes admitted frames. Process runs synchronously inside the
// delivery callback; a slow sink applies backpressure to the decode chain.
type Sink interface {
	Process(Frame) error
}

// Gate counts every delivered frame and admits one in every interval frames
// to the sink. The counter is owned by the gate and updated atomically: the
// delivery thread belongs to the media framework while stats readers run on
// other goroutines.
type Gate struct {
	interval uint64
	counter  atomic.Uint64
	sink     Sink
}

// NewGate creates a gate with the given decimation interval. The interval
// must be at least 1; interval 1 admits every frame.
func NewGate(interval uint64, sink Sink) (*Gate, error) {
	if interval == 0 {
		return nil, fmt.Errorf("sample: decimation interval must be at least 1")
	}
	if sink == nil {
		return nil, fmt.Errorf("sample: sink is required")
	}
	return &Gate{interval: interval, sink: sink}, nil
}

// HandleFrame processes one delivered frame. The counter advances exactly
// once per call regardless of the outcome. Frame n is admitted iff
// n mod interval == 0, with n starting at 0.
//
// A validation failure or sink error is returned for logging but never
// terminates the stream: containment policy is decided by the caller.
func (g *Gate) HandleFrame(f Frame) (Decision, error) {
	seq := g.counter.Add(1) - 1
	if seq%g.interval != 0 {
		return DecisionSkipped, nil
	}

	f.Seq = seq
	if err := f.Validate(); err != nil {
		return DecisionRejected, fmt.Errorf("sample: frame %d: %w", seq, err)
	}

	slog.Debug("sample: frame admitted",
		"seq", seq,
		"size", fmt.Sprintf("%dx%d", f.Width, f.Height),
		"trace_id", f.TraceID,
	)

	if err := g.sink.Process(f); err != nil {
		return DecisionAdmitted, fmt.Errorf("sample: frame %d: %w", seq, err)
	}
	return DecisionAdmitted, nil
}

// FramesSeen returns the total number of frames delivered so far.
func (g *Gate) FramesSeen() uint64 {
	return g.counter.Load()
}

// Interval returns the configured decimation interval.
func (g *Gate) Interval() uint64 {
	return g.interval
}
