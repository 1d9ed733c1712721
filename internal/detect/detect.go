// Package detect turns admitted frames into object detections. The actual
// model computation is delegated to an Engine; the dispatcher owns tensor
// conversion policy, timing, and bounding-box sanitation.
package detect

import (
	"errors"

	"github.com/nkust-monitor-iot-project-2024/stream-yolo/internal/sample"
)

var (
	// ErrModelLoad marks a failure to load the model weights at startup.
	// It is fatal: the process must not connect to the stream without a model.
	ErrModelLoad = errors.New("model load failed")
	// ErrInference marks a failed inference call. The frame is skipped and
	// the stream continues.
	ErrInference = errors.New("inference failed")
)

// Box is an axis-aligned rectangle in pixel coordinates of the source frame.
// A well-formed box satisfies 0 <= X1 < X2 <= width and 0 <= Y1 < Y2 <= height.
type Box struct {
	X1, Y1, X2, Y2 int
}

// Clamp constrains the box to a width x height frame. ok is false when the
// clamped box is empty; such boxes must never reach the export writer.
func (b Box) Clamp(width, height int) (Box, bool) {
	if b.X1 < 0 {
		b.X1 = 0
	}
	if b.Y1 < 0 {
		b.Y1 = 0
	}
	if b.X2 > width {
		b.X2 = width
	}
	if b.Y2 > height {
		b.Y2 = height
	}
	if b.X1 >= b.X2 || b.Y1 >= b.Y2 {
		return b, false
	}
	return b, true
}

// Width returns the horizontal extent of the box.
func (b Box) Width() int { return b.X2 - b.X1 }

// Height returns the vertical extent of the box.
func (b Box) Height() int { return b.Y2 - b.Y1 }

// Detection is one detected object in a frame.
type Detection struct {
	// Label is the class name, e.g. "cat".
	Label string
	// Confidence in [0,1].
	Confidence float64
	// Box delimits the object in source-frame pixels.
	Box Box
}

// Engine runs model inference on one frame. Implementations hold a long-lived
// read-only model session initialized once before streaming begins; Detect is
// called synchronously from the frame delivery thread.
type Engine interface {
	Detect(sample.Frame) ([]Detection, error)
	Close() error
}
