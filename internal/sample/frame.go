// Package sample implements the frame sample gate: it receives every decoded
// frame in arrival order, counts it, and decides via a fixed decimation
// interval whether the frame proceeds to detection. The gate holds no
// reference to the media framework so its logic is testable with plain
// frames.
package sample

import (
	"errors"
	"fmt"
	"time"
)

// PixelFormat identifies the layout of a frame's pixel buffer.
type PixelFormat string

// FormatRGB is interleaved 8-bit RGB, 3 bytes per pixel. It is the only
// format the decode chain negotiates.
const FormatRGB PixelFormat = "RGB"

// ErrFrameDecode marks a frame whose buffer does not match its declared
// geometry. Such frames are skipped, never retried.
var ErrFrameDecode = errors.New("frame buffer fails validation")

// Frame is a single decoded video frame. The pixel buffer is owned by the
// gate's call stack for the duration of processing; no component retains a
// reference after the call returns.
type Frame struct {
	// Seq is the monotonic sequence number, assigned by the gate.
	Seq uint64
	// Timestamp is when the frame was pulled from the decoder.
	Timestamp time.Time
	// Width in pixels.
	Width int
	// Height in pixels.
	Height int
	// Format describes the layout of Data.
	Format PixelFormat
	// Data is the raw pixel buffer.
	Data []byte
	// TraceID correlates log lines for one frame across components.
	TraceID string
}

// Validate checks the pixel buffer against the declared geometry.
func (f Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: non-positive dimensions %dx%d", ErrFrameDecode, f.Width, f.Height)
	}
	if f.Format != FormatRGB {
		return fmt.Errorf("%w: unsupported pixel format %q", ErrFrameDecode, f.Format)
	}
	if want := f.Width * f.Height * 3; len(f.Data) != want {
		return fmt.Errorf("%w: buffer size %d, want %d for %dx%d RGB",
			ErrFrameDecode, len(f.Data), want, f.Width, f.Height)
	}
	return nil
}
