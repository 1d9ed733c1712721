// Package export persists one cropped image per detection. Encoding is
// delegated to the imaging library; the writer only supplies pixel data and
// a crop rectangle.
package export

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/nkust-monitor-iot-project-2024/stream-yolo/internal/detect"
	"github.com/nkust-monitor-iot-project-2024/stream-yolo/internal/sample"
)

// ErrExportIO marks a failure to persist one detection's artifact. Writes are
// independent: one failure never blocks the remaining detections of the frame.
var ErrExportIO = errors.New("artifact write failed")

// Written describes one artifact persisted to disk.
type Written struct {
	Path      string
	Detection detect.Detection
}

// Writer crops detected regions out of admitted frames and saves them as PNG
// files named frame-<seq>-<label>-<confidence .2f>.png. Two detections with
// the same sequence, label, and rounded confidence share a name; the later
// write overwrites the earlier one.
type Writer struct {
	dir string
}

// NewWriter creates the output directory if needed.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("export: create output directory: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// ArtifactName returns the deterministic file name for one detection.
func ArtifactName(seq uint64, label string, confidence float64) string {
	return fmt.Sprintf("frame-%d-%s-%.2f.png", seq, label, confidence)
}

// Export writes one artifact per detection. Each box is clamped to the frame
// bounds before cropping; detections empty after clamping are skipped. The
// returned slice lists the artifacts actually written; the error joins every
// per-detection failure and is nil when all writes succeeded.
func (w *Writer) Export(f sample.Frame, detections []detect.Detection) ([]Written, error) {
	if len(detections) == 0 {
		return nil, nil
	}

	img, err := rgbaFromFrame(f)
	if err != nil {
		return nil, fmt.Errorf("export: frame %d: %w", f.Seq, err)
	}

	var (
		written []Written
		errs    []error
	)
	for _, det := range detections {
		box, ok := det.Box.Clamp(f.Width, f.Height)
		if !ok {
			slog.Warn("export: skipping detection with empty box",
				"seq", f.Seq, "label", det.Label, "trace_id", f.TraceID)
			continue
		}

		crop := imaging.Crop(img, image.Rect(box.X1, box.Y1, box.X2, box.Y2))
		path := filepath.Join(w.dir, ArtifactName(f.Seq, det.Label, det.Confidence))

		if err := imaging.Save(crop, path); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %v", ErrExportIO, path, err))
			slog.Warn("export: artifact write failed",
				"seq", f.Seq, "label", det.Label, "path", path,
				"error", err, "trace_id", f.TraceID)
			continue
		}

		written = append(written, Written{Path: path, Detection: det})
		slog.Debug("export: artifact written",
			"seq", f.Seq, "label", det.Label,
			"confidence", fmt.Sprintf("%.2f", det.Confidence),
			"path", path, "trace_id", f.TraceID)
	}

	return written, errors.Join(errs...)
}

// rgbaFromFrame expands the frame's interleaved RGB bytes into an image.RGBA
// the codec library can consume.
func rgbaFromFrame(f sample.Frame) (*image.RGBA, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for i := 0; i < f.Width*f.Height; i++ {
		img.Pix[i*4+0] = f.Data[i*3+0]
		img.Pix[i*4+1] = f.Data[i*3+1]
		img.Pix[i*4+2] = f.Data[i*3+2]
		img.Pix[i*4+3] = 255
	}
	return img, nil
}
