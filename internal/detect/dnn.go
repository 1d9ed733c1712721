package detect

import (
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"

	"github.com/nkust-monitor-iot-project-2024/stream-yolo/internal/sample"
)

// DNNConfig configures the OpenCV DNN inference engine.
type DNNConfig struct {
	// ModelPath is the serialized YOLOv8 ONNX weights file.
	ModelPath string
	// InputSize is the square tensor side the model expects (640 for YOLOv8).
	InputSize int
	// ConfidenceThreshold filters candidates below this class score.
	ConfidenceThreshold float32
	// NMSThreshold is the IoU threshold for non-maximum suppression.
	NMSThreshold float32
	// Labels maps class index to name. Defaults to the COCO set.
	Labels []string
}

// dnnEngine runs a YOLOv8 ONNX model through OpenCV's DNN module. The network
// is loaded once and shared read-only across all invocations; Detect is only
// ever called from the single frame delivery thread.
type dnnEngine struct {
	net       gocv.Net
	inputSize int
	conf      float32
	nms       float32
	labels    []string
}

// NewDNNEngine loads the model weights and prepares the inference session.
// A load failure is wrapped in ErrModelLoad and must abort the process before
// any stream connection is attempted.
func NewDNNEngine(cfg DNNConfig) (Engine, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelLoad, err)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("%w: %s: unreadable or empty network", ErrModelLoad, cfg.ModelPath)
	}

	labels := cfg.Labels
	if len(labels) == 0 {
		labels = cocoLabels
	}

	return &dnnEngine{
		net:       net,
		inputSize: cfg.InputSize,
		conf:      cfg.ConfidenceThreshold,
		nms:       cfg.NMSThreshold,
		labels:    labels,
	}, nil
}

// Detect converts the frame's RGB buffer into the model's input tensor, runs
// a forward pass, and decodes the output into detections in source-frame
// pixel coordinates.
func (e *dnnEngine) Detect(f sample.Frame) ([]Detection, error) {
	mat, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC3, f.Data)
	if err != nil {
		return nil, fmt.Errorf("wrap frame buffer: %w", err)
	}
	defer mat.Close()

	// Fixed layout transform: interleaved RGB bytes to a normalized
	// 1x3xNxN float blob. swapRB stays false, the buffer is already in the
	// channel order the model was trained with.
	blob := gocv.BlobFromImage(mat, 1.0/255.0,
		image.Pt(e.inputSize, e.inputSize),
		gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	e.net.SetInput(blob, "")
	out := e.net.Forward("")
	defer out.Close()

	return e.decode(out, f.Width, f.Height)
}

// decode maps the raw YOLOv8 output tensor (1 x 4+classes x candidates) to
// detections. Candidate boxes are center-format in input-tensor coordinates
// and are scaled back to source pixels before NMS.
func (e *dnnEngine) decode(out gocv.Mat, frameWidth, frameHeight int) ([]Detection, error) {
	dims := out.Size()
	if len(dims) != 3 || dims[0] != 1 {
		return nil, fmt.Errorf("unexpected output shape %v", dims)
	}
	rows, cols := dims[1], dims[2]

	flat := out.Reshape(1, rows)
	defer flat.Close()
	candidates := gocv.NewMat()
	defer candidates.Close()
	gocv.Transpose(flat, &candidates)

	scaleX := float32(frameWidth) / float32(e.inputSize)
	scaleY := float32(frameHeight) / float32(e.inputSize)

	var (
		boxes  []image.Rectangle
		scores []float32
		class  []int
	)
	for i := 0; i < cols; i++ {
		best := -1
		var bestScore float32
		for c := 4; c < rows; c++ {
			if s := candidates.GetFloatAt(i, c); s > bestScore {
				bestScore = s
				best = c - 4
			}
		}
		if best < 0 || bestScore < e.conf {
			continue
		}

		cx := candidates.GetFloatAt(i, 0) * scaleX
		cy := candidates.GetFloatAt(i, 1) * scaleY
		w := candidates.GetFloatAt(i, 2) * scaleX
		h := candidates.GetFloatAt(i, 3) * scaleY

		boxes = append(boxes, image.Rect(
			int(cx-w/2), int(cy-h/2),
			int(cx+w/2), int(cy+h/2),
		))
		scores = append(scores, bestScore)
		class = append(class, best)
	}

	if len(boxes) == 0 {
		return nil, nil
	}

	keep := gocv.NMSBoxes(boxes, scores, e.conf, e.nms)
	detections := make([]Detection, 0, len(keep))
	for _, idx := range keep {
		label := "unknown"
		if class[idx] < len(e.labels) {
			label = e.labels[class[idx]]
		}
		detections = append(detections, Detection{
			Label:      label,
			Confidence: float64(scores[idx]),
			Box: Box{
				X1: boxes[idx].Min.X,
				Y1: boxes[idx].Min.Y,
				X2: boxes[idx].Max.X,
				Y2: boxes[idx].Max.Y,
			},
		})
	}
	return detections, nil
}

// Close releases the model session.
func (e *dnnEngine) Close() error {
	return e.net.Close()
}
