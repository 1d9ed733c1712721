// Package metrics exposes Prometheus instrumentation for the sampling and
// export pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline's Prometheus collectors, registered on a
// dedicated registry so tests can create isolated instances.
type Metrics struct {
	Registry *prometheus.Registry

	FramesSeen        prometheus.Counter
	FramesAdmitted    prometheus.Counter
	FramesRejected    prometheus.Counter
	Detections        prometheus.Counter
	ArtifactsWritten  prometheus.Counter
	ExportFailures    prometheus.Counter
	InferenceFailures prometheus.Counter
	InferenceSeconds  prometheus.Histogram
}

// New creates and registers all collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		FramesSeen: factory.NewCounter(prometheus.CounterOpts{
			Name: "streamyolo_frames_seen_total",
			Help: "Frames delivered by the decode pipeline.",
		}),
		FramesAdmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "streamyolo_frames_admitted_total",
			Help: "Frames admitted to detection by the sample gate.",
		}),
		FramesRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "streamyolo_frames_rejected_total",
			Help: "Admitted frames whose buffer failed validation.",
		}),
		Detections: factory.NewCounter(prometheus.CounterOpts{
			Name: "streamyolo_detections_total",
			Help: "Detections returned by the inference engine after clamping.",
		}),
		ArtifactsWritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "streamyolo_artifacts_written_total",
			Help: "Cropped artifacts persisted to disk.",
		}),
		ExportFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "streamyolo_export_failures_total",
			Help: "Per-detection artifact writes that failed.",
		}),
		InferenceFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "streamyolo_inference_failures_total",
			Help: "Inference calls that returned an error.",
		}),
		InferenceSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "streamyolo_inference_seconds",
			Help:    "Wall-clock duration of inference calls.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
