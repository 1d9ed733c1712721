// Package pipeline owns the stream-processing graph and its lifecycle. It
// assembles the decode chain, resolves the late-bound source connection,
// registers the frame delivery callback, and drains the status bus until the
// stream terminates.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/nkust-monitor-iot-project-2024/stream-yolo/internal/metrics"
	"github.com/nkust-monitor-iot-project-2024/stream-yolo/internal/sample"
)

// busPollInterval keeps shutdown responsive while draining the bus.
const busPollInterval = 50 * time.Millisecond

// TerminalStatus describes how a playing stream ended.
type TerminalStatus struct {
	// Element is the graph stage that reported the terminal condition.
	Element string
	// Message is the framework's error text, empty on end-of-stream.
	Message string
	// Category is the telemetry classification of the error.
	Category ErrorCategory
}

// Controller builds the processing graph and drives its lifecycle:
// idle -> ready -> playing, then stopped on end-of-stream or failed on error.
type Controller struct {
	machine  machine
	gate     *sample.Gate
	metrics  *metrics.Metrics
	resolver linkResolver

	pipeline *gst.Pipeline
	appsink  *app.Sink

	terminal TerminalStatus
}

// New creates an idle controller around the given gate.
func New(gate *sample.Gate, m *metrics.Metrics) *Controller {
	return &Controller{gate: gate, metrics: m}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	return c.machine.current()
}

// Terminal returns details of the terminal condition after RunUntilTerminal.
func (c *Controller) Terminal() TerminalStatus {
	return c.terminal
}

// FramesSeen reports the gate's frame counter.
func (c *Controller) FramesSeen() uint64 {
	return c.gate.FramesSeen()
}

// Start assembles the graph for the given stream URI and drives the state to
// Playing. The graph mirrors the decode chain the stream needs:
//
//	rtspsrc -> rtpjitterbuffer -> rtph264depay -> avdec_h264 ->
//	videoconvert -> identity -> appsink (RGB)
//
// rtspsrc announces its output pad only after stream negotiation; that edge
// is completed by the link resolver. Construction failures wrap
// ErrElementCreation, mandatory static link failures wrap ErrLink.
func (c *Controller) Start(uri string) error {
	if state := c.machine.current(); state != StateIdle {
		return fmt.Errorf("pipeline: cannot start from state %s", state)
	}

	gst.Init(nil)

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return fmt.Errorf("%w: pipeline: %v", ErrElementCreation, err)
	}
	c.pipeline = pipeline

	src, err := newElement("rtspsrc")
	if err != nil {
		return err
	}
	src.SetProperty("location", uri)

	jitterbuffer, err := newElement("rtpjitterbuffer")
	if err != nil {
		return err
	}

	depay, err := newElement("rtph264depay")
	if err != nil {
		return err
	}
	depay.SetProperty("wait-for-keyframe", true)
	depay.SetProperty("request-keyframe", true)

	decoder, err := newElement("avdec_h264")
	if err != nil {
		return err
	}

	converter, err := newElement("videoconvert")
	if err != nil {
		return err
	}

	identity, err := newElement("identity")
	if err != nil {
		return err
	}
	identity.SetProperty("check-imperfect-offset", true)
	identity.SetProperty("check-imperfect-timestamp", true)

	appsink, err := app.NewAppSink()
	if err != nil {
		return fmt.Errorf("%w: appsink: %v", ErrElementCreation, err)
	}
	appsink.SetProperty("sync", true)
	appsink.SetProperty("caps", gst.NewCapsFromString("video/x-raw,format=RGB"))
	c.appsink = appsink

	if err := pipeline.AddMany(src, jitterbuffer, depay, decoder, converter, identity, appsink.Element); err != nil {
		return fmt.Errorf("%w: add elements: %v", ErrElementCreation, err)
	}

	if err := gst.ElementLinkMany(jitterbuffer, depay, decoder, converter, identity, appsink.Element); err != nil {
		return fmt.Errorf("%w: static chain: %v", ErrLink, err)
	}

	appsink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: func(sink *app.Sink) gst.FlowReturn {
			return onNewSample(sink, c.gate, c.metrics)
		},
	})

	// rtspsrc output pads appear at negotiation time.
	src.Connect("pad-added", func(self *gst.Element, srcPad *gst.Pad) {
		sinkPad := jitterbuffer.GetStaticPad("sink")
		if sinkPad == nil {
			slog.Error("pipeline: jitterbuffer has no sink pad")
			return
		}
		c.resolver.resolve(srcPad.GetName(), sinkPad.IsLinked, func() error {
			if ret := srcPad.Link(sinkPad); ret != gst.PadLinkOK {
				return fmt.Errorf("pad link returned %v", ret)
			}
			return nil
		})
	})

	if err := pipeline.SetState(gst.StateReady); err != nil {
		return fmt.Errorf("%w: set ready: %v", ErrStream, err)
	}
	if err := c.machine.to(StateReady); err != nil {
		return err
	}

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("%w: set playing: %v", ErrStream, err)
	}
	if err := c.machine.to(StatePlaying); err != nil {
		return err
	}

	slog.Info("pipeline: playing", "uri", uri)
	return nil
}

func newElement(factory string) (*gst.Element, error) {
	element, err := gst.NewElement(factory)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrElementCreation, factory, err)
	}
	return element, nil
}

// RunUntilTerminal drains the pipeline bus until a terminal signal arrives.
// End-of-stream transitions to Stopped and returns nil; a stream error
// transitions to Failed and returns the originating element and message
// wrapped in ErrStream. Context cancellation returns ctx.Err() without a
// state change; the caller is expected to Shutdown.
func (c *Controller) RunUntilTerminal(ctx context.Context) error {
	if state := c.machine.current(); state != StatePlaying {
		return fmt.Errorf("pipeline: cannot run from state %s", state)
	}

	bus := c.pipeline.GetPipelineBus()
	for {
		select {
		case <-ctx.Done():
			slog.Debug("pipeline: context cancelled, leaving bus drain")
			return ctx.Err()
		default:
		}

		msg := bus.TimedPop(busPollInterval)
		if msg == nil {
			continue
		}

		switch msg.Type() {
		case gst.MessageEOS:
			if err := c.machine.to(StateStopped); err != nil {
				return err
			}
			slog.Info("pipeline: end of stream",
				"frames_seen", c.gate.FramesSeen(),
			)
			return nil

		case gst.MessageError:
			gerr := msg.ParseError()
			category := classifyError(gerr.Error(), gerr.DebugString())
			c.terminal = TerminalStatus{
				Element:  msg.Source(),
				Message:  gerr.Error(),
				Category: category,
			}
			if err := c.machine.to(StateFailed); err != nil {
				return err
			}
			slog.Error("pipeline: stream error",
				"element", c.terminal.Element,
				"error", c.terminal.Message,
				"debug", gerr.DebugString(),
				"category", category.String(),
				"frames_seen", c.gate.FramesSeen(),
			)
			return fmt.Errorf("%w: %s: %s", ErrStream, c.terminal.Element, c.terminal.Message)

		case gst.MessageStateChanged:
			if msg.Source() == c.pipeline.GetName() {
				old, next := msg.ParseStateChanged()
				slog.Debug("pipeline: element state changed", "from", old, "to", next)
			}
		}
	}
}

// Shutdown releases the graph and returns the controller to Idle. Idempotent:
// safe to call from any state, any number of times.
func (c *Controller) Shutdown() error {
	if c.pipeline != nil {
		if err := c.pipeline.SetState(gst.StateNull); err != nil {
			slog.Error("pipeline: failed to reach null state on shutdown", "error", err)
		}
		c.pipeline = nil
		c.appsink = nil
	}

	// Always permitted.
	if err := c.machine.to(StateIdle); err != nil {
		return err
	}
	slog.Info("pipeline: shut down", "frames_seen", c.gate.FramesSeen())
	return nil
}
