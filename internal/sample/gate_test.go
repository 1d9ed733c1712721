package sample

import (
	"errors"
	"fmt"
	"testing"
)

// recordingSink captures the frames it is asked to process.
type recordingSink struct {
	frames []Frame
	err    error
}

func (s *recordingSink) Process(f Frame) error {
	s.frames = append(s.frames, f)
	return s.err
}

func validFrame(w, h int) Frame {
	return Frame{
		Width:  w,
		Height: h,
		Format: FormatRGB,
		Data:   make([]byte, w*h*3),
	}
}

func TestGate_DecimationInterval(t *testing.T) {
	// 90 frames at K=30: detection attempted exactly for sequences 0, 30, 60
	// and the counter ends at 90.
	sink := &recordingSink{}
	gate, err := NewGate(30, sink)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 90; i++ {
		if _, err := gate.HandleFrame(validFrame(64, 48)); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}

	if got := gate.FramesSeen(); got != 90 {
		t.Errorf("FramesSeen = %d, want 90", got)
	}
	if len(sink.frames) != 3 {
		t.Fatalf("admitted %d frames, want 3", len(sink.frames))
	}
	for i, want := range []uint64{0, 30, 60} {
		if sink.frames[i].Seq != want {
			t.Errorf("admitted frame %d has seq %d, want %d", i, sink.frames[i].Seq, want)
		}
	}
}

func TestGate_AdmitIffMod(t *testing.T) {
	// Property: for all n, detection is attempted iff n mod K == 0.
	for _, k := range []uint64{1, 2, 7, 30} {
		t.Run(fmt.Sprintf("K=%d", k), func(t *testing.T) {
			sink := &recordingSink{}
			gate, err := NewGate(k, sink)
			if err != nil {
				t.Fatal(err)
			}

			const frames = 100
			for n := uint64(0); n < frames; n++ {
				dec, err := gate.HandleFrame(validFrame(8, 8))
				if err != nil {
					t.Fatalf("frame %d: %v", n, err)
				}
				want := DecisionSkipped
				if n%k == 0 {
					want = DecisionAdmitted
				}
				if dec != want {
					t.Errorf("frame %d: decision %v, want %v", n, dec, want)
				}
			}
			if gate.FramesSeen() != frames {
				t.Errorf("FramesSeen = %d, want %d", gate.FramesSeen(), frames)
			}
		})
	}
}

func TestGate_MalformedBufferRejected(t *testing.T) {
	sink := &recordingSink{}
	gate, err := NewGate(1, sink)
	if err != nil {
		t.Fatal(err)
	}

	bad := validFrame(100, 100)
	bad.Data = bad.Data[:17] // truncated buffer

	dec, err := gate.HandleFrame(bad)
	if dec != DecisionRejected {
		t.Errorf("decision = %v, want rejected", dec)
	}
	if !errors.Is(err, ErrFrameDecode) {
		t.Errorf("error = %v, want ErrFrameDecode", err)
	}
	if len(sink.frames) != 0 {
		t.Errorf("malformed frame reached the sink")
	}

	// The counter must still advance and the stream continues.
	if gate.FramesSeen() != 1 {
		t.Errorf("FramesSeen = %d, want 1", gate.FramesSeen())
	}
	if dec, err := gate.HandleFrame(validFrame(100, 100)); dec != DecisionAdmitted || err != nil {
		t.Errorf("stream did not continue after rejection: %v %v", dec, err)
	}
}

func TestGate_SinkErrorIsContained(t *testing.T) {
	sinkErr := errors.New("inference backend down")
	sink := &recordingSink{err: sinkErr}
	gate, err := NewGate(1, sink)
	if err != nil {
		t.Fatal(err)
	}

	dec, err := gate.HandleFrame(validFrame(8, 8))
	if dec != DecisionAdmitted {
		t.Errorf("decision = %v, want admitted", dec)
	}
	if !errors.Is(err, sinkErr) {
		t.Errorf("sink error not surfaced: %v", err)
	}

	// Next frame is processed normally: failure never stops the stream.
	sink.err = nil
	if dec, err := gate.HandleFrame(validFrame(8, 8)); dec != DecisionAdmitted || err != nil {
		t.Errorf("stream did not continue after sink error: %v %v", dec, err)
	}
	if gate.FramesSeen() != 2 {
		t.Errorf("FramesSeen = %d, want 2", gate.FramesSeen())
	}
}

func TestNewGate_Validation(t *testing.T) {
	if _, err := NewGate(0, &recordingSink{}); err == nil {
		t.Error("interval 0 should be rejected")
	}
	if _, err := NewGate(30, nil); err == nil {
		t.Error("nil sink should be rejected")
	}
}

func TestFrame_Validate(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
		ok    bool
	}{
		{"valid", validFrame(100, 100), true},
		{"short buffer", Frame{Width: 100, Height: 100, Format: FormatRGB, Data: make([]byte, 100)}, false},
		{"long buffer", Frame{Width: 10, Height: 10, Format: FormatRGB, Data: make([]byte, 10*10*3+1)}, false},
		{"zero width", Frame{Width: 0, Height: 10, Format: FormatRGB}, false},
		{"unknown format", Frame{Width: 10, Height: 10, Format: "NV12", Data: make([]byte, 10*10*3)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.frame.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.ok && !errors.Is(err, ErrFrameDecode) {
				t.Errorf("Validate() = %v, want ErrFrameDecode", err)
			}
		})
	}
}
