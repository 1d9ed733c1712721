package pipeline

import "testing"

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name    string
		message string
		debug   string
		want    ErrorCategory
	}{
		{"connection refused", "Could not connect to server", "", CategoryNetwork},
		{"timeout", "operation failed", "tcp read timeout after 10s", CategoryNetwork},
		{"dns", "could not resolve host camera.local", "", CategoryNetwork},
		{"decode failure", "internal data stream error", "h264 decode error, skipping", CategoryCodec},
		{"negotiation", "not-negotiated", "caps mismatch at videoconvert", CategoryCodec},
		{"missing plugin", "your installation is missing plugin rtph264depay", "", CategoryCodec},
		{"unauthorized", "401 Unauthorized", "", CategoryAuth},
		{"forbidden", "server returned 403 Forbidden", "", CategoryAuth},
		{"bad credentials", "invalid password for stream", "", CategoryAuth},
		{"unclassified", "something odd happened", "", CategoryUnknown},
		{"empty", "", "", CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyError(tt.message, tt.debug); got != tt.want {
				t.Errorf("classifyError(%q, %q) = %s, want %s",
					tt.message, tt.debug, got, tt.want)
			}
		})
	}
}

func TestErrorCategory_String(t *testing.T) {
	pairs := map[ErrorCategory]string{
		CategoryNetwork: "network",
		CategoryCodec:   "codec",
		CategoryAuth:    "auth",
		CategoryUnknown: "unknown",
	}
	for cat, want := range pairs {
		if cat.String() != want {
			t.Errorf("%d.String() = %q, want %q", cat, cat.String(), want)
		}
	}
}
