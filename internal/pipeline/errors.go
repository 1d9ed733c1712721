package pipeline

import (
	"errors"
	"strings"
)

var (
	// ErrElementCreation marks a required graph stage that could not be
	// constructed. Fatal before start.
	ErrElementCreation = errors.New("element creation failed")
	// ErrLink marks a mandatory static connection that could not be made.
	// Fatal before start.
	ErrLink = errors.New("element link failed")
	// ErrStream marks a decode or transport error reported by the media
	// framework while playing. The controller transitions to Failed and
	// surfaces it to the operator.
	ErrStream = errors.New("stream error")
)

// ErrorCategory classifies stream errors for telemetry. Classification is
// heuristic string matching: the framework's error type does not expose a
// domain.
type ErrorCategory int

const (
	// CategoryNetwork covers connection, timeout, and DNS failures.
	CategoryNetwork ErrorCategory = iota
	// CategoryCodec covers decode and format negotiation failures.
	CategoryCodec
	// CategoryAuth covers authentication and authorization failures.
	CategoryAuth
	// CategoryUnknown covers everything else.
	CategoryUnknown
)

func (c ErrorCategory) String() string {
	switch c {
	case CategoryNetwork:
		return "network"
	case CategoryCodec:
		return "codec"
	case CategoryAuth:
		return "auth"
	default:
		return "unknown"
	}
}

var categoryKeywords = []struct {
	category ErrorCategory
	words    []string
}{
	// Auth first: "401 unauthorized" also matches network keywords.
	{CategoryAuth, []string{
		"unauthorized", "401", "403", "forbidden", "authentication",
		"credentials", "password",
	}},
	{CategoryCodec, []string{
		"codec", "decode", "format", "negotiat", "caps", "h264", "h265",
		"no decoder", "missing plugin",
	}},
	{CategoryNetwork, []string{
		"connection", "timeout", "unreachable", "network", "dns", "resolve",
		"socket", "tcp", "udp", "rtsp", "could not connect", "not found",
	}},
}

// classifyError maps a stream error message and its debug detail to a
// telemetry category.
func classifyError(message, debug string) ErrorCategory {
	combined := strings.ToLower(message + " " + debug)
	for _, entry := range categoryKeywords {
		for _, word := range entry.words {
			if strings.Contains(combined, word) {
				return entry.category
			}
		}
	}
	return CategoryUnknown
}
