package pipeline

import (
	"log/slog"
	"sync/atomic"
)

// linkResolver completes a late-bound graph edge: the source element only
// announces its output pad once the stream negotiates, so the connection to
// the downstream decode chain cannot be made at assembly time.
//
// Resolution is idempotent. Duplicate pad notifications are expected and
// harmless; a failed link is a warning, never fatal, since a racing
// notification may find the link already made.
type linkResolver struct {
	done atomic.Bool
}

// resolve links one late pad. padName identifies the pad for logging,
// sinkLinked reports whether the sink side is already connected, and link
// performs the actual pad link.
func (r *linkResolver) resolve(padName string, sinkLinked func() bool, link func() error) {
	if r.done.Load() {
		slog.Debug("pipeline: pad already resolved, ignoring notification", "pad", padName)
		return
	}
	if sinkLinked() {
		slog.Debug("pipeline: sink pad already linked, ignoring notification", "pad", padName)
		return
	}

	if err := link(); err != nil {
		slog.Warn("pipeline: dynamic pad link failed", "pad", padName, "error", err)
		return
	}

	r.done.Store(true)
	slog.Info("pipeline: dynamic pad linked", "pad", padName)
}
