package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestServer_Routes(t *testing.T) {
	statsFn := func() Stats {
		return Stats{PipelineState: "playing", FramesSeen: 90, Interval: 30}
	}
	s := New(":0", statsFn, prometheus.NewRegistry())

	t.Run("healthz", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("stats", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var got Stats
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("decode stats: %v", err)
		}
		if got.FramesSeen != 90 || got.PipelineState != "playing" || got.Interval != 30 {
			t.Errorf("stats = %+v", got)
		}
	})

	t.Run("metrics", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})
}
