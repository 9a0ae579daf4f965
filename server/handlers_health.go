package server

import (
	"log/slog"
	"net/http"

	"github.com/onnwee/metasepia/telemetry"
)

// HandleHealthz responds to liveness probe requests by checking database connectivity.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := h.pinger.Ping(r.Context()); err != nil {
		telemetry.LoggerWithCorr(r.Context()).Warn("health check failed", slog.Any("err", err), slog.String("component", "http"))
		http.Error(w, "unhealthy", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
