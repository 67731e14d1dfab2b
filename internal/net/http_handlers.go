package net

import (
	"encoding/json"
	nethttp "net/http"
	"net/http/pprof"
	"time"

	"hauntsim/server/internal/observability"
	"hauntsim/server/internal/telemetry"
)

// HTTPHandlerConfig wires the observability surfaces of a run.
type HTTPHandlerConfig struct {
	// Feed serves the spectator websocket at /ws.
	Feed nethttp.Handler
	// Metrics serves the Prometheus exposition at /metrics.
	Metrics nethttp.Handler
	// Diagnostics returns a JSON-encodable snapshot for /diagnostics.
	Diagnostics   func() any
	Logger        telemetry.Logger
	Observability observability.Config
}

// NewHTTPHandler builds the read-only HTTP surface.
func NewHTTPHandler(cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.NopLogger()
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/healthz", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			Status     string `json:"status"`
			ServerTime int64  `json:"serverTime"`
			Run        any    `json:"run,omitempty"`
		}{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
		}
		if cfg.Diagnostics != nil {
			payload.Run = cfg.Diagnostics()
		}

		data, err := json.Marshal(payload)
		if err != nil {
			logger.Printf("failed to encode diagnostics: %v", err)
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	if cfg.Feed != nil {
		mux.Handle("/ws", cfg.Feed)
	}
	if cfg.Metrics != nil {
		mux.Handle("/metrics", cfg.Metrics)
	}

	if cfg.Observability.EnablePprofTrace {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
		logger.Printf("pprof endpoints enabled under /debug/pprof/")
	}

	return mux
}

func httpError(w nethttp.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)
	w.Write([]byte(message))
}
