// Observability middleware and endpoints for metrics, health and profiling
package server

import (
	"net/http"
	"net/http/pprof"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument wraps h with request metrics and logging. path is the route
// label, never the raw URL, to keep label cardinality bounded.
func (s *Server) instrument(path string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		s.metrics.HTTPRequestsInFlight.Inc()
		defer s.metrics.HTTPRequestsInFlight.Dec()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)

		duration := time.Since(start)
		s.metrics.RecordHTTPRequest(path, strconv.Itoa(rec.status), duration)
		s.log.LogHTTPRequest(r.Method, path, rec.status, duration)
	})
}

// registerObservability mounts /metrics, /health, /ready and pprof
func (s *Server) registerObservability(mux *http.ServeMux) {
	// Prometheus metrics endpoint
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "timejump"})
	})

	// Readiness: the index for the current revision can be built
	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		snap, err := s.resolver.Current()
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, readyResponse{
			Status:    "ready",
			Revision:  snap.Revision(),
			Documents: len(snap.Documents()),
		})
	})

	// pprof endpoints for profiling
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
}

type readyResponse struct {
	Status    string `json:"status"`
	Revision  uint64 `json:"revision"`
	Documents int    `json:"documents"`
}
