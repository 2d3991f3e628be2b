// Package server exposes the jump resolver and the timeline store over HTTP
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nainya/timejump/internal/logger"
	"github.com/nainya/timejump/internal/metrics"
	"github.com/nainya/timejump/pkg/journal"
	"github.com/nainya/timejump/pkg/jump"
	"github.com/nainya/timejump/pkg/timeline"
)

// maxBodyBytes caps request bodies for timeline uploads
const maxBodyBytes = 10 << 20

// Options wires a Server to its collaborators
type Options struct {
	Addr     string
	Store    *timeline.Store
	Recorder *journal.Recorder // applies edits; defaults to an unjournaled recorder over Store
	Resolver *jump.Resolver
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Logger   *logger.Logger
	Location *time.Location // zone for timeline dates without one
}

// Server serves search, timeline editing and observability endpoints
type Server struct {
	store    *timeline.Store
	editor   *journal.Recorder
	resolver *jump.Resolver
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	log      *logger.Logger
	loc      *time.Location
	server   *http.Server
}

// New creates a server. Metrics default to a private registry.
func New(opts Options) *Server {
	s := &Server{
		store:    opts.Store,
		editor:   opts.Recorder,
		resolver: opts.Resolver,
		metrics:  opts.Metrics,
		gatherer: opts.Gatherer,
		log:      opts.Logger,
		loc:      opts.Location,
	}
	if s.store == nil && s.editor != nil {
		s.store = s.editor.Store()
	}
	if s.editor == nil {
		s.editor = journal.NewRecorder(s.store, nil)
	}
	if s.metrics == nil {
		reg := prometheus.NewRegistry()
		s.metrics = metrics.NewMetrics(reg)
		s.gatherer = reg
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	if s.loc == nil {
		s.loc = time.Local
	}

	s.server = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the routed handler for all endpoints
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /search", s.instrument("/search", s.handleSearch))
	mux.Handle("GET /timeline", s.instrument("/timeline", s.handleGetTimeline))
	mux.Handle("PUT /timeline", s.instrument("/timeline", s.handlePutTimeline))
	mux.Handle("POST /timeline/events", s.instrument("/timeline/events", s.handleAppendEvent))
	mux.Handle("DELETE /timeline/nodes/{path}", s.instrument("/timeline/nodes", s.handleRemoveNode))

	s.registerObservability(mux)
	return mux
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.log.Info("http_listen").
		Str("addr", s.server.Addr).
		Str("search", fmt.Sprintf("http://%s/search?q=", s.server.Addr)).
		Str("metrics", fmt.Sprintf("http://%s/metrics", s.server.Addr)).
		Str("pprof", fmt.Sprintf("http://%s/debug/pprof/", s.server.Addr)).
		Msg("HTTP endpoints available")

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("http_shutdown").Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
