// timejump HTTP server
// Resolves jump queries and full-text searches against a timeline
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/nainya/timejump/internal/config"
	"github.com/nainya/timejump/internal/logger"
	"github.com/nainya/timejump/internal/metrics"
	"github.com/nainya/timejump/internal/server"
	"github.com/nainya/timejump/pkg/daterange"
	"github.com/nainya/timejump/pkg/daterange/grammar"
	"github.com/nainya/timejump/pkg/daterange/natural"
	"github.com/nainya/timejump/pkg/journal"
	"github.com/nainya/timejump/pkg/jump"
	"github.com/nainya/timejump/pkg/timeline"
)

func main() {
	cfg := config.Load()

	flag.StringVar(&cfg.Server.Addr, "addr", cfg.Server.Addr, "HTTP listen address")
	flag.StringVar(&cfg.Timeline.Path, "timeline", cfg.Timeline.Path, "Timeline JSON file to load")
	flag.StringVar(&cfg.Journal.Path, "journal", cfg.Journal.Path, "Journal file for timeline edits (empty disables)")
	flag.StringVar(&cfg.Timeline.Timezone, "tz", cfg.Timeline.Timezone, "Timezone for calendar days")
	flag.StringVar(&cfg.Search.DefaultScale, "scale", cfg.Search.DefaultScale, "Default viewport scale")
	flag.IntVar(&cfg.Search.ResultLimit, "limit", cfg.Search.ResultLimit, "Maximum full-text matches per query (0 = unlimited)")
	flag.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "Log level: debug, info, warn, error")
	flag.BoolVar(&cfg.Log.Pretty, "log-pretty", cfg.Log.Pretty, "Human-readable log output")
	query := flag.String("query", "", "Resolve one query, print the results and exit")
	flag.Parse()

	log := logger.NewLogger(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	if err := run(cfg, log, *query); err != nil {
		log.Error("fatal").Err(err).Msg("timejump exited with error")
		os.Exit(1)
	}
}

func run(cfg config.Config, log *logger.Logger, query string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	scale, err := cfg.Scale()
	if err != nil {
		return err
	}

	var nodes []timeline.Node
	if cfg.Timeline.Path != "" {
		nodes, err = timeline.LoadFile(cfg.Timeline.Path, loc)
		if err != nil {
			return err
		}
	}
	store := timeline.NewStore(nodes...)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)

	var j *journal.Journal
	if cfg.Journal.Path != "" {
		j, err = journal.Open(cfg.Journal.Path,
			journal.WithSync(cfg.Journal.Sync),
			journal.WithLogger(log.Component("journal")),
		)
		if err != nil {
			return err
		}
		defer j.Close()
	}
	recorder := journal.NewRecorder(store, j,
		journal.WithRecorderLogger(log.Component("journal")),
		journal.WithObserver(m),
	)
	if j != nil {
		stats := recorder.Replay(j.Recovered(), loc)
		log.LogJournalReplay(j.Path(), stats.Entries, stats.Applied, stats.Skipped, stats.LastLSN)
	}

	dates := daterange.NewResolver(
		grammar.New(grammar.WithLocation(loc)),
		natural.New(),
		daterange.WithLocation(loc),
		daterange.WithLogger(log.Component("daterange")),
	)
	resolver := jump.New(store, dates,
		jump.WithScale(timeline.FixedScale(scale)),
		jump.WithLimit(cfg.Search.ResultLimit),
		jump.WithLogger(log.Component("resolver")),
		jump.WithObserver(m),
	)

	// Build the first index eagerly so startup reports projection problems.
	buildStart := time.Now()
	snap, err := resolver.Current()
	if err != nil {
		return err
	}
	buildTook := time.Since(buildStart)

	if query != "" {
		return printResults(os.Stdout, resolver, query)
	}

	log.LogServerStart(cfg.Server.Addr, cfg.Timeline.Path)
	log.LogIndexBuild(snap.Revision(), len(snap.Documents()), snap.Anomalies(), buildTook)

	if j != nil {
		compactor := journal.NewCompactor(recorder, cfg.Journal.CompactInterval, log.Component("journal"))
		compactor.SetMinSize(cfg.Journal.CompactMinBytes)
		compactor.Start()
		defer compactor.Stop()
	}

	srv := server.New(server.Options{
		Addr:     cfg.Server.Addr,
		Store:    store,
		Recorder: recorder,
		Resolver: resolver,
		Metrics:  m,
		Gatherer: reg,
		Logger:   log,
		Location: loc,
	})

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	log.LogServerReady(cfg.Server.Addr, snap.Revision())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.LogServerShutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

func printResults(w io.Writer, resolver *jump.Resolver, query string) error {
	results, ok := resolver.Search(query)
	if !ok {
		return nil
	}
	for _, res := range results {
		switch res.Kind {
		case jump.KindDateRange:
			fmt.Fprintf(w, "jump\t%s\t%s\t%s\n",
				res.DateRange.From.Format(time.RFC3339),
				res.DateRange.To.Format(time.RFC3339),
				res.DateRange.Scale)
		case jump.KindMatch:
			fmt.Fprintf(w, "match\t%s\t%.4f\t%s\n", res.Match.Ref, res.Match.Score, res.Match.Document.Description)
		}
	}
	return nil
}
