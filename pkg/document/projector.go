// ABOUTME: Flattens a timeline tree into ordered search documents
// ABOUTME: Skips nodes without a resolvable path and reports them

package document

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nainya/timejump/pkg/timeline"
)

// AnomalyFunc is told about every node skipped for lacking a path.
type AnomalyFunc func(n timeline.Node)

// Projector turns timeline nodes into search documents.
type Projector struct {
	loc       *time.Location
	log       zerolog.Logger
	onAnomaly AnomalyFunc
}

// Option configures a Projector.
type Option func(*Projector)

// WithLocation sets the location DateTime fields are rendered in.
func WithLocation(loc *time.Location) Option {
	return func(p *Projector) {
		if loc != nil {
			p.loc = loc
		}
	}
}

// WithLogger sets the projector's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Projector) { p.log = log }
}

// WithAnomalyFunc registers a callback for skipped nodes.
func WithAnomalyFunc(fn AnomalyFunc) Option {
	return func(p *Projector) { p.onAnomaly = fn }
}

// NewProjector creates a projector.
func NewProjector(opts ...Option) *Projector {
	p := &Projector{loc: time.Local, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Project flattens nodes in order. A group yields its own document followed
// by the documents of everything nested in it.
func (p *Projector) Project(nodes []timeline.Node, paths timeline.PathResolver) ([]SearchDocument, Stats) {
	var (
		docs  = make([]SearchDocument, 0, len(nodes))
		stats Stats
	)
	p.project(nodes, paths, &docs, &stats)
	stats.Documents = len(docs)
	return docs, stats
}

func (p *Projector) project(nodes []timeline.Node, paths timeline.PathResolver, docs *[]SearchDocument, stats *Stats) {
	for _, n := range nodes {
		switch v := n.(type) {
		case *timeline.Event:
			if v == nil {
				p.anomaly(n, stats, "nil event")
				continue
			}
			path, ok := paths.PathOf(v)
			if !ok {
				p.anomaly(v, stats, "event has no path")
				continue
			}
			*docs = append(*docs, p.eventDocument(v, path))

		case *timeline.Group:
			if v == nil {
				p.anomaly(n, stats, "nil group")
				continue
			}
			if path, ok := paths.PathOf(v); ok {
				*docs = append(*docs, p.groupDocument(v, path))
			} else {
				p.anomaly(v, stats, "group has no path")
			}
			p.project(v.Children, paths, docs, stats)

		default:
			p.anomaly(n, stats, "unknown node")
		}
	}
}

func (p *Projector) eventDocument(e *timeline.Event, path timeline.Path) SearchDocument {
	supplemental := make([]string, 0, len(e.Supplemental))
	for _, b := range e.Supplemental {
		supplemental = append(supplemental, b.Raw)
	}
	return SearchDocument{
		Path:         path.String(),
		DateTime:     p.formatTime(e.Range.From),
		Supplemental: strings.Join(supplemental, " "),
		Description:  e.Description,
		Tags:         strings.Join(e.Tags, " "),
		ID:           e.ID,
	}
}

func (p *Projector) groupDocument(g *timeline.Group, path timeline.Path) SearchDocument {
	return SearchDocument{
		Path:        path.String(),
		DateTime:    p.formatTime(g.Start()),
		Description: g.Title,
		Tags:        strings.Join(g.Tags, " "),
		ID:          g.ID,
		Group:       true,
	}
}

func (p *Projector) formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(p.loc).Format(DateTimeLayout)
}

func (p *Projector) anomaly(n timeline.Node, stats *Stats, reason string) {
	stats.Anomalies++
	ev := p.log.Warn().Str("reason", reason)
	switch v := n.(type) {
	case *timeline.Event:
		if v != nil {
			ev = ev.Str("node_id", v.ID).Str("description", v.Description)
		}
	case *timeline.Group:
		if v != nil {
			ev = ev.Str("node_id", v.ID).Str("title", v.Title)
		}
	}
	ev.Msg("skipping node without resolvable path")
	if p.onAnomaly != nil {
		p.onAnomaly(n)
	}
}
