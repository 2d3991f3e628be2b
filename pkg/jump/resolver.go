// ABOUTME: Query resolver merging date-range interpretation with full-text hits
// ABOUTME: Memoizes one projection and index per timeline revision

package jump

import (
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/nainya/timejump/pkg/daterange"
	"github.com/nainya/timejump/pkg/document"
	"github.com/nainya/timejump/pkg/fulltext"
	"github.com/nainya/timejump/pkg/timeline"
)

// Field weights of the full-text index.
const (
	BoostDescription  = 3
	BoostTags         = 3
	BoostSupplemental = 1
	BoostDateTime     = 0.5
)

// Resolver answers jump queries against a timeline source.
type Resolver struct {
	source    timeline.Source
	dates     *daterange.Resolver
	scale     timeline.ScaleSource
	projector *document.Projector
	log       zerolog.Logger
	obs       Observer
	limit     int

	snap  atomic.Pointer[Snapshot]
	group singleflight.Group
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the resolver's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Resolver) { r.log = log }
}

// WithObserver reports index builds and queries to obs.
func WithObserver(obs Observer) Option {
	return func(r *Resolver) {
		if obs != nil {
			r.obs = obs
		}
	}
}

// WithScale sets the default scale source used by Search.
func WithScale(scale timeline.ScaleSource) Option {
	return func(r *Resolver) {
		if scale != nil {
			r.scale = scale
		}
	}
}

// WithLimit caps the number of full-text matches per query. Zero means no cap.
func WithLimit(n int) Option {
	return func(r *Resolver) {
		if n >= 0 {
			r.limit = n
		}
	}
}

// WithProjector replaces the projector used to build documents.
func WithProjector(p *document.Projector) Option {
	return func(r *Resolver) {
		if p != nil {
			r.projector = p
		}
	}
}

// New creates a resolver over src. Dates are interpreted by dates.
func New(src timeline.Source, dates *daterange.Resolver, opts ...Option) *Resolver {
	r := &Resolver{
		source: src,
		dates:  dates,
		scale:  timeline.FixedScale(daterange.ScaleMonth),
		log:    zerolog.Nop(),
		obs:    nopObserver{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.projector == nil {
		r.projector = document.NewProjector(
			document.WithLocation(dates.Location()),
			document.WithLogger(r.log),
			document.WithAnomalyFunc(func(timeline.Node) { r.obs.ProjectionAnomaly() }),
		)
	}
	return r
}

// Search resolves input at the default scale. See SearchAt.
func (r *Resolver) Search(input string) ([]Result, bool) {
	return r.SearchAt(input, r.scale)
}

// SearchAt resolves input and reports ok=false when input is empty, which is
// distinct from an empty result list. A date-range interpretation, when
// there is one, comes first, followed by full-text matches by descending
// score. Index failures are logged and yield no matches.
func (r *Resolver) SearchAt(input string, scale timeline.ScaleSource) ([]Result, bool) {
	if input == "" {
		return nil, false
	}
	if scale == nil {
		scale = r.scale
	}
	start := time.Now()

	results := make([]Result, 0, 1)
	dateResults := 0
	if q := r.dates.Resolve(input, scale.Scale()); q != nil {
		results = append(results, Result{Kind: KindDateRange, DateRange: q})
		dateResults = 1
	}

	matched, err := r.searchText(input)
	if err != nil {
		r.log.Debug().Err(err).Str("query", input).Msg("full-text search failed")
	}
	results = append(results, matched...)

	took := time.Since(start)
	outcome := queryOutcome(dateResults, len(matched), err)
	r.obs.QueryServed(outcome, dateResults, len(matched), took)
	r.log.Debug().
		Str("query", input).
		Str("outcome", outcome).
		Int("matches", len(matched)).
		Dur("duration", took).
		Msg("query resolved")
	return results, true
}

func queryOutcome(dates, matches int, err error) string {
	switch {
	case err != nil:
		return OutcomeError
	case dates > 0 && matches > 0:
		return OutcomeBoth
	case dates > 0:
		return OutcomeDate
	case matches > 0:
		return OutcomeText
	}
	return OutcomeEmpty
}

func (r *Resolver) searchText(input string) ([]Result, error) {
	snap, err := r.Current()
	if err != nil {
		return nil, err
	}
	hits, err := snap.query(Sanitize(input))
	if err != nil {
		return nil, err
	}
	if r.limit > 0 && len(hits) > r.limit {
		hits = hits[:r.limit]
	}

	out := make([]Result, 0, len(hits))
	for _, h := range hits {
		doc, ok := snap.Document(h.Ref)
		if !ok {
			continue
		}
		path, err := timeline.ParsePath(h.Ref)
		if err != nil {
			r.log.Warn().Err(err).Str("ref", h.Ref).Msg("match with unparseable path")
			continue
		}
		out = append(out, Result{Kind: KindMatch, Match: &Match{
			Path:     path,
			Ref:      h.Ref,
			Score:    h.Score,
			Terms:    h.Terms,
			Document: doc,
		}})
	}
	return out, nil
}

// Current returns the snapshot for the source's current revision, building
// it if needed. Concurrent callers for the same revision share one build.
func (r *Resolver) Current() (*Snapshot, error) {
	view := r.source.View()
	rev := view.Revision()
	if s := r.snap.Load(); s != nil && s.revision == rev {
		return s, nil
	}

	v, err, _ := r.group.Do(strconv.FormatUint(rev, 10), func() (any, error) {
		if s := r.snap.Load(); s != nil && s.revision == rev {
			return s, nil
		}
		s, err := r.build(view)
		if err != nil {
			return nil, err
		}
		r.publish(s)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// publish stores s unless a newer revision is already cached.
func (r *Resolver) publish(s *Snapshot) {
	for {
		old := r.snap.Load()
		if old != nil && old.revision > s.revision {
			return
		}
		if r.snap.CompareAndSwap(old, s) {
			return
		}
	}
}

func (r *Resolver) build(view timeline.View) (*Snapshot, error) {
	start := time.Now()
	docs, stats := r.projector.Project(view.Nodes(), view)

	bd := fulltext.NewBuilder().
		Ref(document.FieldPath).
		Field(document.FieldDateTime, BoostDateTime).
		Field(document.FieldSupplemental, BoostSupplemental).
		Field(document.FieldDescription, BoostDescription).
		Field(document.FieldTags, BoostTags)

	byRef := make(map[string]int, len(docs))
	kept := make([]document.SearchDocument, 0, len(docs))
	for _, doc := range docs {
		replaced, err := bd.Add(doc)
		if err != nil {
			r.log.Warn().Err(err).Str("node_id", doc.ID).Msg("document not indexed")
			continue
		}
		if replaced {
			r.log.Warn().Str("ref", doc.Ref()).Str("node_id", doc.ID).Msg("duplicate document ref, keeping last")
			kept[byRef[doc.Ref()]] = doc
			continue
		}
		byRef[doc.Ref()] = len(kept)
		kept = append(kept, doc)
	}

	ix, err := bd.Build()
	if err != nil {
		return nil, fmt.Errorf("build index for revision %d: %w", view.Revision(), err)
	}

	took := time.Since(start)
	r.obs.IndexBuilt(len(kept), stats.Anomalies, took)
	r.log.Info().
		Uint64("revision", view.Revision()).
		Int("documents", len(kept)).
		Int("anomalies", stats.Anomalies).
		Int("terms", ix.Terms()).
		Dur("duration", took).
		Msg("search index built")

	return &Snapshot{
		revision:  view.Revision(),
		docs:      kept,
		byRef:     byRef,
		index:     ix,
		anomalies: stats.Anomalies,
	}, nil
}

// Snapshot is the projection and index of one timeline revision.
type Snapshot struct {
	revision  uint64
	docs      []document.SearchDocument
	byRef     map[string]int
	index     *fulltext.Index
	anomalies int
}

// Revision returns the timeline revision the snapshot was built from.
func (s *Snapshot) Revision() uint64 { return s.revision }

// Documents returns the indexed documents in projection order.
func (s *Snapshot) Documents() []document.SearchDocument { return s.docs }

// Anomalies returns how many nodes the projection skipped.
func (s *Snapshot) Anomalies() int { return s.anomalies }

// Document looks up an indexed document by ref.
func (s *Snapshot) Document(ref string) (document.SearchDocument, bool) {
	i, ok := s.byRef[ref]
	if !ok {
		return document.SearchDocument{}, false
	}
	return s.docs[i], true
}

func (s *Snapshot) query(q string) (hits []fulltext.Match, err error) {
	defer func() {
		if p := recover(); p != nil {
			hits, err = nil, fmt.Errorf("index query %q panicked: %v", q, p)
		}
	}()
	return s.index.Search(q)
}
