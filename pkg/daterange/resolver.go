// ABOUTME: Two-step date range resolution: strict grammar, then fuzzy text
// ABOUTME: Normalizes short or fuzzy ranges to whole calendar days

package daterange

import (
	"time"

	"github.com/rs/zerolog"
)

// rangeDelimiter terminates the date part of a "range: description" line.
const rangeDelimiter = ":"

const oneDay = 24 * time.Hour

// Resolver turns free text into at most one Query.
type Resolver struct {
	grammar GrammarParser
	fuzzy   FuzzyParser
	loc     *time.Location
	now     func() time.Time
	log     zerolog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLocation sets the location calendar days are computed in.
func WithLocation(loc *time.Location) Option {
	return func(r *Resolver) {
		if loc != nil {
			r.loc = loc
		}
	}
}

// WithClock sets the reference clock used for relative expressions.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the resolver's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Resolver) { r.log = log }
}

// NewResolver creates a resolver over the two parsers. Either may be nil,
// in which case that strategy is skipped.
func NewResolver(grammar GrammarParser, fuzzy FuzzyParser, opts ...Option) *Resolver {
	r := &Resolver{
		grammar: grammar,
		fuzzy:   fuzzy,
		loc:     time.Local,
		now:     time.Now,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Location returns the location days are computed in.
func (r *Resolver) Location() *time.Location {
	return r.loc
}

// Resolve returns the jump target described by input, or nil.
// current is the viewport scale kept for ranges of a day or longer.
func (r *Resolver) Resolve(input string, current Scale) *Query {
	if q := r.resolveStructured(input, current); q != nil {
		return q
	}
	return r.resolveFuzzy(input)
}

func (r *Resolver) resolveStructured(input string, current Scale) *Query {
	if r.grammar == nil {
		return nil
	}
	rng, ok := r.grammar.Parse(input + rangeDelimiter)
	if !ok {
		return nil
	}

	from := rng.From.In(r.loc)
	to := rng.To.In(r.loc)
	if to.Before(from) {
		from, to = to, from
	}

	q := &Query{From: from, To: to, Scale: current}
	if to.Sub(from) < oneDay {
		q.From = Floor(from, ScaleDay)
		q.To = Ceil(q.From, ScaleDay)
		q.Scale = ScaleDay
	}

	r.log.Debug().
		Str("strategy", "grammar").
		Time("from", q.From).
		Time("to", q.To).
		Str("scale", string(q.Scale)).
		Msg("date range resolved")
	return q
}

func (r *Resolver) resolveFuzzy(input string) *Query {
	if r.fuzzy == nil {
		return nil
	}
	mentions := r.fuzzy.Parse(input, r.now().In(r.loc))
	if len(mentions) == 0 {
		return nil
	}
	m := mentions[0]

	start := m.Start.In(r.loc)
	end := start
	if m.End != nil {
		end = m.End.In(r.loc)
	}
	if end.Before(start) {
		end = start
	}

	q := &Query{
		From:  Floor(start, ScaleDay),
		To:    Ceil(end, ScaleDay),
		Scale: ScaleDay,
	}

	r.log.Debug().
		Str("strategy", "fuzzy").
		Str("mention", m.Text).
		Time("from", q.From).
		Time("to", q.To).
		Msg("date range resolved")
	return q
}
