// ABOUTME: Date range data model and parser collaborator interfaces
// ABOUTME: Defines Range, Query (a resolved jump target) and Mention

package daterange

import "time"

// Range is a half-open interval [From, To).
type Range struct {
	From time.Time
	To   time.Time
}

// Span returns the length of the range.
func (r Range) Span() time.Duration {
	return r.To.Sub(r.From)
}

// Query is a resolved jump target: the range to show and the scale to show it at.
type Query struct {
	From  time.Time
	To    time.Time
	Scale Scale
}

// Range returns the query bounds as a Range.
func (q Query) Range() Range {
	return Range{From: q.From, To: q.To}
}

// Mention is one date/time reference found in free text.
type Mention struct {
	Start time.Time
	End   *time.Time // nil when the mention is a single moment
	Text  string     // matched source text
	Index int        // byte offset of Text in the input
}

// GrammarParser parses strict date-range syntax. The text carries a trailing
// ":" delimiter, mirroring the "range: description" event syntax.
type GrammarParser interface {
	Parse(text string) (Range, bool)
}

// FuzzyParser extracts natural-language date mentions from free text,
// interpreting relative expressions against ref.
type FuzzyParser interface {
	Parse(text string, ref time.Time) []Mention
}

// GrammarFunc adapts a function to GrammarParser.
type GrammarFunc func(text string) (Range, bool)

func (f GrammarFunc) Parse(text string) (Range, bool) { return f(text) }

// FuzzyFunc adapts a function to FuzzyParser.
type FuzzyFunc func(text string, ref time.Time) []Mention

func (f FuzzyFunc) Parse(text string, ref time.Time) []Mention { return f(text, ref) }
