// ABOUTME: Jump result model: a date range target or a full-text match
// ABOUTME: Observer hooks for index builds and served queries

package jump

import (
	"time"

	"github.com/nainya/timejump/pkg/daterange"
	"github.com/nainya/timejump/pkg/document"
	"github.com/nainya/timejump/pkg/timeline"
)

// Kind tags the variant held by a Result.
type Kind int

const (
	KindDateRange Kind = iota + 1
	KindMatch
)

func (k Kind) String() string {
	switch k {
	case KindDateRange:
		return "dateRange"
	case KindMatch:
		return "match"
	}
	return "unknown"
}

// Result is one entry of a search: exactly one of DateRange or Match is set,
// as told by Kind.
type Result struct {
	Kind      Kind
	DateRange *daterange.Query
	Match     *Match
}

// Match is a full-text hit on one projected document.
type Match struct {
	Path     timeline.Path
	Ref      string
	Score    float64
	Terms    []string
	Document document.SearchDocument
}

// Query outcomes reported to an Observer.
const (
	OutcomeEmpty = "empty"
	OutcomeDate  = "date"
	OutcomeText  = "text"
	OutcomeBoth  = "both"
	OutcomeError = "index_error"
)

// Observer receives resolver activity, typically for metrics.
type Observer interface {
	IndexBuilt(documents, anomalies int, took time.Duration)
	ProjectionAnomaly()
	QueryServed(outcome string, dateResults, matches int, took time.Duration)
}

type nopObserver struct{}

func (nopObserver) IndexBuilt(int, int, time.Duration)          {}
func (nopObserver) ProjectionAnomaly()                          {}
func (nopObserver) QueryServed(string, int, int, time.Duration) {}
