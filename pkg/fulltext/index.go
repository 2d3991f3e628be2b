// ABOUTME: Immutable inverted index with field boosts and BM25 ranking
// ABOUTME: Builder collects documents by ref; last write for a ref wins

package fulltext

import (
	"errors"
	"math"
	"slices"
	"sort"
	"strings"
)

// BM25 parameters.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

var (
	ErrEmptyRef = errors.New("document has an empty ref")
	ErrNoFields = errors.New("index has no fields")
)

// Document is anything that can report its field values by name.
type Document interface {
	FieldValue(name string) string
}

// Field is an indexed field and its score weight.
type Field struct {
	Name  string
	Boost float64
}

// Match is one ranked search hit.
type Match struct {
	Ref   string
	Score float64
	Terms []string // lexicon terms that matched, sorted
}

// Builder accumulates documents for an Index.
type Builder struct {
	ref    string
	fields []Field
	docs   []Document
	byRef  map[string]int
}

// NewBuilder creates a builder. Ref and at least one Field must be set
// before Build.
func NewBuilder() *Builder {
	return &Builder{byRef: make(map[string]int)}
}

// Ref names the field holding each document's unique reference.
func (bd *Builder) Ref(name string) *Builder {
	bd.ref = name
	return bd
}

// Field adds an indexed field. A non-positive boost counts as 1.
func (bd *Builder) Field(name string, boost float64) *Builder {
	if boost <= 0 {
		boost = 1
	}
	bd.fields = append(bd.fields, Field{Name: name, Boost: boost})
	return bd
}

// Add queues doc. A document whose ref was already added replaces the
// earlier one in place and replaced is true.
func (bd *Builder) Add(doc Document) (replaced bool, err error) {
	ref := doc.FieldValue(bd.ref)
	if ref == "" {
		return false, ErrEmptyRef
	}
	if i, ok := bd.byRef[ref]; ok {
		bd.docs[i] = doc
		return true, nil
	}
	bd.byRef[ref] = len(bd.docs)
	bd.docs = append(bd.docs, doc)
	return false, nil
}

// Build indexes every queued document.
func (bd *Builder) Build() (*Index, error) {
	if len(bd.fields) == 0 {
		return nil, ErrNoFields
	}

	ix := &Index{
		fields:   slices.Clone(bd.fields),
		fieldPos: make(map[string]int, len(bd.fields)),
		refs:     make([]string, len(bd.docs)),
		fieldLen: make([][]int, len(bd.docs)),
		avgLen:   make([]float64, len(bd.fields)),
		terms:    make(map[string]*termEntry),
	}
	for i, f := range ix.fields {
		ix.fieldPos[f.Name] = i
	}

	totals := make([]int, len(ix.fields))
	for d, doc := range bd.docs {
		ix.refs[d] = doc.FieldValue(bd.ref)
		ix.fieldLen[d] = make([]int, len(ix.fields))
		for f, field := range ix.fields {
			terms := Analyze(doc.FieldValue(field.Name))
			ix.fieldLen[d][f] = len(terms)
			totals[f] += len(terms)
			for _, t := range terms {
				ix.addTerm(t, f, d)
			}
		}
	}
	if n := len(bd.docs); n > 0 {
		for f := range totals {
			ix.avgLen[f] = float64(totals[f]) / float64(n)
		}
	}

	ix.lexicon = make([]string, 0, len(ix.terms))
	for t, entry := range ix.terms {
		ix.lexicon = append(ix.lexicon, t)
		entry.idf = idf(len(entry.docs), len(ix.refs))
	}
	sort.Strings(ix.lexicon)
	return ix, nil
}

// termEntry holds one term's postings: per field, doc -> term frequency.
type termEntry struct {
	fields []map[int]int
	docs   map[int]struct{}
	idf    float64
}

// Index is an immutable inverted index. It is safe for concurrent reads.
type Index struct {
	fields   []Field
	fieldPos map[string]int
	refs     []string
	fieldLen [][]int
	avgLen   []float64
	terms    map[string]*termEntry
	lexicon  []string
}

func (ix *Index) addTerm(term string, field, doc int) {
	entry, ok := ix.terms[term]
	if !ok {
		entry = &termEntry{
			fields: make([]map[int]int, len(ix.fields)),
			docs:   make(map[int]struct{}),
		}
		ix.terms[term] = entry
	}
	if entry.fields[field] == nil {
		entry.fields[field] = make(map[int]int)
	}
	entry.fields[field][doc]++
	entry.docs[doc] = struct{}{}
}

func idf(df, n int) float64 {
	return math.Log(1 + math.Abs((float64(n-df)+0.5)/(float64(df)+0.5)))
}

// Len returns the number of indexed documents.
func (ix *Index) Len() int { return len(ix.refs) }

// Refs returns the indexed refs in insertion order.
func (ix *Index) Refs() []string { return slices.Clone(ix.refs) }

// Terms returns the number of distinct indexed terms.
func (ix *Index) Terms() int { return len(ix.lexicon) }

// FieldNames returns the indexed field names in declaration order.
func (ix *Index) FieldNames() []string {
	names := make([]string, len(ix.fields))
	for i, f := range ix.fields {
		names[i] = f.Name
	}
	return names
}

// Search parses q and returns matches by descending score; equal scores
// keep insertion order. An empty query yields no matches. A malformed one
// yields no matches and a *QueryParseError.
func (ix *Index) Search(q string) ([]Match, error) {
	if strings.TrimSpace(q) == "" {
		return []Match{}, nil
	}
	query, err := Parse(q, ix.FieldNames())
	if err != nil {
		return nil, err
	}
	return ix.Run(query), nil
}

// docHit accumulates one document's score while a query runs.
type docHit struct {
	score float64
	terms map[string]struct{}
}

// Run evaluates a parsed query.
func (ix *Index) Run(query *Query) []Match {
	var (
		hits       = make(map[int]*docHit)
		prohibited = make(map[int]struct{})
		required   []map[int]struct{}
		positive   bool
	)

	for _, clause := range query.Clauses {
		term, ok := ix.clauseTerm(clause)
		if !ok {
			// Bare punctuation: a required clause of it matches nothing.
			if clause.Presence == Required {
				positive = true
				required = append(required, map[int]struct{}{})
			}
			continue
		}
		fields := ix.clauseFields(clause)
		matched := make(map[int]struct{})

		for _, exp := range ix.expand(term, clause.EditDistance, clause.Wildcard()) {
			entry := ix.terms[exp.term]
			for _, f := range fields {
				for doc, tf := range entry.fields[f] {
					matched[doc] = struct{}{}
					if clause.Presence == Prohibited {
						continue
					}
					h := hits[doc]
					if h == nil {
						h = &docHit{terms: make(map[string]struct{})}
						hits[doc] = h
					}
					h.score += ix.score(entry, f, doc, tf) * clause.Boost * exp.factor
					h.terms[exp.term] = struct{}{}
				}
			}
		}

		switch clause.Presence {
		case Prohibited:
			for doc := range matched {
				prohibited[doc] = struct{}{}
			}
		case Required:
			positive = true
			required = append(required, matched)
		default:
			positive = true
		}
	}

	if !positive {
		return []Match{}
	}

	docs := make([]int, 0, len(hits))
	for doc := range hits {
		if _, ok := prohibited[doc]; ok {
			continue
		}
		if !inAll(doc, required) {
			continue
		}
		docs = append(docs, doc)
	}
	sort.Ints(docs)
	slices.SortStableFunc(docs, func(a, b int) int {
		switch {
		case hits[a].score > hits[b].score:
			return -1
		case hits[a].score < hits[b].score:
			return 1
		}
		return 0
	})

	out := make([]Match, 0, len(docs))
	for _, doc := range docs {
		terms := make([]string, 0, len(hits[doc].terms))
		for t := range hits[doc].terms {
			terms = append(terms, t)
		}
		sort.Strings(terms)
		out = append(out, Match{Ref: ix.refs[doc], Score: hits[doc].score, Terms: terms})
	}
	return out
}

// clauseTerm returns the lexicon form of a clause's term. Wildcard terms
// are only folded; others go through the full pipeline.
func (ix *Index) clauseTerm(c Clause) (string, bool) {
	if c.Wildcard() {
		t := fold(c.Term)
		return t, strings.Trim(t, "*") != "" || t == "*"
	}
	return analyzeTerm(c.Term)
}

func (ix *Index) clauseFields(c Clause) []int {
	if len(c.Fields) == 0 {
		all := make([]int, len(ix.fields))
		for i := range all {
			all[i] = i
		}
		return all
	}
	out := make([]int, 0, len(c.Fields))
	for _, name := range c.Fields {
		if f, ok := ix.fieldPos[name]; ok {
			out = append(out, f)
		}
	}
	return out
}

func (ix *Index) score(entry *termEntry, field, doc, tf int) float64 {
	avg := ix.avgLen[field]
	if avg == 0 {
		avg = 1
	}
	norm := 1 - bm25B + bm25B*float64(ix.fieldLen[doc][field])/avg
	ftf := float64(tf)
	return entry.idf * (ftf * (bm25K1 + 1)) / (ftf + bm25K1*norm) * ix.fields[field].Boost
}

func inAll(doc int, sets []map[int]struct{}) bool {
	for _, s := range sets {
		if _, ok := s[doc]; !ok {
			return false
		}
	}
	return true
}
