// ABOUTME: Query string lexer and parser for the full-text index
// ABOUTME: Supports +/- presence, field:term, term~N, term^N and * wildcards

package fulltext

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode"
)

// Presence decides how a clause constrains matching documents.
type Presence int

const (
	Optional Presence = iota
	Required
	Prohibited
)

func (p Presence) String() string {
	switch p {
	case Required:
		return "required"
	case Prohibited:
		return "prohibited"
	}
	return "optional"
}

// Clause is one term of a parsed query.
type Clause struct {
	Term         string
	Fields       []string // nil means every field
	Presence     Presence
	EditDistance int
	Boost        float64
}

// Wildcard reports whether the term contains a "*".
func (c Clause) Wildcard() bool {
	return strings.Contains(c.Term, "*")
}

// Query is a parsed query string.
type Query struct {
	Clauses []Clause
}

// QueryParseError describes a malformed query string.
type QueryParseError struct {
	Query string
	Pos   int
	Msg   string
}

func (e *QueryParseError) Error() string {
	return fmt.Sprintf("query parse error at %d in %q: %s", e.Pos, e.Query, e.Msg)
}

type lexKind int

const (
	lexTerm lexKind = iota
	lexField
	lexPresence
	lexEditDistance
	lexBoost
)

type lexeme struct {
	kind lexKind
	text string
	pos  int
}

func lex(q string) []lexeme {
	var (
		out   []lexeme
		buf   []rune
		start int
	)
	runes := []rune(q)

	emit := func(kind lexKind, pos int) {
		out = append(out, lexeme{kind: kind, text: string(buf), pos: pos})
		buf = buf[:0]
	}
	flushTerm := func() {
		if len(buf) > 0 {
			emit(lexTerm, start)
		}
	}
	readWhile := func(i int, ok func(rune) bool) (string, int) {
		j := i
		for j < len(runes) && ok(runes[j]) {
			j++
		}
		return string(runes[i:j]), j
	}

	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if len(buf) == 0 {
			start = i
		}
		switch {
		case c == '\\' && i+1 < len(runes):
			i++
			buf = append(buf, runes[i])
		case c == ':':
			emit(lexField, start)
		case c == '~':
			flushTerm()
			text, next := readWhile(i+1, unicode.IsDigit)
			out = append(out, lexeme{kind: lexEditDistance, text: text, pos: i})
			i = next - 1
		case c == '^':
			flushTerm()
			text, next := readWhile(i+1, func(r rune) bool { return unicode.IsDigit(r) || r == '.' })
			out = append(out, lexeme{kind: lexBoost, text: text, pos: i})
			i = next - 1
		case (c == '+' || c == '-') && len(buf) == 0:
			out = append(out, lexeme{kind: lexPresence, text: string(c), pos: i})
		case isSeparator(c):
			flushTerm()
		default:
			buf = append(buf, c)
		}
	}
	flushTerm()
	return out
}

// Parse parses a query string. fields lists the names a "field:" prefix
// may use.
func Parse(q string, fields []string) (*Query, error) {
	var (
		query    = &Query{}
		presence = Optional
		pending  bool // presence seen, term not yet
		field    []string
		last     = -1 // index of the clause modifiers attach to
	)
	fail := func(pos int, format string, args ...any) error {
		return &QueryParseError{Query: q, Pos: pos, Msg: fmt.Sprintf(format, args...)}
	}

	for _, lx := range lex(q) {
		switch lx.kind {
		case lexPresence:
			if pending || field != nil {
				return nil, fail(lx.pos, "unexpected presence %q", lx.text)
			}
			presence = Required
			if lx.text == "-" {
				presence = Prohibited
			}
			pending = true
			last = -1

		case lexField:
			if field != nil {
				return nil, fail(lx.pos, "expected term after field %q", field[0])
			}
			if lx.text == "" {
				return nil, fail(lx.pos, "missing field name")
			}
			if !slices.Contains(fields, lx.text) {
				return nil, fail(lx.pos, "unrecognised field %q, possible fields: %s", lx.text, strings.Join(fields, ", "))
			}
			field = []string{lx.text}
			last = -1

		case lexTerm:
			query.Clauses = append(query.Clauses, Clause{
				Term:     lx.text,
				Fields:   field,
				Presence: presence,
				Boost:    1,
			})
			last = len(query.Clauses) - 1
			presence, pending, field = Optional, false, nil

		case lexEditDistance:
			if last < 0 {
				return nil, fail(lx.pos, "edit distance without a term")
			}
			n, err := strconv.Atoi(lx.text)
			if err != nil {
				return nil, fail(lx.pos, "edit distance must be numeric")
			}
			query.Clauses[last].EditDistance = n

		case lexBoost:
			if last < 0 {
				return nil, fail(lx.pos, "boost without a term")
			}
			b, err := strconv.ParseFloat(lx.text, 64)
			if err != nil || b < 0 {
				return nil, fail(lx.pos, "boost must be numeric")
			}
			query.Clauses[last].Boost = b
		}
	}

	if pending {
		return nil, fail(len(q), "expected term after presence")
	}
	if field != nil {
		return nil, fail(len(q), "expected term after field %q", field[0])
	}
	return query, nil
}
