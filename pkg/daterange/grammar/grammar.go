// ABOUTME: Strict date-range grammar for "range: description" lines
// ABOUTME: Accepts years, months, dates, date-times, "now" and relative ends

package grammar

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/nainya/timejump/pkg/daterange"
)

// Delimiter terminates the date part of the parsed text.
const Delimiter = ":"

var (
	reYear       = regexp.MustCompile(`^(\d{4})$`)
	reYearRange  = regexp.MustCompile(`^(\d{4})\s*[-–]\s*(\d{4})$`)
	reYearMonth  = regexp.MustCompile(`^(\d{4})-(\d{1,2})$`)
	reMonthYear  = regexp.MustCompile(`^([a-z]+)\.?,?\s+(\d{4})$`)
	reSeparator  = regexp.MustCompile(`(?i)\s+(?:-|–|—|to|until|till|through)\s+`)
	reRelative   = regexp.MustCompile(`^(\d+)\s*(seconds?|secs?|minutes?|mins?|hours?|hrs?|days?|weeks?|months?|years?)$`)
	reHasYear    = regexp.MustCompile(`\d{4}`)
	reHasLetters = regexp.MustCompile(`[a-z]`)
)

var months = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

// span is a parsed date part: its start and the end of its granularity.
type span struct {
	start time.Time
	end   time.Time
}

// Parser parses strict date ranges. It implements daterange.GrammarParser.
type Parser struct {
	loc *time.Location
	now func() time.Time
}

// Option configures a Parser.
type Option func(*Parser)

// WithLocation sets the location dates without a zone are read in.
func WithLocation(loc *time.Location) Option {
	return func(p *Parser) {
		if loc != nil {
			p.loc = loc
		}
	}
}

// WithClock sets the clock used for "now".
func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates a grammar parser.
func New(opts ...Option) *Parser {
	p := &Parser{loc: time.Local, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse reads a range from text, which must end with Delimiter. The longest
// prefix ending at a delimiter that is a complete range wins, so both
// "2023-05-01 10:00:" and "2023-05-01: dentist:" resolve.
func (p *Parser) Parse(text string) (daterange.Range, bool) {
	if !strings.HasSuffix(text, Delimiter) {
		return daterange.Range{}, false
	}
	for end := len(text) - len(Delimiter); end >= 0; end = strings.LastIndex(text[:end], Delimiter) {
		prefix := strings.TrimSpace(text[:end])
		if prefix == "" {
			break
		}
		if r, ok := p.parseRange(prefix); ok {
			return r, true
		}
	}
	return daterange.Range{}, false
}

func (p *Parser) parseRange(s string) (daterange.Range, bool) {
	s = strings.Join(strings.Fields(s), " ")

	if m := reYearRange.FindStringSubmatch(s); m != nil {
		from, _ := strconv.Atoi(m[1])
		to, _ := strconv.Atoi(m[2])
		if to < from {
			return daterange.Range{}, false
		}
		return daterange.Range{
			From: time.Date(from, time.January, 1, 0, 0, 0, 0, p.loc),
			To:   time.Date(to+1, time.January, 1, 0, 0, 0, 0, p.loc),
		}, true
	}

	var left, right string
	if loc := reSeparator.FindStringIndex(s); loc != nil {
		left, right = s[:loc[0]], s[loc[1]:]
	} else {
		left = s
	}

	first, ok := p.parsePart(left)
	if !ok {
		return daterange.Range{}, false
	}
	if right == "" {
		return daterange.Range{From: first.start, To: first.end}, true
	}

	if end, ok := relativeEnd(first.start, strings.ToLower(right)); ok {
		return daterange.Range{From: first.start, To: end}, true
	}
	second, ok := p.parsePart(right)
	if !ok || second.end.Before(first.start) {
		return daterange.Range{}, false
	}
	return daterange.Range{From: first.start, To: second.end}, true
}

func (p *Parser) parsePart(orig string) (span, bool) {
	orig = strings.TrimSpace(orig)
	s := strings.ToLower(orig)
	if s == "now" {
		t := daterange.Floor(p.now().In(p.loc), daterange.ScaleMinute)
		return span{start: t, end: t.Add(time.Minute)}, true
	}

	if m := reYear.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		start := time.Date(y, time.January, 1, 0, 0, 0, 0, p.loc)
		return span{start: start, end: start.AddDate(1, 0, 0)}, true
	}
	if m := reYearMonth.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		if mo < 1 || mo > 12 {
			return span{}, false
		}
		start := time.Date(y, time.Month(mo), 1, 0, 0, 0, 0, p.loc)
		return span{start: start, end: start.AddDate(0, 1, 0)}, true
	}
	if m := reMonthYear.FindStringSubmatch(s); m != nil {
		mo, ok := months[m[1]]
		if !ok {
			return span{}, false
		}
		y, _ := strconv.Atoi(m[2])
		start := time.Date(y, mo, 1, 0, 0, 0, 0, p.loc)
		return span{start: start, end: start.AddDate(0, 1, 0)}, true
	}

	// Everything else must at least name a year.
	if !reHasYear.MatchString(s) {
		return span{}, false
	}
	if reHasLetters.MatchString(s) && !mentionsMonthOrMeridiem(s) {
		return span{}, false
	}
	return p.parseDateTime(orig)
}

// parseDateTime reads full dates and date-times; the layout decides how
// long the part lasts.
func (p *Parser) parseDateTime(s string) (span, bool) {
	layout, err := dateparse.ParseFormat(s)
	if err != nil {
		return span{}, false
	}
	t, err := dateparse.ParseIn(s, p.loc)
	if err != nil {
		return span{}, false
	}

	var end time.Time
	switch {
	case strings.Contains(layout, ":05"):
		end = t.Add(time.Second)
	case strings.Contains(layout, "04"):
		end = t.Add(time.Minute)
	case strings.Contains(layout, "15") || strings.Contains(strings.ToUpper(layout), "PM"):
		end = t.Add(time.Hour)
	default:
		t = daterange.Floor(t, daterange.ScaleDay)
		end = t.AddDate(0, 0, 1)
	}
	return span{start: t, end: end}, true
}

func mentionsMonthOrMeridiem(s string) bool {
	for _, word := range strings.FieldsFunc(s, func(r rune) bool {
		return r < 'a' || r > 'z'
	}) {
		if _, ok := months[word]; ok {
			continue
		}
		switch word {
		case "am", "pm", "t", "z", "utc", "gmt", "st", "nd", "rd", "th":
			continue
		}
		return false
	}
	return true
}

// relativeEnd reads ends such as "3 days" or "1 week" counted from start.
func relativeEnd(start time.Time, s string) (time.Time, bool) {
	m := reRelative.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return time.Time{}, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return time.Time{}, false
	}
	unit := m[2]
	switch {
	case strings.HasPrefix(unit, "sec"):
		return start.Add(time.Duration(n) * time.Second), true
	case strings.HasPrefix(unit, "min"):
		return start.Add(time.Duration(n) * time.Minute), true
	case strings.HasPrefix(unit, "h"):
		return start.Add(time.Duration(n) * time.Hour), true
	case strings.HasPrefix(unit, "day"):
		return start.AddDate(0, 0, n), true
	case strings.HasPrefix(unit, "week"):
		return start.AddDate(0, 0, 7*n), true
	case strings.HasPrefix(unit, "month"):
		return start.AddDate(0, n, 0), true
	case strings.HasPrefix(unit, "year"):
		return start.AddDate(n, 0, 0), true
	}
	return time.Time{}, false
}
