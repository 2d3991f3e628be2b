// ABOUTME: Natural-language date mention parser backed by olebedev/when
// ABOUTME: Detects "next tuesday", "tomorrow at 5pm" and "x to y" ranges

package natural

import (
	"strings"
	"sync"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/nainya/timejump/pkg/daterange"
)

var connectors = []string{"to ", "until ", "till ", "through ", "- ", "– ", "— "}

// Parser finds date mentions in English text. It implements
// daterange.FuzzyParser.
type Parser struct {
	mu sync.Mutex
	w  *when.Parser
}

// New creates a natural-language parser with English and common rules.
func New() *Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &Parser{w: w}
}

// Parse returns the first mention in text, or nothing. When the mention is
// directly followed by a range connector and a second mention, the second
// one becomes the End.
func (p *Parser) Parse(text string, ref time.Time) []daterange.Mention {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	first, err := p.w.Parse(text, ref)
	if err != nil || first == nil {
		return nil
	}

	m := daterange.Mention{
		Start: first.Time,
		Text:  first.Text,
		Index: first.Index,
	}

	rest := text[min(len(text), first.Index+len(first.Text)):]
	if tail, ok := afterConnector(rest); ok {
		second, err := p.w.Parse(tail, first.Time)
		if err == nil && second != nil && strings.TrimSpace(tail[:second.Index]) == "" {
			end := second.Time
			if !end.Before(m.Start) {
				m.End = &end
				m.Text = text[first.Index : len(text)-len(tail)+second.Index+len(second.Text)]
			}
		}
	}
	return []daterange.Mention{m}
}

func afterConnector(s string) (string, bool) {
	trimmed := strings.TrimLeft(s, " \t")
	lower := strings.ToLower(trimmed)
	for _, c := range connectors {
		if strings.HasPrefix(lower, c) {
			return trimmed[len(c):], true
		}
	}
	return "", false
}
