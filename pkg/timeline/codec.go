// ABOUTME: JSON timeline file format for loading and exporting timelines
// ABOUTME: Events carry from/to dates; groups carry children

package timeline

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/nainya/timejump/pkg/daterange"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const dateLayout = "2006-01-02"

// File is the on-disk timeline document.
type File struct {
	Nodes []NodeJSON `json:"nodes"`
}

// NodeJSON is the wire form of an event or a group. A node with Children
// (or a Title and no Description) is a group.
type NodeJSON struct {
	ID           string     `json:"id,omitempty"`
	Description  string     `json:"description,omitempty"`
	Title        string     `json:"title,omitempty"`
	Tags         []string   `json:"tags,omitempty"`
	Supplemental []string   `json:"supplemental,omitempty"`
	From         string     `json:"from,omitempty"`
	To           string     `json:"to,omitempty"`
	Children     []NodeJSON `json:"children,omitempty"`
}

func (n NodeJSON) isGroup() bool {
	return n.Children != nil || (n.Title != "" && n.Description == "")
}

// LoadFile reads a timeline file. Dates without a zone are read in loc.
func LoadFile(path string, loc *time.Location) ([]Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open timeline: %w", err)
	}
	defer f.Close()

	nodes, err := Decode(f, loc)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return nodes, nil
}

// Decode reads a File from r.
func Decode(r io.Reader, loc *time.Location) ([]Node, error) {
	var file File
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode timeline: %w", err)
	}
	return FromJSON(file.Nodes, loc)
}

// DecodeEvent reads a single event object from r.
func DecodeEvent(r io.Reader, loc *time.Location) (*Event, error) {
	var n NodeJSON
	if err := json.NewDecoder(r).Decode(&n); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if n.isGroup() {
		return nil, fmt.Errorf("decode event: object is a group")
	}
	return eventFromJSON(n, loc)
}

// FromJSON converts wire nodes into timeline nodes.
func FromJSON(in []NodeJSON, loc *time.Location) ([]Node, error) {
	if loc == nil {
		loc = time.Local
	}
	out := make([]Node, 0, len(in))
	for i, n := range in {
		node, err := nodeFromJSON(n, loc)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		out = append(out, node)
	}
	return out, nil
}

func nodeFromJSON(n NodeJSON, loc *time.Location) (Node, error) {
	if !n.isGroup() {
		return eventFromJSON(n, loc)
	}

	g := &Group{ID: n.ID, Title: n.Title, Tags: n.Tags}
	if n.From != "" {
		r, err := parseRange(n.From, n.To, loc)
		if err != nil {
			return nil, err
		}
		g.Span = &r
	}
	children, err := FromJSON(n.Children, loc)
	if err != nil {
		return nil, err
	}
	g.Children = children
	return g, nil
}

func eventFromJSON(n NodeJSON, loc *time.Location) (*Event, error) {
	if loc == nil {
		loc = time.Local
	}
	r, err := parseRange(n.From, n.To, loc)
	if err != nil {
		return nil, err
	}
	e := &Event{
		ID:          n.ID,
		Description: n.Description,
		Tags:        n.Tags,
		Range:       r,
	}
	for _, raw := range n.Supplemental {
		e.Supplemental = append(e.Supplemental, Block{Raw: raw})
	}
	return e, nil
}

// parseRange reads from/to; a missing to spans one day (date) or one minute
// (date-time) from the start.
func parseRange(from, to string, loc *time.Location) (daterange.Range, error) {
	start, dateOnly, err := parseTime(from, loc)
	if err != nil {
		return daterange.Range{}, fmt.Errorf("from: %w", err)
	}
	if to == "" {
		end := start.Add(time.Minute)
		if dateOnly {
			end = start.AddDate(0, 0, 1)
		}
		return daterange.Range{From: start, To: end}, nil
	}
	end, endDateOnly, err := parseTime(to, loc)
	if err != nil {
		return daterange.Range{}, fmt.Errorf("to: %w", err)
	}
	if endDateOnly {
		end = end.AddDate(0, 0, 1)
	}
	if end.Before(start) {
		return daterange.Range{}, fmt.Errorf("range ends before it starts: %s > %s", from, to)
	}
	return daterange.Range{From: start, To: end}, nil
}

func parseTime(s string, loc *time.Location) (time.Time, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, fmt.Errorf("missing date")
	}
	if t, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid date %q", s)
	}
	return t, false, nil
}

// Encode writes nodes to w as a File.
func Encode(w io.Writer, nodes []Node) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(File{Nodes: ToJSON(nodes)})
}

// ToJSON converts timeline nodes to their wire form.
func ToJSON(nodes []Node) []NodeJSON {
	out := make([]NodeJSON, 0, len(nodes))
	for _, n := range nodes {
		switch v := n.(type) {
		case *Event:
			if v == nil {
				continue
			}
			nj := NodeJSON{
				ID:          v.ID,
				Description: v.Description,
				Tags:        v.Tags,
				From:        v.Range.From.Format(time.RFC3339),
				To:          v.Range.To.Format(time.RFC3339),
			}
			for _, b := range v.Supplemental {
				nj.Supplemental = append(nj.Supplemental, b.Raw)
			}
			out = append(out, nj)
		case *Group:
			if v == nil {
				continue
			}
			nj := NodeJSON{
				ID:       v.ID,
				Title:    v.Title,
				Tags:     v.Tags,
				Children: ToJSON(v.Children),
			}
			if v.Span != nil {
				nj.From = v.Span.From.Format(time.RFC3339)
				nj.To = v.Span.To.Format(time.RFC3339)
			}
			out = append(out, nj)
		}
	}
	return out
}
