// ABOUTME: Timeline data model: leaf events and group nodes
// ABOUTME: Read interfaces consumed by the projector and resolver

package timeline

import (
	"time"

	"github.com/nainya/timejump/pkg/daterange"
)

// Node is a top-level or nested timeline entry: either *Event or *Group.
type Node interface {
	// Start returns the node's primary date anchor.
	Start() time.Time
	node()
}

// Block is one free-form supplemental text block attached to an event.
type Block struct {
	Raw string
}

// Event is a leaf timeline entry.
type Event struct {
	ID           string
	Description  string
	Tags         []string
	Supplemental []Block
	Range        daterange.Range
}

func (e *Event) Start() time.Time { return e.Range.From }
func (*Event) node()              {}

// Group is a titled node owning an ordered sequence of children.
type Group struct {
	ID       string
	Title    string
	Tags     []string
	Children []Node
	Span     *daterange.Range // explicit range; nil means aggregate of children
}

func (g *Group) node() {}

// Range returns the group's explicit span or the aggregate of its events.
// ok is false for an empty group without an explicit span.
func (g *Group) Range() (r daterange.Range, ok bool) {
	if g.Span != nil {
		return *g.Span, true
	}
	g.walkEvents(func(e *Event) {
		if !ok {
			r, ok = e.Range, true
			return
		}
		if e.Range.From.Before(r.From) {
			r.From = e.Range.From
		}
		if e.Range.To.After(r.To) {
			r.To = e.Range.To
		}
	})
	return r, ok
}

// Start returns the earliest start of the group's range, or the zero time.
func (g *Group) Start() time.Time {
	r, _ := g.Range()
	return r.From
}

// Events returns the group's leaf events in order, flattening nested groups.
func (g *Group) Events() []*Event {
	var out []*Event
	g.walkEvents(func(e *Event) { out = append(out, e) })
	return out
}

func (g *Group) walkEvents(fn func(*Event)) {
	for _, child := range g.Children {
		switch c := child.(type) {
		case *Event:
			if c != nil {
				fn(c)
			}
		case *Group:
			if c != nil {
				c.walkEvents(fn)
			}
		}
	}
}

// Tree exposes the ordered top-level nodes of one timeline revision.
type Tree interface {
	Nodes() []Node
	Revision() uint64
}

// PathResolver maps a node back to its position in the tree.
type PathResolver interface {
	PathOf(n Node) (Path, bool)
}

// View is a consistent read view: a tree and the paths of its nodes.
type View interface {
	Tree
	PathResolver
}

// Source hands out the current view.
type Source interface {
	View() View
}

// ScaleSource reports the display scale implied by the visible window.
type ScaleSource interface {
	Scale() daterange.Scale
}

// FixedScale is a ScaleSource that always reports the same scale.
type FixedScale daterange.Scale

func (s FixedScale) Scale() daterange.Scale { return daterange.Scale(s) }

// Viewport is the visible time window of a timeline.
type Viewport struct {
	From time.Time
	To   time.Time
}

// Scale picks the display scale for the viewport's width.
func (v Viewport) Scale() daterange.Scale {
	return daterange.ScaleForSpan(v.To.Sub(v.From))
}
