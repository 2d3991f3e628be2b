// ABOUTME: In-memory timeline store with revisioned copy-on-write snapshots
// ABOUTME: Every mutation publishes a new snapshot and bumps the revision

package timeline

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("node not found")
	ErrNotGroup = errors.New("node is not a group")
)

// Snapshot is an immutable revision of a timeline. It implements View.
type Snapshot struct {
	nodes    []Node
	paths    map[Node]Path
	revision uint64
}

func newSnapshot(nodes []Node, revision uint64) *Snapshot {
	s := &Snapshot{
		nodes:    nodes,
		paths:    make(map[Node]Path),
		revision: revision,
	}
	s.index(nodes, nil)
	return s
}

func (s *Snapshot) index(nodes []Node, parent Path) {
	for i, n := range nodes {
		switch v := n.(type) {
		case *Event:
			if v != nil {
				s.paths[v] = parent.Child(i)
			}
		case *Group:
			if v != nil {
				p := parent.Child(i)
				s.paths[v] = p
				s.index(v.Children, p)
			}
		}
	}
}

// Nodes returns the top-level nodes. The slice must not be modified.
func (s *Snapshot) Nodes() []Node { return s.nodes }

// Revision returns the revision this snapshot was published at.
func (s *Snapshot) Revision() uint64 { return s.revision }

// PathOf returns the path of n within this snapshot.
func (s *Snapshot) PathOf(n Node) (Path, bool) {
	if n == nil {
		return nil, false
	}
	p, ok := s.paths[n]
	return p, ok
}

// Get returns the node at p.
func (s *Snapshot) Get(p Path) (Node, error) {
	if len(p) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	nodes := s.nodes
	var cur Node
	for depth, idx := range p {
		if idx < 0 || idx >= len(nodes) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		cur = nodes[idx]
		if depth == len(p)-1 {
			break
		}
		g, ok := cur.(*Group)
		if !ok || g == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		nodes = g.Children
	}
	return cur, nil
}

// Len returns the number of addressable nodes.
func (s *Snapshot) Len() int { return len(s.paths) }

// Store holds the current timeline. It implements Source, and Tree and
// PathResolver against its latest snapshot. Nodes handed to a Store are
// owned by it and must not be modified afterwards.
type Store struct {
	mu      sync.RWMutex
	current *Snapshot
}

// NewStore creates a store holding nodes at revision 1.
func NewStore(nodes ...Node) *Store {
	nodes = slices.Clone(nodes)
	for _, n := range nodes {
		assignIDs(n)
	}
	return &Store{current: newSnapshot(nodes, 1)}
}

// View returns the latest snapshot.
func (st *Store) View() View { return st.Snapshot() }

// Snapshot returns the latest snapshot.
func (st *Store) Snapshot() *Snapshot {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.current
}

func (st *Store) Nodes() []Node              { return st.Snapshot().Nodes() }
func (st *Store) Revision() uint64           { return st.Snapshot().Revision() }
func (st *Store) PathOf(n Node) (Path, bool) { return st.Snapshot().PathOf(n) }

// Replace swaps the whole timeline and returns the new revision.
func (st *Store) Replace(nodes []Node) uint64 {
	nodes = slices.Clone(nodes)
	for _, n := range nodes {
		assignIDs(n)
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return st.publish(nodes)
}

// Append adds n at the end of the top-level sequence.
func (st *Store) Append(n Node) (uint64, error) {
	if n == nil {
		return 0, fmt.Errorf("append: %w", ErrNotFound)
	}
	assignIDs(n)
	return st.edit(nil, func(children []Node) ([]Node, error) {
		return append(children, n), nil
	})
}

// AppendToGroup adds e at the end of the group at group.
func (st *Store) AppendToGroup(group Path, e *Event) (uint64, error) {
	if len(group) == 0 {
		return 0, fmt.Errorf("append to group: %w: empty", ErrInvalidPath)
	}
	if e == nil {
		return 0, fmt.Errorf("append to group: %w", ErrNotFound)
	}
	assignIDs(e)
	return st.edit(group, func(children []Node) ([]Node, error) {
		return append(children, e), nil
	})
}

// Remove deletes the node at p. Paths of later siblings shift down.
func (st *Store) Remove(p Path) (uint64, error) {
	if len(p) == 0 {
		return 0, fmt.Errorf("remove: %w: empty", ErrInvalidPath)
	}
	last := p[len(p)-1]
	return st.edit(p.Parent(), func(children []Node) ([]Node, error) {
		if last < 0 || last >= len(children) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return slices.Delete(children, last, last+1), nil
	})
}

func (st *Store) edit(parent Path, fn func([]Node) ([]Node, error)) (uint64, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	nodes, err := editChildren(st.current.nodes, parent, fn)
	if err != nil {
		return st.current.revision, err
	}
	return st.publish(nodes), nil
}

// publish must be called with mu held.
func (st *Store) publish(nodes []Node) uint64 {
	st.current = newSnapshot(nodes, st.current.revision+1)
	return st.current.revision
}

// editChildren returns a copy of nodes in which the child list addressed by
// parent is replaced by fn's result. Groups along parent are cloned; fn
// receives a private copy of the list.
func editChildren(nodes []Node, parent Path, fn func([]Node) ([]Node, error)) ([]Node, error) {
	if len(parent) == 0 {
		return fn(slices.Clone(nodes))
	}
	i := parent[0]
	if i < 0 || i >= len(nodes) {
		return nil, fmt.Errorf("%w: index %d", ErrNotFound, i)
	}
	g, ok := nodes[i].(*Group)
	if !ok || g == nil {
		return nil, fmt.Errorf("%w: index %d", ErrNotGroup, i)
	}
	children, err := editChildren(g.Children, parent[1:], fn)
	if err != nil {
		return nil, err
	}
	clone := *g
	clone.Children = children
	out := slices.Clone(nodes)
	out[i] = &clone
	return out, nil
}

func assignIDs(n Node) {
	switch v := n.(type) {
	case *Event:
		if v != nil && v.ID == "" {
			v.ID = uuid.NewString()
		}
	case *Group:
		if v == nil {
			return
		}
		if v.ID == "" {
			v.ID = uuid.NewString()
		}
		for _, c := range v.Children {
			assignIDs(c)
		}
	}
}
