// ABOUTME: Structured node path: child indices from the root sequence
// ABOUTME: Dotted string form is the search document reference

package timeline

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidPath = errors.New("invalid path")

// Path addresses a node by child indices, e.g. [2 0] is the first child of
// the third top-level node.
type Path []int

// String renders the path as dot-separated indices ("2.0").
func (p Path) String() string {
	var sb strings.Builder
	for i, idx := range p {
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(strconv.Itoa(idx))
	}
	return sb.String()
}

// Equal reports whether both paths address the same node.
func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// Child returns the path of the i-th child of p.
func (p Path) Child(i int) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = i
	return out
}

// Parent returns the path without its last index.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1:len(p)-1]
}

// ParsePath parses the String form of a path.
func ParsePath(s string) (Path, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	parts := strings.Split(s, ".")
	p := make(Path, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, s)
		}
		p[i] = n
	}
	return p, nil
}
