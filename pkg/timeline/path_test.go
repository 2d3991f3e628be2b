package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPath_StringAndParse(t *testing.T) {
	p := Path{2, 0, 11}
	assert.Equal(t, "2.0.11", p.String())

	parsed, err := ParsePath("2.0.11")
	require.NoError(t, err)
	assert.True(t, p.Equal(parsed))

	for _, bad := range []string{"", "a", "1..2", "1.-2", "1.2."} {
		_, err := ParsePath(bad)
		assert.ErrorIs(t, err, ErrInvalidPath, bad)
	}
}

func TestPath_ChildDoesNotAlias(t *testing.T) {
	parent := make(Path, 1, 4)
	parent[0] = 3
	a := parent.Child(0)
	b := parent.Child(1)
	assert.Equal(t, Path{3, 0}, a)
	assert.Equal(t, Path{3, 1}, b)
}

func TestPath_Parent(t *testing.T) {
	assert.Equal(t, Path{1}, Path{1, 4}.Parent())
	assert.Empty(t, Path{1}.Parent())
	assert.Nil(t, Path{}.Parent())
	assert.False(t, Path{1}.Equal(Path{1, 0}))
}
