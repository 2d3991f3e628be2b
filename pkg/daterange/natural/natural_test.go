package natural

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday noon.
var ref = time.Date(2024, time.January, 10, 12, 0, 0, 0, time.UTC)

func TestParse_NextWeekday(t *testing.T) {
	mentions := New().Parse("dinner next tuesday", ref)
	require.Len(t, mentions, 1)

	m := mentions[0]
	assert.Equal(t, time.Tuesday, m.Start.Weekday())
	assert.True(t, m.Start.After(ref))
	assert.Less(t, m.Start.Sub(ref), 15*24*time.Hour)
	assert.Nil(t, m.End)
	assert.Contains(t, m.Text, "tuesday")
}

func TestParse_Tomorrow(t *testing.T) {
	mentions := New().Parse("tomorrow", ref)
	require.Len(t, mentions, 1)
	assert.Equal(t, 11, mentions[0].Start.Day())
}

func TestParse_NoMention(t *testing.T) {
	p := New()
	assert.Empty(t, p.Parse("dentist appointment", ref))
	assert.Empty(t, p.Parse("", ref))
	assert.Empty(t, p.Parse("   ", ref))
}

func TestAfterConnector(t *testing.T) {
	tail, ok := afterConnector("  to friday")
	require.True(t, ok)
	assert.Equal(t, "friday", tail)

	tail, ok = afterConnector(" Until friday")
	require.True(t, ok)
	assert.Equal(t, "friday", tail)

	tail, ok = afterConnector(" — friday")
	require.True(t, ok)
	assert.Equal(t, "friday", tail)

	_, ok = afterConnector(" with friends")
	assert.False(t, ok)
}
