package timeline

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nainya/timejump/pkg/daterange"
)

func event(desc string, d int) *Event {
	from := time.Date(2024, time.March, d, 0, 0, 0, 0, time.UTC)
	return &Event{
		Description: desc,
		Range:       daterange.Range{From: from, To: from.AddDate(0, 0, 1)},
	}
}

func sampleStore() (*Store, *Event, *Group, *Event) {
	dentist := event("Dentist", 5)
	flight := event("Flight", 10)
	trip := &Group{Title: "Paris trip", Children: []Node{flight, event("Louvre", 11)}}
	return NewStore(dentist, trip), dentist, trip, flight
}

func TestStore_PathsAndRevision(t *testing.T) {
	st, dentist, trip, flight := sampleStore()

	assert.Equal(t, uint64(1), st.Revision())
	p, ok := st.PathOf(dentist)
	require.True(t, ok)
	assert.Equal(t, "0", p.String())

	p, ok = st.PathOf(trip)
	require.True(t, ok)
	assert.Equal(t, "1", p.String())

	p, ok = st.PathOf(flight)
	require.True(t, ok)
	assert.Equal(t, "1.0", p.String())

	_, ok = st.PathOf(event("stranger", 1))
	assert.False(t, ok)
	_, ok = st.PathOf(nil)
	assert.False(t, ok)

	assert.Equal(t, 4, st.Snapshot().Len())
}

func TestStore_AssignsIDs(t *testing.T) {
	st, dentist, trip, flight := sampleStore()
	assert.NotEmpty(t, dentist.ID)
	assert.NotEmpty(t, trip.ID)
	assert.NotEmpty(t, flight.ID)
	assert.NotEqual(t, dentist.ID, flight.ID)

	kept := &Event{ID: "fixed", Description: "kept"}
	_, err := st.Append(kept)
	require.NoError(t, err)
	assert.Equal(t, "fixed", kept.ID)
}

func TestStore_Get(t *testing.T) {
	st, _, _, flight := sampleStore()
	snap := st.Snapshot()

	n, err := snap.Get(Path{1, 0})
	require.NoError(t, err)
	assert.Same(t, flight, n)

	_, err = snap.Get(Path{5})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = snap.Get(Path{0, 0})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = snap.Get(nil)
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestStore_AppendBumpsRevisionAndKeepsOldSnapshot(t *testing.T) {
	st, _, _, _ := sampleStore()
	before := st.Snapshot()

	rev, err := st.Append(event("Plumber", 20))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), rev)
	assert.Equal(t, rev, st.Revision())

	assert.Len(t, before.Nodes(), 2)
	assert.Len(t, st.Nodes(), 3)
}

func TestStore_AppendToGroup(t *testing.T) {
	st, _, trip, _ := sampleStore()
	before := st.Snapshot()

	museum := event("Orsay", 12)
	rev, err := st.AppendToGroup(Path{1}, museum)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), rev)

	p, ok := st.PathOf(museum)
	require.True(t, ok)
	assert.Equal(t, "1.2", p.String())

	// The published group is a copy; the old snapshot is untouched.
	assert.Len(t, trip.Children, 2)
	old, err := before.Get(Path{1})
	require.NoError(t, err)
	assert.Len(t, old.(*Group).Children, 2)

	_, err = st.AppendToGroup(Path{0}, event("x", 1))
	assert.ErrorIs(t, err, ErrNotGroup)
	_, err = st.AppendToGroup(Path{9}, event("x", 1))
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = st.AppendToGroup(nil, event("x", 1))
	assert.ErrorIs(t, err, ErrInvalidPath)
	assert.Equal(t, uint64(2), st.Revision())
}

func TestStore_Remove(t *testing.T) {
	st, dentist, trip, _ := sampleStore()

	rev, err := st.Remove(Path{0})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), rev)

	_, ok := st.PathOf(dentist)
	assert.False(t, ok)
	p, ok := st.PathOf(st.Nodes()[0])
	require.True(t, ok)
	assert.Equal(t, "0", p.String())
	assert.Equal(t, trip.Title, st.Nodes()[0].(*Group).Title)

	_, err = st.Remove(Path{4})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = st.Remove(Path{1, 7})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Replace(t *testing.T) {
	st, _, _, _ := sampleStore()
	rev := st.Replace([]Node{event("only", 1)})
	assert.Equal(t, uint64(2), rev)
	assert.Len(t, st.Nodes(), 1)
}

func TestStore_ConcurrentAppends(t *testing.T) {
	st := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := st.Append(event("concurrent", 1+i%28))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Len(t, st.Nodes(), 50)
	assert.Equal(t, uint64(51), st.Revision())
}

func TestGroup_RangeAndStart(t *testing.T) {
	_, _, trip, flight := sampleStore()

	r, ok := trip.Range()
	require.True(t, ok)
	assert.True(t, flight.Range.From.Equal(r.From))
	assert.True(t, flight.Range.From.Equal(trip.Start()))
	assert.Len(t, trip.Events(), 2)

	empty := &Group{Title: "empty"}
	_, ok = empty.Range()
	assert.False(t, ok)
}
