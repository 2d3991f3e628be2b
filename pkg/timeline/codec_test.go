package timeline

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `{
  "nodes": [
    {"description": "Dentist", "tags": ["health"], "supplemental": ["bring card"], "from": "2024-03-05"},
    {"title": "Paris trip", "tags": ["travel"], "children": [
      {"description": "Flight", "from": "2024-03-10T08:30:00Z", "to": "2024-03-10T10:45:00Z"},
      {"description": "Louvre", "from": "2024-03-11", "to": "2024-03-12"}
    ]},
    {"title": "Someday", "children": []}
  ]
}`

func TestDecode(t *testing.T) {
	nodes, err := Decode(strings.NewReader(sampleJSON), time.UTC)
	require.NoError(t, err)
	require.Len(t, nodes, 3)

	dentist, ok := nodes[0].(*Event)
	require.True(t, ok)
	assert.Equal(t, "Dentist", dentist.Description)
	assert.Equal(t, []string{"health"}, dentist.Tags)
	assert.Equal(t, []Block{{Raw: "bring card"}}, dentist.Supplemental)
	// A date without "to" spans the day.
	assert.Equal(t, 24*time.Hour, dentist.Range.Span())

	trip, ok := nodes[1].(*Group)
	require.True(t, ok)
	require.Len(t, trip.Children, 2)
	assert.Nil(t, trip.Span)

	flight := trip.Children[0].(*Event)
	assert.Equal(t, 135*time.Minute, flight.Range.Span())

	// A date-only "to" is inclusive.
	louvre := trip.Children[1].(*Event)
	assert.Equal(t, 48*time.Hour, louvre.Range.Span())

	empty, ok := nodes[2].(*Group)
	require.True(t, ok)
	assert.Empty(t, empty.Children)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{nodes`},
		{"missing from", `{"nodes":[{"description":"x"}]}`},
		{"bad date", `{"nodes":[{"description":"x","from":"March 5th"}]}`},
		{"reversed", `{"nodes":[{"description":"x","from":"2024-03-05","to":"2024-03-01"}]}`},
		{"bad child", `{"nodes":[{"title":"g","children":[{"description":"x","from":"nope"}]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.body), time.UTC)
			assert.Error(t, err)
		})
	}
}

func TestDecodeEvent(t *testing.T) {
	e, err := DecodeEvent(strings.NewReader(`{"description":"Plumber","from":"2024-04-01T09:00:00Z"}`), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "Plumber", e.Description)
	assert.Equal(t, time.Minute, e.Range.Span())

	_, err = DecodeEvent(strings.NewReader(`{"title":"group","children":[]}`), time.UTC)
	assert.Error(t, err)
}

func TestEncodeRoundTrip(t *testing.T) {
	nodes, err := Decode(strings.NewReader(sampleJSON), time.UTC)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, nodes))

	again, err := Decode(&buf, time.UTC)
	require.NoError(t, err)
	require.Len(t, again, 3)

	orig := nodes[1].(*Group).Children[1].(*Event)
	back := again[1].(*Group).Children[1].(*Event)
	assert.Equal(t, orig.Description, back.Description)
	assert.True(t, orig.Range.From.Equal(back.Range.From))
	assert.True(t, orig.Range.To.Equal(back.Range.To))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timeline.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleJSON), 0o644))

	nodes, err := LoadFile(path, time.UTC)
	require.NoError(t, err)
	assert.Len(t, nodes, 3)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"), time.UTC)
	assert.Error(t, err)
}
