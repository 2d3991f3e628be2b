package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_RegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	require.NotNil(t, m)

	// A second set on the same registry collides.
	assert.Panics(t, func() { NewMetrics(reg) })

	// Independent registries do not.
	assert.NotPanics(t, func() { NewMetrics(prometheus.NewRegistry()) })
}

func TestIndexBuilt(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.IndexBuilt(12, 1, 3*time.Millisecond)
	m.IndexBuilt(9, 0, time.Millisecond)
	m.ProjectionAnomaly()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.IndexBuildsTotal))
	assert.Equal(t, float64(9), testutil.ToFloat64(m.IndexedDocuments))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ProjectionAnomalyTotal))
}

func TestQueryServed(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.QueryServed("both", 1, 3, time.Millisecond)
	m.QueryServed("text", 0, 2, time.Millisecond)
	m.QueryServed("empty", 0, 0, time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.QueriesTotal.WithLabelValues("both")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.QueriesTotal.WithLabelValues("empty")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ResultsTotal.WithLabelValues("dateRange")))
	assert.Equal(t, float64(5), testutil.ToFloat64(m.ResultsTotal.WithLabelValues("match")))
}

func TestRecordHTTPRequest(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordHTTPRequest("/search", "200", time.Millisecond)
	m.RecordHTTPRequest("/search", "200", time.Millisecond)
	m.RecordHTTPRequest("/search", "400", time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("/search", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("/search", "400")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPRequestDuration))
}

func TestJournalWritten(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.JournalWritten("append", 120)
	m.JournalWritten("remove", 33)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.JournalWritesTotal.WithLabelValues("append")))
	assert.Equal(t, float64(153), testutil.ToFloat64(m.JournalBytesTotal))
}

func TestServerUptime(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.ServerStartTime = time.Now().Add(-time.Minute)
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.ServerUptimeSeconds), 60.0)
}
