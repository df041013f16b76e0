package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics("crm_test")
	m.RecordRequest("/portal/cases", "GET", 200, 15*time.Millisecond)
	m.RecordRequest("/portal/cases", "GET", 200, 5*time.Millisecond)
	m.RecordTransition("In Progress", "Resolved", "MISSING_COMMENT")
	m.SetOpenBreaches(4)
	m.RecordCacheLookup(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestCount.WithLabelValues("/portal/cases", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("In Progress", "Resolved", "MISSING_COMMENT")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.openBreaches))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("hit")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "X")
	m.SetOpenBreaches(1)
	assert.Nil(t, m.Registry())
}
