package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewTwiceDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
}

func TestCounters(t *testing.T) {
	m := New()
	m.IncVisitOutcome("REALIZED")
	m.IncVisitOutcome("REALIZED")
	m.AddImportRows("created", 3)
	m.AddImportRows("skipped", 0)
	m.IncRouteCreated("daily")
	m.ObserveHTTP("GET", "/api/v1/customers", "200", 20*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.visitOutcomes.WithLabelValues("REALIZED")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.importRows.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.routesCreated.WithLabelValues("daily")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.httpDuration))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncCallOutcome("REFUSED")
		m.SetWebsocketClients(2)
	})
}
