package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAccumulate(t *testing.T) {
	m := NewMetrics()
	m.TicksTotal.Inc()
	m.TicksTotal.Inc()
	m.ActionsTotal.WithLabelValues("HARVEST", "pending").Inc()
	m.SpawnRequestsTotal.WithLabelValues("W1N1", "OK").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TicksTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActionsTotal.WithLabelValues("HARVEST", "pending")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SpawnRequestsTotal.WithLabelValues("W1N1", "OK")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewMetrics()
	m.TicksTotal.Inc()
	m.ReclaimedTotal.WithLabelValues("creeps").Add(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "hivectl_ticks_total 1")
	assert.Contains(t, body, `hivectl_reclaimed_records_total{namespace="creeps"} 3`)
}

func TestSeparateRegistries(t *testing.T) {
	a, b := NewMetrics(), NewMetrics()
	a.TicksTotal.Inc()
	assert.Zero(t, testutil.ToFloat64(b.TicksTotal))
	assert.NotSame(t, a.Registry(), b.Registry())
}
