package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the controller's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	TicksTotal        prometheus.Counter
	TickFailuresTotal *prometheus.CounterVec
	TickDuration      prometheus.Histogram
	Agents            prometheus.Gauge

	ActionsTotal       *prometheus.CounterVec
	InjectedMovesTotal prometheus.Counter
	SpawnRequestsTotal *prometheus.CounterVec
	ReclaimedTotal     *prometheus.CounterVec
	StoreWritesTotal   prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hivectl_ticks_total",
			Help: "Total number of ticks run",
		}),
		TickFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hivectl_tick_failures_total",
				Help: "Ticks that ended in an error or panic",
			},
			[]string{"kind"},
		),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hivectl_tick_duration_seconds",
			Help:    "Wall time spent in one tick",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}),
		Agents: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hivectl_agents",
			Help: "Live agents seen in the last tick",
		}),
		ActionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hivectl_actions_total",
				Help: "Queued actions executed, by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		InjectedMovesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hivectl_injected_moves_total",
			Help: "Synthetic GO_TO_RANGED steps pushed ahead of out of range actions",
		}),
		SpawnRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hivectl_spawn_requests_total",
				Help: "Production requests issued, by room and result code",
			},
			[]string{"room", "code"},
		),
		ReclaimedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hivectl_reclaimed_records_total",
				Help: "Stale memory records deleted, by namespace",
			},
			[]string{"namespace"},
		),
		StoreWritesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hivectl_store_writes_total",
			Help: "Records written back to the store",
		}),
	}
	m.registry.MustRegister(
		m.TicksTotal,
		m.TickFailuresTotal,
		m.TickDuration,
		m.Agents,
		m.ActionsTotal,
		m.InjectedMovesTotal,
		m.SpawnRequestsTotal,
		m.ReclaimedTotal,
		m.StoreWritesTotal,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
