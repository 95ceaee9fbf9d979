package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vladislavdragonenkov/cartstate/internal/cart"
)

// CartMetrics содержит метрики состояния корзин.
type CartMetrics struct {
	hydrations      *prometheus.CounterVec
	mutations       *prometheus.CounterVec
	persistWrites   *prometheus.CounterVec
	persistDuration *prometheus.HistogramVec
	eventsPublished *prometheus.CounterVec

	// Открытые cart scope
	openScopes prometheus.Gauge
}

// NewCartMetrics регистрирует метрики в prometheus.DefaultRegisterer.
func NewCartMetrics() *CartMetrics {
	return NewCartMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewCartMetricsWithRegisterer регистрирует метрики в указанном registerer.
func NewCartMetricsWithRegisterer(registerer prometheus.Registerer) *CartMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CartMetrics{
		hydrations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "cartstate_hydrations_total",
			Help: "Cart hydrations by source (store, catalog, failed)",
		}, []string{"source"}),
		mutations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "cartstate_mutations_total",
			Help: "Cart mutations by operation",
		}, []string{"op"}),
		persistWrites: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "cartstate_persist_writes_total",
			Help: "Cart snapshot writes by result",
		}, []string{"result"}),
		persistDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "cartstate_persist_duration_seconds",
			Help:    "Duration of cart snapshot writes including retries",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"result"}),
		eventsPublished: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "cartstate_events_published_total",
			Help: "Cart events handed to the publisher by result",
		}, []string{"result"}),
		openScopes: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "cartstate_open_scopes",
			Help: "Number of currently open cart scopes",
		}),
	}
}

// RecordHydration учитывает гидрацию корзины.
func (m *CartMetrics) RecordHydration(source string) {
	m.hydrations.WithLabelValues(source).Inc()
}

// RecordMutation учитывает мутацию.
func (m *CartMetrics) RecordMutation(op string) {
	m.mutations.WithLabelValues(op).Inc()
}

// RecordPersist учитывает запись снапшота и её длительность.
func (m *CartMetrics) RecordPersist(result string, duration time.Duration) {
	m.persistWrites.WithLabelValues(result).Inc()
	if duration > 0 {
		m.persistDuration.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// RecordEventPublish учитывает публикацию события.
func (m *CartMetrics) RecordEventPublish(result string) {
	m.eventsPublished.WithLabelValues(result).Inc()
}

// RecordScopeOpened увеличивает число открытых scope.
func (m *CartMetrics) RecordScopeOpened() {
	m.openScopes.Inc()
}

// RecordScopeClosed уменьшает число открытых scope.
func (m *CartMetrics) RecordScopeClosed() {
	m.openScopes.Dec()
}

var _ cart.Recorder = (*CartMetrics)(nil)
