// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/autobrr/torrenthunt/internal/models"
	"github.com/autobrr/torrenthunt/internal/services/hunt"
)

// otherProvider labels provider keys missing from the registry so arbitrary
// request input cannot grow the number of series.
const otherProvider = "other"

// MetricsManager owns the Prometheus registry and the collectors fed by the hunt service.
type MetricsManager struct {
	registry  *prometheus.Registry
	providers *models.Registry

	ProviderRequests *prometheus.CounterVec
	ProviderLatency  *prometheus.HistogramVec
	ProviderRecords  *prometheus.CounterVec
	ProviderSkipped  *prometheus.CounterVec
	Queries          *prometheus.CounterVec
	QueryDuration    *prometheus.HistogramVec
	QueryResults     prometheus.Histogram
}

// NewMetricsManager creates a registry with Go and process collectors plus the
// torrenthunt metrics. Provider labels are limited to the keys in providers;
// a nil registry keeps keys as given.
func NewMetricsManager(providers *models.Registry) *MetricsManager {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)
	return &MetricsManager{
		registry:  reg,
		providers: providers,
		ProviderRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "torrenthunt_provider_requests_total",
			Help: "Total number of upstream provider requests by outcome",
		}, []string{"provider", "kind", "outcome"}),
		ProviderLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "torrenthunt_provider_request_duration_seconds",
			Help:    "Time spent waiting for upstream providers",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		}, []string{"provider", "kind"}),
		ProviderRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "torrenthunt_provider_records_total",
			Help: "Total number of records returned by providers",
		}, []string{"provider"}),
		ProviderSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "torrenthunt_provider_skipped_records_total",
			Help: "Total number of provider records dropped for lacking a magnet link",
		}, []string{"provider"}),
		Queries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "torrenthunt_queries_total",
			Help: "Total number of search and trending queries by status",
		}, []string{"kind", "status"}),
		QueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "torrenthunt_query_duration_seconds",
			Help:    "End to end query time including fan-out, filtering and sorting",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		QueryResults: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "torrenthunt_query_results",
			Help:    "Number of records returned per successful query",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		}),
	}
}

// Registry exposes the underlying registry for the metrics server and tests.
func (m *MetricsManager) Registry() *prometheus.Registry {
	return m.registry
}

func (m *MetricsManager) ObserveProviderCall(provider string, kind hunt.Kind, outcome string, duration time.Duration, records, skipped int) {
	provider = m.providerLabel(provider)
	m.ProviderRequests.WithLabelValues(provider, string(kind), outcome).Inc()
	m.ProviderLatency.WithLabelValues(provider, string(kind)).Observe(duration.Seconds())
	if records > 0 {
		m.ProviderRecords.WithLabelValues(provider).Add(float64(records))
	}
	if skipped > 0 {
		m.ProviderSkipped.WithLabelValues(provider).Add(float64(skipped))
	}
}

func (m *MetricsManager) ObserveQuery(kind hunt.Kind, status hunt.StatusKind, records int, duration time.Duration) {
	m.Queries.WithLabelValues(string(kind), string(status)).Inc()
	if status != hunt.StatusOK {
		return
	}
	m.QueryDuration.WithLabelValues(string(kind)).Observe(duration.Seconds())
	m.QueryResults.Observe(float64(records))
}

func (m *MetricsManager) providerLabel(key string) string {
	if m.providers == nil {
		return key
	}
	if p, ok := m.providers.Provider(key); ok {
		return p.Key
	}
	return otherProvider
}

var _ hunt.Recorder = (*MetricsManager)(nil)
