package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the dashboard's Prometheus instruments
type Metrics struct {
	// FetchDuration observes every API round trip by endpoint and outcome
	FetchDuration *prometheus.HistogramVec

	// RefreshTotal counts refresh cycles by result (ok, failed, stale)
	RefreshTotal *prometheus.CounterVec

	// IngestTotal counts ingestion attempts by result (ok, failed, rejected)
	IngestTotal *prometheus.CounterVec

	// RenderedRows is the row count of each table after its last render
	RenderedRows *prometheus.GaugeVec
}

// NewMetrics registers the instruments on reg. A nil reg gets a private
// registry so callers that do not export metrics need no special casing.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		FetchDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sentinel_dash_fetch_duration_seconds",
			Help:    "Histogram of API request latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"endpoint", "status"}),

		RefreshTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_dash_refresh_total",
			Help: "Total number of dashboard refresh cycles.",
		}, []string{"result"}),

		IngestTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_dash_ingest_total",
			Help: "Total number of dataset ingestion attempts.",
		}, []string{"result"}),

		RenderedRows: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "sentinel_dash_rendered_rows",
			Help: "Number of rows currently rendered per table.",
		}, []string{"table"}),
	}
}
