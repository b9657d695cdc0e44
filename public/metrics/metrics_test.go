package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistersOnRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RefreshTotal.WithLabelValues("ok").Inc()
	m.IngestTotal.WithLabelValues("rejected").Inc()
	m.RenderedRows.WithLabelValues("alerts").Set(3)
	m.FetchDuration.WithLabelValues("/alerts", "200").Observe(0.01)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RefreshTotal.WithLabelValues("ok")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RenderedRows.WithLabelValues("alerts")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.ElementsMatch(t, []string{
		"sentinel_dash_fetch_duration_seconds",
		"sentinel_dash_refresh_total",
		"sentinel_dash_ingest_total",
		"sentinel_dash_rendered_rows",
	}, names)
}

func TestNewMetricsNilRegistryIsPrivate(t *testing.T) {
	// two instances must not collide on a shared default registry
	assert.NotPanics(t, func() {
		NewMetrics(nil)
		NewMetrics(nil)
	})
}
