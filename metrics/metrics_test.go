package metrics

import (
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	m := New()

	m.DepartureQueries.Inc()
	m.ShapeResolutions.WithLabelValues("cache").Inc()
	m.ShapeResolutions.WithLabelValues("cache").Inc()
	m.ShapeRebuildDuration.Observe(0.25)

	assert.Equal(t, 1.0, promtest.ToFloat64(m.DepartureQueries))
	assert.Equal(t, 2.0, promtest.ToFloat64(m.ShapeResolutions.WithLabelValues("cache")))
	assert.Equal(t, 0.0, promtest.ToFloat64(m.ShapeResolutions.WithLabelValues("geometry")))

	families, err := m.Registry.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 3)
}
