package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersAllCollectorsOnOwnRegistry(t *testing.T) {
	m := New()
	require.NotNil(t, m.Registry)

	m.RatlinesRouted.Inc()
	m.RatlinesFailed.Inc()
	m.NavmeshRebuilds.Inc()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.RatlinesRouted))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RatlinesFailed))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.NavmeshRebuilds))
}

func TestNew_SeparateInstancesDoNotShareCounters(t *testing.T) {
	a := New()
	b := New()

	a.RatlinesRouted.Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(a.RatlinesRouted))
	assert.Equal(t, float64(0), testutil.ToFloat64(b.RatlinesRouted))
}
