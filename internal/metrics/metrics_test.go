package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersEveryCollector(t *testing.T) {
	set := New()

	set.ConnectedPlayers.Inc()
	set.PillsCollected.Inc()
	set.PillsCollected.Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(set.ConnectedPlayers))
	assert.Equal(t, 2.0, testutil.ToFloat64(set.PillsCollected))

	families, err := set.Registry.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 9)
}

func TestSetsUseIndependentRegistries(t *testing.T) {
	first := New()
	second := New()

	first.ConnectedPlayers.Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(first.ConnectedPlayers))
	assert.Equal(t, 0.0, testutil.ToFloat64(second.ConnectedPlayers))
}
