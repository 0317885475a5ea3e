package spatialhash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashTableGetNodesCircleRoundTrip(t *testing.T) {
	ht := newTestTableWithKeyBits(t, 1024, 4, 40)
	algo := NewSpatialKeyAlgo(40)

	// cluster near Berlin plus one far-away outlier.
	berlin := []struct{ lat, lon float64 }{
		{52.5200, 13.4050},
		{52.5210, 13.4060},
		{52.5190, 13.4040},
	}
	for i, p := range berlin {
		require.NoError(t, ht.AddKey(algo.Encode(p.lat, p.lon), uint32(i+1)))
	}
	require.NoError(t, ht.AddKey(algo.Encode(-33.8688, 151.2093), uint32(99)))

	got := ht.GetNodesCircle(52.52, 13.405, 5)
	assert.ElementsMatch(t, []uint32{1, 2, 3}, got)
}

func TestHashTableGetNodesEmptyRegion(t *testing.T) {
	ht := newTestTableWithKeyBits(t, 1024, 4, 40)
	algo := NewSpatialKeyAlgo(40)
	require.NoError(t, ht.AddKey(algo.Encode(10, 10), 1))

	got := ht.GetNodesCircle(-10, -10, 1)
	assert.Empty(t, got)
}

func TestHashTableGetNodesByKeyMatchesGetKey(t *testing.T) {
	ht := newTestTable(t, 64, 2)
	algo := NewSpatialKeyAlgo(32)
	key := algo.Encode(48.8566, 2.3522)
	require.NoError(t, ht.AddKey(key, 42))

	value, ok := ht.GetNodesByKey(key)
	require.True(t, ok)
	assert.Equal(t, uint32(42), value)
}
