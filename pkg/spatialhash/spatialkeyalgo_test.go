package spatialhash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpatialKeyAlgoEncodeDecodeRoundTrip(t *testing.T) {
	algo := NewSpatialKeyAlgo(32)
	cases := []struct{ lat, lon float64 }{
		{0, 0},
		{52.5200, 13.4050},
		{-33.8688, 151.2093},
		{89.9, -179.9},
		{-89.9, 179.9},
	}
	tolerance := 1.0 / (1 << 15)
	for _, c := range cases {
		key := algo.Encode(c.lat, c.lon)
		lat, lon := algo.Decode(key)
		assert.InDelta(t, c.lat, lat, tolerance*180, "lat for (%v,%v)", c.lat, c.lon)
		assert.InDelta(t, c.lon, lon, tolerance*360, "lon for (%v,%v)", c.lat, c.lon)
	}
}

func TestSpatialKeyAlgoMonotonicByBits(t *testing.T) {
	coarse := NewSpatialKeyAlgo(16)
	fine := NewSpatialKeyAlgo(48)
	assert.Less(t, coarse.ExactPrecision(), fine.ExactPrecision())
}

func TestSpatialKeyAlgoOddBitWidth(t *testing.T) {
	algo := NewSpatialKeyAlgo(33)
	key := algo.Encode(10.5, -20.25)
	lat, lon := algo.Decode(key)
	assert.InDelta(t, 10.5, lat, 0.01)
	assert.InDelta(t, -20.25, lon, 0.01)
}
