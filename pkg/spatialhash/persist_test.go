package spatialhash

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashTableSaveLoadRoundTrip(t *testing.T) {
	ht := newTestTable(t, 64, 2)
	algo := NewSpatialKeyAlgo(32)

	keys := []uint64{
		algo.Encode(52.5, 13.4),
		algo.Encode(-33.8, 151.2),
		algo.Encode(40.7, -74.0),
	}
	for i, key := range keys {
		require.NoError(t, ht.AddKey(key, uint32(i+1)))
	}

	path := filepath.Join(t.TempDir(), "table.bin.bz2")
	require.NoError(t, ht.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ht.Size(), loaded.Size())

	for i, key := range keys {
		value, ok := loaded.GetKey(key)
		require.True(t, ok)
		assert.Equal(t, uint32(i+1), value)
	}
}
