package spatialhash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTable(t *testing.T, maxEntries, entriesPerBucket int) *HashTable {
	return newTestTableWithKeyBits(t, maxEntries, entriesPerBucket, 32)
}

func newTestTableWithKeyBits(t *testing.T, maxEntries, entriesPerBucket, keyBits int) *HashTable {
	ht, err := New(Config{
		KeyBits:              keyBits,
		SkipKeyBeginningBits: 64 - keyBits,
		MaxEntries:           maxEntries,
		MaxEntriesPerBucket:  entriesPerBucket,
		BytesPerValue:        3,
	})
	require.NoError(t, err)
	return ht
}

func TestHashTableAddAndGetKey(t *testing.T) {
	ht := newTestTable(t, 64, 2)
	algo := NewSpatialKeyAlgo(32)

	type fixture struct {
		lat, lon float64
		node     uint32
	}
	fixtures := []fixture{
		{52.5, 13.4, 1},
		{-33.8, 151.2, 2},
		{40.7, -74.0, 3},
		{35.6, 139.6, 4},
	}
	for _, f := range fixtures {
		require.NoError(t, ht.AddKey(algo.Encode(f.lat, f.lon), f.node))
	}
	assert.Equal(t, len(fixtures), ht.Size())

	for _, f := range fixtures {
		value, ok := ht.GetKey(algo.Encode(f.lat, f.lon))
		require.True(t, ok)
		assert.Equal(t, f.node, value)
	}

	_, ok := ht.GetKey(algo.Encode(0, 0))
	assert.False(t, ok)
}

func TestHashTableDuplicateKeysCoexist(t *testing.T) {
	// duplicate keys are allowed and accumulate as distinct entries
	// rather than overwriting one another.
	ht := newTestTable(t, 64, 2)
	key := NewSpatialKeyAlgo(32).Encode(1, 1)

	require.NoError(t, ht.AddKey(key, 7))
	require.NoError(t, ht.AddKey(key, 9))
	assert.Equal(t, 2, ht.Size())

	value, ok := ht.GetKey(key)
	require.True(t, ok)
	assert.Contains(t, []uint32{7, 9}, value)
}

func TestHashTableOverflowChaining(t *testing.T) {
	// all ten keys lie near (0,0) and share one bucket index, so the
	// home bucket keeps two of them and the rest chain through the
	// overflow regions of the following buckets.
	ht := newTestTable(t, 20, 1)
	algo := NewSpatialKeyAlgo(32)

	keys := make([]uint64, 0, 10)
	for i := 0; i < 10; i++ {
		key := algo.Encode(float64(i), float64(i)*2)
		keys = append(keys, key)
		require.NoError(t, ht.AddKey(key, uint32(i+1)))
	}
	assert.Equal(t, 10, ht.Size())
	for i, key := range keys {
		value, ok := ht.GetKey(key)
		require.True(t, ok, "key %d should be found", i)
		assert.Equal(t, uint32(i+1), value)
	}
}

func TestHashTableReturnsErrTableFullWhenExhausted(t *testing.T) {
	ht := newTestTable(t, 1, 1)
	algo := NewSpatialKeyAlgo(32)

	var lastErr error
	for i := 0; i < maxOverflowSteps+10; i++ {
		lastErr = ht.AddKey(algo.Encode(float64(i), 0), uint32(i))
		if lastErr != nil {
			break
		}
	}
	assert.ErrorIs(t, lastErr, ErrTableFull)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(Config{KeyBits: 0, SkipKeyBeginningBits: 64, MaxEntriesPerBucket: 2, BytesPerValue: 3, MaxEntries: 64})
	assert.ErrorIs(t, err, ErrConfigError)

	// a huge MaxEntries relative to a tiny KeyBits drives bucketIndexBits
	// past what the key width can support.
	_, err = New(Config{KeyBits: 8, SkipKeyBeginningBits: 56, MaxEntriesPerBucket: 2, BytesPerValue: 3, MaxEntries: 1 << 20})
	assert.ErrorIs(t, err, ErrConfigError)
}

func TestHashTableClear(t *testing.T) {
	ht := newTestTable(t, 64, 2)
	algo := NewSpatialKeyAlgo(32)
	require.NoError(t, ht.AddKey(algo.Encode(1, 1), 1))
	require.NoError(t, ht.AddKey(algo.Encode(2, 2), 2))
	assert.Equal(t, 2, ht.Size())

	ht.Clear()
	assert.Equal(t, 0, ht.Size())
	_, ok := ht.GetKey(algo.Encode(1, 1))
	assert.False(t, ok)
}
