package snap

import (
	"testing"

	"github.com/kartaroute/querygraph/pkg/graph"
	"github.com/kartaroute/querygraph/pkg/spatialhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestGraph(t *testing.T) *graph.BaseGraph {
	g := graph.NewBaseGraph(4)
	a := g.AddNode(52.5200, 13.4050)
	b := g.AddNode(52.5300, 13.4150)
	g.AddEdge(a, b, nil, 0)
	return g
}

func buildTestHash(t *testing.T, g graph.Graph) (*spatialhash.HashTable, *spatialhash.SpatialKeyAlgo) {
	key := spatialhash.NewSpatialKeyAlgo(40)
	hash, err := spatialhash.New(spatialhash.Config{KeyBits: 40, SkipKeyBeginningBits: 24, MaxEntriesPerBucket: 4, BytesPerValue: 3, MaxEntries: 256})
	require.NoError(t, err)
	require.NoError(t, BuildNodeIndex(hash, key, g))
	return hash, key
}

func TestFindClosestSnapsMidEdge(t *testing.T) {
	g := buildTestGraph(t)
	hash, key := buildTestHash(t, g)
	idx := NewIndex(g, hash, key)

	result, err := idx.FindClosest(Request{Lat: 52.5250, Lon: 13.4100, SearchRadiusKm: 5})
	require.NoError(t, err)
	assert.Equal(t, graph.EdgeID(0), result.ClosestEdge)
	assert.Equal(t, OnEdge, result.Position)
	assert.Less(t, result.QueryDistance, 200.0)
}

func TestFindClosestSnapsToTowerNode(t *testing.T) {
	g := buildTestGraph(t)
	hash, key := buildTestHash(t, g)
	idx := NewIndex(g, hash, key)

	result, err := idx.FindClosest(Request{Lat: 52.5200, Lon: 13.4050, SearchRadiusKm: 5})
	require.NoError(t, err)
	assert.Equal(t, Tower, result.Position)
	assert.Equal(t, graph.NodeID(0), result.ClosestNode)
}

func TestFindClosestRejectsInvalidRequest(t *testing.T) {
	g := buildTestGraph(t)
	hash, key := buildTestHash(t, g)
	idx := NewIndex(g, hash, key)

	_, err := idx.FindClosest(Request{Lat: 200, Lon: 13.4, SearchRadiusKm: 1})
	assert.Error(t, err)
}

func TestFindClosestReturnsErrNoCandidatesOutsideRadius(t *testing.T) {
	g := buildTestGraph(t)
	hash, key := buildTestHash(t, g)
	idx := NewIndex(g, hash, key)

	_, err := idx.FindClosest(Request{Lat: -33.8, Lon: 151.2, SearchRadiusKm: 1})
	assert.ErrorIs(t, err, ErrNoCandidates)
}
