package queryservice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartaroute/querygraph/pkg/graph"
	"github.com/kartaroute/querygraph/pkg/snap"
	"github.com/kartaroute/querygraph/pkg/spatialhash"
)

func buildService(t *testing.T) (*Service, *graph.BaseGraph) {
	g := graph.NewBaseGraph(2)
	a := g.AddNode(52.50, 13.40)
	b := g.AddNode(52.51, 13.41)
	g.AddEdge(a, b, nil, 0)

	key := spatialhash.NewSpatialKeyAlgo(40)
	hash, err := spatialhash.New(spatialhash.Config{KeyBits: 40, SkipKeyBeginningBits: 24, MaxEntriesPerBucket: 4, BytesPerValue: 4, MaxEntries: 64})
	require.NoError(t, err)
	require.NoError(t, snap.BuildNodeIndex(hash, key, g))

	idx := snap.NewIndex(g, hash, key)
	return New(g, idx, nil), g
}

func TestResolveBuildsQueryGraphForEachWaypoint(t *testing.T) {
	svc, g := buildService(t)

	res, err := svc.Resolve(context.Background(), Request{
		Points:         []graph.Coordinate{{Lat: 52.505, Lon: 13.405}},
		SearchRadiusKm: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, g.Nodes()+1, res.QueryGraph.Nodes())
	assert.NotEmpty(t, res.SnappedPolyline)
	assert.Len(t, res.SnapResults, 1)
}

func TestResolveFailsWhenNoCandidateWithinRadius(t *testing.T) {
	svc, _ := buildService(t)

	_, err := svc.Resolve(context.Background(), Request{
		Points:         []graph.Coordinate{{Lat: 10, Lon: 10}},
		SearchRadiusKm: 0.001,
	})
	assert.Error(t, err)
}

func TestResolveSucceedsUnderRateLimit(t *testing.T) {
	svc, _ := buildService(t)
	svc.SetRateLimit(1000, 1)

	_, err := svc.Resolve(context.Background(), Request{
		Points:         []graph.Coordinate{{Lat: 52.505, Lon: 13.405}},
		SearchRadiusKm: 5,
	})
	require.NoError(t, err)
}

func TestResolveBatchProcessesAllRequests(t *testing.T) {
	svc, _ := buildService(t)

	reqs := []Request{
		{Points: []graph.Coordinate{{Lat: 52.502, Lon: 13.402}}, SearchRadiusKm: 5},
		{Points: []graph.Coordinate{{Lat: 52.508, Lon: 13.408}}, SearchRadiusKm: 5},
		{Points: []graph.Coordinate{{Lat: 10, Lon: 10}}, SearchRadiusKm: 0.001},
	}
	results := svc.ResolveBatch(reqs, 2)
	assert.Len(t, results, 3)

	var successes int
	for _, r := range results {
		if r.QueryGraph != nil {
			successes++
		}
	}
	assert.Equal(t, 2, successes)
}
