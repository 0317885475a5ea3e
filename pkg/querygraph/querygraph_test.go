package querygraph

import (
	"testing"

	"github.com/kartaroute/querygraph/pkg/graph"
	"github.com/kartaroute/querygraph/pkg/snap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// a two-node, one-edge base graph: node 0 at (52.50,13.40), node 1 at
// (52.51,13.41), connected by a single straight edge.
func twoNodeGraph(t *testing.T) (*graph.BaseGraph, graph.NodeID, graph.NodeID, graph.EdgeID) {
	g := graph.NewBaseGraph(2)
	a := g.AddNode(52.50, 13.40)
	b := g.AddNode(52.51, 13.41)
	e := g.AddEdge(a, b, nil, 0)
	return g, a, b, e
}

func TestLookupSingleSnapCreatesFourEdgeQuadrant(t *testing.T) {
	g, a, b, e := twoNodeGraph(t)
	mid := graph.Coordinate{Lat: 52.505, Lon: 13.405}

	qg, err := Lookup(g, []snap.QueryResult{
		{ClosestEdge: e, SnappedPoint: mid, WayIndex: 0, Position: snap.OnEdge},
	})
	require.NoError(t, err)

	assert.Equal(t, g.Nodes()+1, qg.Nodes())
	assert.Equal(t, g.Edges()+2, qg.Edges())

	virtualNode := graph.NodeID(g.Nodes())
	assert.True(t, qg.IsVirtualNode(virtualNode))
	assert.False(t, qg.IsVirtualNode(a))

	explorer := qg.CreateEdgeExplorer(graph.AllEdges)
	it := explorer.SetBaseNode(virtualNode)
	count := 0
	var neighbors []graph.NodeID
	for it.Next() {
		count++
		neighbors = append(neighbors, it.AdjNode())
	}
	assert.Equal(t, 2, count)
	assert.ElementsMatch(t, []graph.NodeID{a, b}, neighbors)
}

func TestLookupHidesOriginalEdgeAtRealNodes(t *testing.T) {
	g, a, _, e := twoNodeGraph(t)
	mid := graph.Coordinate{Lat: 52.505, Lon: 13.405}

	qg, err := Lookup(g, []snap.QueryResult{
		{ClosestEdge: e, SnappedPoint: mid, WayIndex: 0, Position: snap.OnEdge},
	})
	require.NoError(t, err)

	it := qg.CreateEdgeExplorer(graph.AllEdges).SetBaseNode(a)
	var seen []graph.EdgeID
	for it.Next() {
		seen = append(seen, it.Edge())
	}
	assert.NotContains(t, seen, e)
	assert.Len(t, seen, 1)
}

func TestLookupReverseEdgePairing(t *testing.T) {
	g, _, b, e := twoNodeGraph(t)
	mid := graph.Coordinate{Lat: 52.505, Lon: 13.405}

	qg, err := Lookup(g, []snap.QueryResult{
		{ClosestEdge: e, SnappedPoint: mid, WayIndex: 0, Position: snap.OnEdge},
	})
	require.NoError(t, err)

	virtualNode := graph.NodeID(g.Nodes())
	// the first segment created is (a,virtualNode); the second, (virtualNode,b).
	state, err := qg.GetEdgeIteratorState(graph.EdgeID(g.Edges()+1), b)
	require.NoError(t, err)
	assert.Equal(t, virtualNode, state.BaseNode())
	assert.Equal(t, b, state.AdjNode())

	rev := state.Detach(true)
	assert.Equal(t, b, rev.BaseNode())
	assert.Equal(t, virtualNode, rev.AdjNode())
	assert.Equal(t, state.Distance(), rev.Distance())
}

func TestLookupDistanceConservation(t *testing.T) {
	g, _, _, e := twoNodeGraph(t)
	originalState, err := g.GetEdgeIteratorState(e, graph.NoNode)
	require.NoError(t, err)
	originalDist := originalState.Distance()

	mid := graph.Coordinate{Lat: 52.505, Lon: 13.405}
	qg, err := Lookup(g, []snap.QueryResult{
		{ClosestEdge: e, SnappedPoint: mid, WayIndex: 0, Position: snap.OnEdge},
	})
	require.NoError(t, err)

	var total float64
	for eid := graph.EdgeID(g.Edges()); eid < graph.EdgeID(qg.Edges()); eid++ {
		state, err := qg.GetEdgeIteratorState(eid, graph.NoNode)
		require.NoError(t, err)
		total += state.Distance()
	}
	assert.InDelta(t, originalDist, total, 1.0)
}

func TestLookupMultipleSnapsOnSameEdgeOrderedAlongIt(t *testing.T) {
	g, a, _, e := twoNodeGraph(t)
	near := graph.Coordinate{Lat: 52.503, Lon: 13.403}
	far := graph.Coordinate{Lat: 52.507, Lon: 13.407}

	qg, err := Lookup(g, []snap.QueryResult{
		{ClosestEdge: e, SnappedPoint: far, WayIndex: 0, Position: snap.OnEdge},
		{ClosestEdge: e, SnappedPoint: near, WayIndex: 0, Position: snap.OnEdge},
	})
	require.NoError(t, err)

	assert.Equal(t, g.Nodes()+2, qg.Nodes())
	assert.Equal(t, g.Edges()+3, qg.Edges())

	nearNode := graph.NodeID(g.Nodes())
	farNode := graph.NodeID(g.Nodes() + 1)

	it := qg.CreateEdgeExplorer(graph.AllEdges).SetBaseNode(nearNode)
	var neighbors []graph.NodeID
	for it.Next() {
		neighbors = append(neighbors, it.AdjNode())
	}
	assert.ElementsMatch(t, []graph.NodeID{a, farNode}, neighbors)
}

func TestGetBaseGraphReturnsUnmodifiedView(t *testing.T) {
	g, _, _, e := twoNodeGraph(t)
	mid := graph.Coordinate{Lat: 52.505, Lon: 13.405}
	qg, err := Lookup(g, []snap.QueryResult{
		{ClosestEdge: e, SnappedPoint: mid, WayIndex: 0, Position: snap.OnEdge},
	})
	require.NoError(t, err)

	base := qg.GetBaseGraph()
	assert.Equal(t, g.Nodes(), base.Nodes())
	assert.Equal(t, g.Edges(), base.Edges())
}

func TestTowerSnapCreatesNoVirtualState(t *testing.T) {
	g, a, _, e := twoNodeGraph(t)

	qg, err := Lookup(g, []snap.QueryResult{
		{ClosestEdge: e, ClosestNode: a, Position: snap.Tower},
	})
	require.NoError(t, err)
	assert.Equal(t, g.Nodes(), qg.Nodes())
	assert.Equal(t, g.Edges(), qg.Edges())
}

func TestUnfavorAndClear(t *testing.T) {
	g, _, _, e := twoNodeGraph(t)
	mid := graph.Coordinate{Lat: 52.505, Lon: 13.405}
	qg, err := Lookup(g, []snap.QueryResult{
		{ClosestEdge: e, SnappedPoint: mid, WayIndex: 0, Position: snap.OnEdge},
	})
	require.NoError(t, err)

	firstVirtualEdge := graph.EdgeID(g.Edges())
	require.NoError(t, qg.UnfavorVirtualEdgePair(firstVirtualEdge))
	assert.Contains(t, qg.GetUnfavoredVirtualEdges(), firstVirtualEdge)

	qg.ClearUnfavoredStatus()
	assert.Empty(t, qg.GetUnfavoredVirtualEdges())
}

func TestMutationMethodsReturnErrNotSupported(t *testing.T) {
	g, _, _, _ := twoNodeGraph(t)
	qg, err := Lookup(g, nil)
	require.NoError(t, err)

	_, err = qg.AddNode(0, 0)
	assert.ErrorIs(t, err, graph.ErrNotSupported)

	_, err = qg.AddEdge(0, 1, nil, 0)
	assert.ErrorIs(t, err, graph.ErrNotSupported)

	_, err = qg.AllEdges()
	assert.ErrorIs(t, err, graph.ErrNotSupported)
}
