package graph

import (
	"math"
	"testing"

	"github.com/kartaroute/querygraph/pkg/geo"
)

func TestBaseGraphAllEdgesWalksEveryEdgeOnce(t *testing.T) {
	g := NewBaseGraph(3)
	a := g.AddNode(0, 0)
	b := g.AddNode(0, 1)
	c := g.AddNode(1, 1)
	e1 := g.AddEdge(a, b, nil, 0)
	e2 := g.AddEdge(b, c, nil, 0)

	it, err := g.AllEdges()
	if err != nil {
		t.Fatalf("AllEdges: %v", err)
	}
	var seen []EdgeID
	for it.Next() {
		seen = append(seen, it.Edge())
	}
	if len(seen) != 2 || seen[0] != e1 || seen[1] != e2 {
		t.Fatalf("unexpected edge walk order: %v", seen)
	}
}

func TestBaseGraphDistanceMatchesFullGeometry(t *testing.T) {
	g := NewBaseGraph(2)
	a := g.AddNode(52.50, 13.40)
	b := g.AddNode(52.51, 13.41)
	e := g.AddEdge(a, b, Points{{Lat: 52.505, Lon: 13.405}}, 0)

	state, err := g.GetEdgeIteratorState(e, NoNode)
	if err != nil {
		t.Fatalf("GetEdgeIteratorState: %v", err)
	}
	full := state.WayGeometry(All)
	if full.Size() != 3 {
		t.Fatalf("expected base+pillar+adj, got %d points", full.Size())
	}
	if state.Distance() <= 0 {
		t.Fatalf("expected positive distance, got %f", state.Distance())
	}
	var want float64
	for i := 1; i < full.Size(); i++ {
		want += geo.CalculateHaversineDistance(full.Lat(i-1), full.Lon(i-1), full.Lat(i), full.Lon(i)) * 1000
	}
	if math.Abs(state.Distance()-want) > 1e-6 {
		t.Fatalf("distance %f does not match full geometry %f", state.Distance(), want)
	}
}
