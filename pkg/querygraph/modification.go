package querygraph

import (
	"sort"

	"github.com/kartaroute/querygraph/pkg/geo"
	"github.com/kartaroute/querygraph/pkg/graph"
	"github.com/kartaroute/querygraph/pkg/snap"
	"github.com/kartaroute/querygraph/pkg/util"
)

// Direction names for a virtual node's two-entry quadrant, named after
// the base edge's original VE_BASE/VE_BASE_REV/VE_ADJ/VE_ADJ_REV
// convention. Since one query can snap several points onto the same
// base edge, a virtual node's quadrant here generalizes to "the edge
// going to the next node in the split chain" (Base) and "the edge going
// to the previous node in the chain" (Adj); the _REV variants are just
// those two edges' reverse view and are not stored separately.
const (
	VEBase = iota
	VEAdj
)

// GraphModification is the computed delta that splices a batch of
// resolved snaps into a base graph: new virtual nodes and edges, plus
// the per-real-tower-node additions and removals needed so exploring a
// real node sees the split edges instead of the original one.
type GraphModification struct {
	base graph.Graph

	mainNodes int
	mainEdges int

	virtualNodeCoord       []graph.Coordinate
	virtualNodeClosestEdge []graph.EdgeID
	virtualNodeQuad        [][2]*VirtualEdgeIteratorState

	edgeByID map[graph.EdgeID]*VirtualEdgeIteratorState

	additionalEdgesAtRealNodes map[graph.NodeID][]*VirtualEdgeIteratorState
	removedEdgesAtRealNodes    map[graph.NodeID]map[graph.EdgeID]bool
}

// BuildGraphModification computes virtual nodes/edges for every
// non-tower snap result, grouped by the base edge each result resolved
// to and ordered along that edge. Results whose Position is snap.Tower
// contribute no virtual node: they reuse the existing real node id
// directly.
func BuildGraphModification(base graph.Graph, results []snap.QueryResult) (*GraphModification, error) {
	gm := &GraphModification{
		base:                       base,
		mainNodes:                  base.Nodes(),
		mainEdges:                  base.Edges(),
		edgeByID:                   make(map[graph.EdgeID]*VirtualEdgeIteratorState),
		additionalEdgesAtRealNodes: make(map[graph.NodeID][]*VirtualEdgeIteratorState),
		removedEdgesAtRealNodes:    make(map[graph.NodeID]map[graph.EdgeID]bool),
	}

	groups := make(map[graph.EdgeID][]snap.QueryResult)
	var order []graph.EdgeID
	for _, r := range results {
		if r.Position == snap.Tower {
			continue
		}
		if _, ok := groups[r.ClosestEdge]; !ok {
			order = append(order, r.ClosestEdge)
		}
		groups[r.ClosestEdge] = append(groups[r.ClosestEdge], r)
	}

	nextNode := graph.NodeID(gm.mainNodes)
	nextEdge := graph.EdgeID(gm.mainEdges)

	for _, edgeID := range order {
		var err error
		nextNode, nextEdge, err = gm.splitEdge(edgeID, groups[edgeID], nextNode, nextEdge)
		if err != nil {
			return nil, err
		}
	}

	return gm, nil
}

type chainNode struct {
	node            graph.NodeID
	distAlong       float64
	afterIdx        int
	point           graph.Coordinate
	virtual         bool
	virtualLocalIdx int
}

// splitEdge replaces one base edge with the chain of virtual edges
// implied by the snaps in group, sorted by distance along the edge.
func (gm *GraphModification) splitEdge(edgeID graph.EdgeID, group []snap.QueryResult, nextNode graph.NodeID, nextEdge graph.EdgeID) (graph.NodeID, graph.EdgeID, error) {
	state, err := gm.base.GetEdgeIteratorState(edgeID, graph.NoNode)
	if err != nil {
		return nextNode, nextEdge, err
	}
	full := state.WayGeometry(graph.All)
	n := full.Size()
	cum := cumulativeDistances(full)

	chain := make([]chainNode, 0, len(group)+2)
	chain = append(chain, chainNode{
		node: state.BaseNode(), distAlong: 0, afterIdx: 0,
		point: graph.Coordinate{Lat: full.Lat(0), Lon: full.Lon(0)},
	})

	type withDist struct {
		r    snap.QueryResult
		dist float64
	}
	ordered := make([]withDist, 0, len(group))
	for _, r := range group {
		d := cum[r.WayIndex] + haversineMeters(full.Lat(r.WayIndex), full.Lon(r.WayIndex), r.SnappedPoint.Lat, r.SnappedPoint.Lon)
		ordered = append(ordered, withDist{r: r, dist: d})
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].dist < ordered[j].dist })

	for _, wd := range ordered {
		vnID := nextNode
		nextNode++
		localIdx := len(gm.virtualNodeCoord)
		gm.virtualNodeCoord = append(gm.virtualNodeCoord, wd.r.SnappedPoint)
		gm.virtualNodeClosestEdge = append(gm.virtualNodeClosestEdge, edgeID)
		gm.virtualNodeQuad = append(gm.virtualNodeQuad, [2]*VirtualEdgeIteratorState{})
		chain = append(chain, chainNode{
			node: vnID, distAlong: wd.dist, afterIdx: wd.r.WayIndex,
			point: wd.r.SnappedPoint, virtual: true, virtualLocalIdx: localIdx,
		})
	}

	chain = append(chain, chainNode{
		node: state.AdjNode(), distAlong: cum[n-1], afterIdx: n - 2,
		point: graph.Coordinate{Lat: full.Lat(n - 1), Lon: full.Lon(n - 1)},
	})
	util.AssertPanic(len(chain) >= 2, "split chain must retain both tower endpoints")

	for i := 0; i+1 < len(chain); i++ {
		left, right := chain[i], chain[i+1]
		segGeom := sliceSegmentGeometry(full, left, right)
		eid := nextEdge
		nextEdge++

		fwd, rev := newVirtualEdgePair(eid, edgeID, left.node, right.node, segGeom, state.Flags())
		gm.edgeByID[eid] = fwd

		if left.virtual {
			gm.virtualNodeQuad[left.virtualLocalIdx][VEBase] = fwd
		} else {
			gm.additionalEdgesAtRealNodes[left.node] = append(gm.additionalEdgesAtRealNodes[left.node], fwd)
		}
		if right.virtual {
			gm.virtualNodeQuad[right.virtualLocalIdx][VEAdj] = rev
		} else {
			gm.additionalEdgesAtRealNodes[right.node] = append(gm.additionalEdgesAtRealNodes[right.node], rev)
		}
	}

	gm.markRemoved(state.BaseNode(), edgeID)
	gm.markRemoved(state.AdjNode(), edgeID)

	return nextNode, nextEdge, nil
}

func (gm *GraphModification) markRemoved(node graph.NodeID, edge graph.EdgeID) {
	set, ok := gm.removedEdgesAtRealNodes[node]
	if !ok {
		set = make(map[graph.EdgeID]bool)
		gm.removedEdgesAtRealNodes[node] = set
	}
	set[edge] = true
}

func newVirtualEdgePair(eid, originalEdge graph.EdgeID, base, adj graph.NodeID, geometry graph.Points, flags uint32) (fwd, rev *VirtualEdgeIteratorState) {
	dist := sumHaversineMeters(geometry)
	unfavored := new(bool)
	fwd = &VirtualEdgeIteratorState{
		edge: eid, originalEdge: originalEdge, base: base, adj: adj,
		dist: dist, flags: flags, geometry: geometry, unfavored: unfavored,
	}
	rev = &VirtualEdgeIteratorState{
		edge: eid, originalEdge: originalEdge, base: adj, adj: base,
		dist: dist, flags: flags, geometry: geometry.Reverse(), unfavored: unfavored,
	}
	fwd.reverse = rev
	rev.reverse = fwd
	return fwd, rev
}

func sliceSegmentGeometry(full graph.PointList, left, right chainNode) graph.Points {
	out := make(graph.Points, 0, right.afterIdx-left.afterIdx+2)
	out = append(out, left.point)
	for i := left.afterIdx + 1; i <= right.afterIdx; i++ {
		out = append(out, graph.Coordinate{Lat: full.Lat(i), Lon: full.Lon(i)})
	}
	out = append(out, right.point)
	return out
}

func cumulativeDistances(full graph.PointList) []float64 {
	n := full.Size()
	cum := make([]float64, n)
	for i := 1; i < n; i++ {
		cum[i] = cum[i-1] + haversineMeters(full.Lat(i-1), full.Lon(i-1), full.Lat(i), full.Lon(i))
	}
	return cum
}

func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	return geo.CalculateHaversineDistance(lat1, lon1, lat2, lon2) * 1000
}

func sumHaversineMeters(pts graph.Points) float64 {
	var d float64
	for i := 1; i < len(pts); i++ {
		d += haversineMeters(pts[i-1].Lat, pts[i-1].Lon, pts[i].Lat, pts[i].Lon)
	}
	return d
}

// --- accessors used by QueryGraph ---

func (gm *GraphModification) virtualNodeCount() int { return len(gm.virtualNodeCoord) }
func (gm *GraphModification) virtualEdgeCount() int { return len(gm.edgeByID) }

func (gm *GraphModification) isVirtualNode(n graph.NodeID) bool {
	return int(n) >= gm.mainNodes && int(n) < gm.mainNodes+gm.virtualNodeCount()
}

func (gm *GraphModification) isVirtualEdge(e graph.EdgeID) bool {
	return int(e) >= gm.mainEdges
}

func (gm *GraphModification) coordinate(n graph.NodeID) graph.Coordinate {
	return gm.virtualNodeCoord[int(n)-gm.mainNodes]
}

func (gm *GraphModification) closestEdge(n graph.NodeID) graph.EdgeID {
	return gm.virtualNodeClosestEdge[int(n)-gm.mainNodes]
}

func (gm *GraphModification) quad(n graph.NodeID) [2]*VirtualEdgeIteratorState {
	return gm.virtualNodeQuad[int(n)-gm.mainNodes]
}

func (gm *GraphModification) edgeState(e graph.EdgeID, adjNode graph.NodeID) (graph.EdgeIteratorState, bool) {
	fwd, ok := gm.edgeByID[e]
	if !ok {
		return nil, false
	}
	if adjNode == graph.NoNode || adjNode == fwd.AdjNode() {
		return fwd, true
	}
	if adjNode == fwd.BaseNode() {
		return fwd.reverse, true
	}
	return nil, false
}

func (gm *GraphModification) additionalAt(node graph.NodeID) []*VirtualEdgeIteratorState {
	return gm.additionalEdgesAtRealNodes[node]
}

func (gm *GraphModification) removedAt(node graph.NodeID) map[graph.EdgeID]bool {
	return gm.removedEdgesAtRealNodes[node]
}

func (gm *GraphModification) allVirtualEdges() []*VirtualEdgeIteratorState {
	out := make([]*VirtualEdgeIteratorState, 0, len(gm.edgeByID))
	for _, e := range gm.edgeByID {
		out = append(out, e)
	}
	return out
}
