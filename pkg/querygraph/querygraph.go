// Package querygraph overlays resolved GPS snaps onto an immutable base
// graph without mutating it: virtual nodes and edges are spliced in at
// read time, and a real tower node whose incident edge was split sees
// the split pieces instead of the original edge when explored through
// this overlay.
package querygraph

import (
	"github.com/kartaroute/querygraph/pkg/geo"
	"github.com/kartaroute/querygraph/pkg/graph"
	"github.com/kartaroute/querygraph/pkg/snap"
	"github.com/kartaroute/querygraph/pkg/util"
)

// headingToleranceRad bounds how far a favored heading may diverge from
// a candidate edge's terminal orientation before that edge is marked
// unfavored; roughly 100 degrees, wide enough to reject genuine
// U-turns without rejecting every slightly-off-axis road.
const headingToleranceRad = 1.74

// QueryGraph is a read-only graph.Graph overlaying a GraphModification
// on top of an immutable base graph.
type QueryGraph struct {
	base graph.Graph
	gm   *GraphModification
}

var _ graph.Graph = (*QueryGraph)(nil)

// Lookup resolves results against base and returns the overlay graph
// through which routing should run. Results with snap.Position ==
// snap.Tower contribute no virtual state; their existing node id is
// used directly wherever a caller supplies it.
func Lookup(base graph.Graph, results []snap.QueryResult) (*QueryGraph, error) {
	gm, err := BuildGraphModification(base, results)
	if err != nil {
		return nil, err
	}
	return &QueryGraph{base: base, gm: gm}, nil
}

func (qg *QueryGraph) Nodes() int { return qg.gm.mainNodes + qg.gm.virtualNodeCount() }
func (qg *QueryGraph) Edges() int { return qg.gm.mainEdges + qg.gm.virtualEdgeCount() }

func (qg *QueryGraph) NodeAccess() graph.NodeAccess {
	return extendedNodeAccess{base: qg.base.NodeAccess(), gm: qg.gm}
}

func (qg *QueryGraph) Bounds() graph.BBox { return qg.base.Bounds() }

// GetBaseGraph returns the underlying graph this overlay was built on,
// unwrapped. It does not share qg's GraphModification: none of qg's
// virtual nodes or edges are visible through it, and its node and edge
// counts are those of the base graph. A caller that needs to bypass the
// overlay (e.g. to run a preprocessing pass that must not observe
// query-time snaps) uses this instead of qg directly.
func (qg *QueryGraph) GetBaseGraph() graph.Graph { return qg.base }

func (qg *QueryGraph) GetEdgeIteratorState(edge graph.EdgeID, adjNode graph.NodeID) (graph.EdgeIteratorState, error) {
	if qg.gm.isVirtualEdge(edge) {
		state, ok := qg.gm.edgeState(edge, adjNode)
		if !ok {
			return nil, graph.ErrEdgeNotFound
		}
		return state, nil
	}
	return qg.base.GetEdgeIteratorState(edge, adjNode)
}

func (qg *QueryGraph) GetOtherNode(edge graph.EdgeID, node graph.NodeID) graph.NodeID {
	if qg.gm.isVirtualEdge(edge) {
		e := qg.gm.edgeByID[edge]
		if e.base == node {
			return e.adj
		}
		return e.base
	}
	return qg.base.GetOtherNode(edge, node)
}

func (qg *QueryGraph) IsAdjacentToNode(edge graph.EdgeID, node graph.NodeID) bool {
	if qg.gm.isVirtualEdge(edge) {
		e := qg.gm.edgeByID[edge]
		return e.base == node || e.adj == node
	}
	return qg.base.IsAdjacentToNode(edge, node)
}

// AllEdges rejects bulk enumeration: virtual edges are scoped to one
// request and are not meant to be walked en masse the way base edges are.
func (qg *QueryGraph) AllEdges() (graph.AllEdgesIterator, error) {
	return nil, graph.ErrNotSupported
}

// AddNode rejects mutation: the overlay is a read-only view built once
// per query and discarded afterwards.
func (qg *QueryGraph) AddNode(lat, lon float64) (graph.NodeID, error) {
	return 0, graph.ErrNotSupported
}

// AddEdge rejects mutation for the same reason as AddNode.
func (qg *QueryGraph) AddEdge(base, adj graph.NodeID, pillars graph.Points, flags uint32) (graph.EdgeID, error) {
	return 0, graph.ErrNotSupported
}

// IsVirtualNode reports whether n was created by this overlay's
// GraphModification rather than existing in the base graph.
func (qg *QueryGraph) IsVirtualNode(n graph.NodeID) bool { return qg.gm.isVirtualNode(n) }

// IsVirtualEdge reports whether e was created by this overlay.
func (qg *QueryGraph) IsVirtualEdge(e graph.EdgeID) bool { return qg.gm.isVirtualEdge(e) }

// GetOriginalEdgeFromVirtNode returns the base edge a virtual node was
// cut from.
func (qg *QueryGraph) GetOriginalEdgeFromVirtNode(node graph.NodeID) (graph.EdgeID, error) {
	if !qg.gm.isVirtualNode(node) {
		return 0, util.WrapErrorf(graph.ErrInvalidArgument, graph.ErrInvalidArgument, "node %d is not a virtual node", node)
	}
	return qg.gm.closestEdge(node), nil
}

// EnforceHeading marks whichever of node's two virtual edges departs
// (or, if incoming, arrives) too far off favoredHeadingDeg as unfavored,
// so a routing algorithm that respects unfavored edges won't pick a
// direction that contradicts the requested heading at a snap point.
func (qg *QueryGraph) EnforceHeading(node graph.NodeID, favoredHeadingDeg float64, incoming bool) error {
	if !qg.gm.isVirtualNode(node) {
		return util.WrapErrorf(graph.ErrInvalidArgument, graph.ErrInvalidArgument, "heading enforcement requires a virtual node, got %d", node)
	}
	target := geo.ConvertAzimuth2xaxisAngle(favoredHeadingDeg)
	for _, e := range qg.gm.quad(node) {
		if e == nil {
			continue
		}
		orientation := edgeOrientationAtNode(e, incoming)
		aligned := geo.AlignOrientation(target, orientation)
		if absFloat(aligned-target) > headingToleranceRad {
			e.setUnfavored(true)
		}
	}
	return nil
}

func edgeOrientationAtNode(e *VirtualEdgeIteratorState, incoming bool) float64 {
	if incoming {
		g := e.reverse.geometry
		n := len(g)
		return geo.CalcOrientation(g[n-2].Lat, g[n-2].Lon, g[n-1].Lat, g[n-1].Lon)
	}
	g := e.geometry
	return geo.CalcOrientation(g[0].Lat, g[0].Lon, g[1].Lat, g[1].Lon)
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// UnfavorVirtualEdgePair marks the virtual edge identified by edge (in
// both directions) unfavored.
func (qg *QueryGraph) UnfavorVirtualEdgePair(edge graph.EdgeID) error {
	e, ok := qg.gm.edgeByID[edge]
	if !ok {
		return util.WrapErrorf(graph.ErrInvalidArgument, graph.ErrInvalidArgument, "edge %d is not a virtual edge", edge)
	}
	e.setUnfavored(true)
	return nil
}

// ClearUnfavoredStatus resets every virtual edge's unfavored flag,
// letting a subsequent route request start from a clean slate.
func (qg *QueryGraph) ClearUnfavoredStatus() {
	for _, e := range qg.gm.allVirtualEdges() {
		e.setUnfavored(false)
	}
}

// GetUnfavoredVirtualEdges returns the edge ids currently marked
// unfavored.
func (qg *QueryGraph) GetUnfavoredVirtualEdges() []graph.EdgeID {
	var out []graph.EdgeID
	for id, e := range qg.gm.edgeByID {
		if e.Unfavored() {
			out = append(out, id)
		}
	}
	return out
}

// --- edge exploration ---

type qgExplorer struct {
	qg           *QueryGraph
	filter       graph.EdgeFilter
	baseExplorer graph.EdgeExplorer
	it           *virtualIterator
}

func (qg *QueryGraph) CreateEdgeExplorer(filter graph.EdgeFilter) graph.EdgeExplorer {
	if filter == nil {
		filter = graph.AllEdges
	}
	return &qgExplorer{
		qg:           qg,
		filter:       filter,
		baseExplorer: qg.base.CreateEdgeExplorer(graph.AllEdges),
		it:           newVirtualIterator(nil, filter),
	}
}

func (e *qgExplorer) SetBaseNode(node graph.NodeID) graph.EdgeIterator {
	if e.qg.gm.isVirtualNode(node) {
		quad := e.qg.gm.quad(node)
		states := make([]graph.EdgeIteratorState, 0, 2)
		for _, q := range quad {
			if q != nil {
				states = append(states, q)
			}
		}
		return e.it.reset(states)
	}

	removed := e.qg.gm.removedAt(node)
	additional := e.qg.gm.additionalAt(node)

	states := make([]graph.EdgeIteratorState, 0)
	baseIt := e.baseExplorer.SetBaseNode(node)
	for baseIt.Next() {
		if removed != nil && removed[baseIt.Edge()] {
			continue
		}
		states = append(states, baseIt.Detach(false))
	}
	states = append(states, toStates(additional)...)
	return e.it.reset(states)
}

func toStates(edges []*VirtualEdgeIteratorState) []graph.EdgeIteratorState {
	out := make([]graph.EdgeIteratorState, len(edges))
	for i, e := range edges {
		out[i] = e
	}
	return out
}
