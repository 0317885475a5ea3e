package querygraph

import "github.com/kartaroute/querygraph/pkg/graph"

// turnCostWrapper substitutes a virtual edge with the base edge it was
// cut from before delegating, and treats every turn through a virtual
// node as free: a virtual node sits mid-way along a single original
// road, never at a real junction, so there is no turn restriction or
// penalty to apply there.
type turnCostWrapper struct {
	base graph.TurnCostProvider
	gm   *GraphModification
}

func (w turnCostWrapper) TurnCost(fromEdge graph.EdgeID, viaNode graph.NodeID, toEdge graph.EdgeID) float64 {
	if w.gm.isVirtualNode(viaNode) {
		return 0
	}
	if w.gm.isVirtualEdge(fromEdge) {
		fromEdge = w.gm.edgeByID[fromEdge].OriginalEdge()
	}
	if w.gm.isVirtualEdge(toEdge) {
		toEdge = w.gm.edgeByID[toEdge].OriginalEdge()
	}
	return w.base.TurnCost(fromEdge, viaNode, toEdge)
}

// TurnCostProvider returns a graph.TurnCostProvider wrapping the base
// graph's own, if it has one, substituting virtual edges for their
// original edge before delegating. ok is false if base does not carry
// turn costs.
func (qg *QueryGraph) TurnCostProvider() (provider graph.TurnCostProvider, ok bool) {
	base, ok := qg.base.(graph.TurnCostProvider)
	if !ok {
		return nil, false
	}
	return turnCostWrapper{base: base, gm: qg.gm}, true
}
