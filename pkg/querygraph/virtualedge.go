package querygraph

import "github.com/kartaroute/querygraph/pkg/graph"

// VirtualEdgeIteratorState is one directed view of a virtual edge: a
// slice of an original base edge's geometry, bounded by two of {a real
// tower node, a virtual node}. Both directions of the same physical
// virtual edge share an Edge() id and an unfavored flag; they are
// linked via reverse so unfavoring one marks both.
type VirtualEdgeIteratorState struct {
	edge         graph.EdgeID
	originalEdge graph.EdgeID
	base, adj    graph.NodeID
	dist         float64
	flags        uint32
	geometry     graph.Points
	reverse      *VirtualEdgeIteratorState
	unfavored    *bool
}

var _ graph.EdgeIteratorState = (*VirtualEdgeIteratorState)(nil)
var _ graph.EdgeIterator = (*virtualIterator)(nil)
var _ graph.EdgeExplorer = (*qgExplorer)(nil)

func (v *VirtualEdgeIteratorState) Edge() graph.EdgeID  { return v.edge }
func (v *VirtualEdgeIteratorState) BaseNode() graph.NodeID { return v.base }
func (v *VirtualEdgeIteratorState) AdjNode() graph.NodeID  { return v.adj }
func (v *VirtualEdgeIteratorState) Distance() float64      { return v.dist }
func (v *VirtualEdgeIteratorState) Flags() uint32           { return v.flags }

// OriginalEdge returns the base graph edge this virtual edge was cut
// from, the same value GetOriginalEdgeFromVirtNode resolves for the
// virtual nodes at either end of it.
func (v *VirtualEdgeIteratorState) OriginalEdge() graph.EdgeID { return v.originalEdge }

func (v *VirtualEdgeIteratorState) WayGeometry(mode graph.FetchMode) graph.PointList {
	full := v.geometry
	switch mode {
	case graph.PillarOnly:
		if len(full) <= 2 {
			return graph.Points{}
		}
		return full[1 : len(full)-1]
	case graph.BaseAndPillar:
		return full[:len(full)-1]
	case graph.PillarAndAdj:
		return full[1:]
	default:
		return full
	}
}

func (v *VirtualEdgeIteratorState) Detach(reverse bool) graph.EdgeIteratorState {
	if !reverse {
		return v
	}
	return v.reverse
}

// Unfavored reports whether this virtual edge (in either direction) has
// been marked unfavored by EnforceHeading.
func (v *VirtualEdgeIteratorState) Unfavored() bool { return *v.unfavored }

func (v *VirtualEdgeIteratorState) setUnfavored(u bool) { *v.unfavored = u }

// virtualIterator walks a fixed, small slice of edge states, mirroring
// the base graph's iterator shape so CreateEdgeExplorer can hand out a
// uniform EdgeIterator regardless of which side of the overlay a node
// falls on. One instance per qgExplorer is reused across SetBaseNode
// calls.
type virtualIterator struct {
	states []graph.EdgeIteratorState
	filter graph.EdgeFilter
	pos    int
}

func newVirtualIterator(states []graph.EdgeIteratorState, filter graph.EdgeFilter) *virtualIterator {
	return &virtualIterator{states: states, filter: filter, pos: -1}
}

func (it *virtualIterator) reset(states []graph.EdgeIteratorState) *virtualIterator {
	it.states = states
	it.pos = -1
	return it
}

func (it *virtualIterator) Next() bool {
	for {
		it.pos++
		if it.pos >= len(it.states) {
			return false
		}
		if it.filter.Accept(it.states[it.pos]) {
			return true
		}
	}
}

func (it *virtualIterator) current() graph.EdgeIteratorState { return it.states[it.pos] }

func (it *virtualIterator) Edge() graph.EdgeID                        { return it.current().Edge() }
func (it *virtualIterator) BaseNode() graph.NodeID                    { return it.current().BaseNode() }
func (it *virtualIterator) AdjNode() graph.NodeID                     { return it.current().AdjNode() }
func (it *virtualIterator) Distance() float64                          { return it.current().Distance() }
func (it *virtualIterator) Flags() uint32                              { return it.current().Flags() }
func (it *virtualIterator) WayGeometry(m graph.FetchMode) graph.PointList { return it.current().WayGeometry(m) }
func (it *virtualIterator) Detach(reverse bool) graph.EdgeIteratorState  { return it.current().Detach(reverse) }
