package querygraph

import "github.com/kartaroute/querygraph/pkg/graph"

// extendedNodeAccess wraps a base graph's NodeAccess, answering queries
// for virtual node ids out of the GraphModification instead.
type extendedNodeAccess struct {
	base graph.NodeAccess
	gm   *GraphModification
}

func (a extendedNodeAccess) Lat(n graph.NodeID) float64 {
	if a.gm.isVirtualNode(n) {
		return a.gm.coordinate(n).Lat
	}
	return a.base.Lat(n)
}

func (a extendedNodeAccess) Lon(n graph.NodeID) float64 {
	if a.gm.isVirtualNode(n) {
		return a.gm.coordinate(n).Lon
	}
	return a.base.Lon(n)
}
