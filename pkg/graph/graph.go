// Package graph defines the read-only graph contract shared by the
// immutable base graph and the query-time overlay that splices GPS
// snaps into it. Nothing in this package mutates a graph.
package graph

import (
	"errors"

	"github.com/kartaroute/querygraph/pkg/util"
)

// NodeID indexes a graph node. Base graph nodes occupy [0, N); an overlay
// extends the space upward for its virtual nodes.
type NodeID int32

// EdgeID indexes a physical edge. Both directions of an edge carry the
// same EdgeID: a base edge's two views differ by a stored reverse bit,
// and a virtual edge's two views are linked by a reverse pointer. Ids
// are not paired as edgeId and edgeId^1.
type EdgeID int32

// NoNode is the "don't care" sentinel accepted by GetEdgeIteratorState in
// place of an adjacent node when the caller only wants some iterator
// state for the edge, not a specific direction.
const NoNode NodeID = -1

// FetchMode selects which portion of an edge's pillar geometry is
// returned by WayGeometry. PillarOnly excludes both tower endpoints,
// BaseAndPillar prepends the base node, PillarAndAdj appends the adjacent
// node, and All returns the full polyline including both endpoints.
type FetchMode int

const (
	PillarOnly FetchMode = iota
	BaseAndPillar
	PillarAndAdj
	All
)

var (
	// ErrNotSupported is returned by mutating operations on a read-only
	// overlay graph.
	ErrNotSupported = errors.New("graph: operation not supported on a read-only overlay")
	// ErrEdgeNotFound is returned when an edge id/adjNode pair cannot be
	// resolved to any direction of a known edge.
	ErrEdgeNotFound = errors.New("graph: edge not found for requested adjacent node")
	// ErrInvalidArgument flags a caller-supplied id or parameter that
	// violates a documented precondition.
	ErrInvalidArgument = errors.New("graph: invalid argument")
)

// PointList is an ordered polyline. Implementations are immutable views,
// never references into mutable caller state.
type PointList interface {
	Size() int
	Lat(i int) float64
	Lon(i int) float64
}

// Points is the slice-backed PointList used throughout this module.
type Points []Coordinate

func (p Points) Size() int          { return len(p) }
func (p Points) Lat(i int) float64  { return p[i].Lat }
func (p Points) Lon(i int) float64  { return p[i].Lon }
func (p Points) Reverse() Points {
	return util.ReverseG(p)
}

// Coordinate is a WGS-84 point.
type Coordinate struct {
	Lat float64
	Lon float64
}

// BBox is an axis-aligned lat/lon bounding box.
type BBox struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

func (b BBox) Intersects(o BBox) bool {
	return b.MinLat <= o.MaxLat && b.MaxLat >= o.MinLat &&
		b.MinLon <= o.MaxLon && b.MaxLon >= o.MinLon
}

func (b BBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// EdgeIteratorState exposes the fields of one directed traversal of an
// edge: a base node, an adjacent node, and the geometry/attributes
// attached to going from one to the other.
type EdgeIteratorState interface {
	Edge() EdgeID
	BaseNode() NodeID
	AdjNode() NodeID
	Distance() float64
	Flags() uint32
	WayGeometry(mode FetchMode) PointList
	// Detach returns an independent copy of this state, optionally swapped
	// to the reverse direction. Iterators are reused across Next() calls,
	// so callers that need to retain a state past the next Next() must
	// Detach it first.
	Detach(reverse bool) EdgeIteratorState
}

// EdgeIterator advances over the edges incident to the base node an
// EdgeExplorer was set to. It embeds EdgeIteratorState so the current
// position can be read directly.
type EdgeIterator interface {
	EdgeIteratorState
	Next() bool
}

// EdgeExplorer produces iterators over a node's incident edges. A caller
// must not hold two live iterators from one explorer at once: the query
// overlay's explorer resets and returns the same underlying iterator on
// every SetBaseNode. BaseGraph's explorer returns a fresh iterator per
// call.
type EdgeExplorer interface {
	SetBaseNode(node NodeID) EdgeIterator
}

// EdgeFilter decides whether an edge should be visible through an
// explorer built with it. AllEdges accepts everything.
type EdgeFilter interface {
	Accept(edge EdgeIteratorState) bool
}

type allEdgesFilter struct{}

func (allEdgesFilter) Accept(EdgeIteratorState) bool { return true }

// AllEdges is the EdgeFilter that accepts every edge.
var AllEdges EdgeFilter = allEdgesFilter{}

// NodeAccess resolves node ids to coordinates.
type NodeAccess interface {
	Lat(node NodeID) float64
	Lon(node NodeID) float64
}

// AllEdgesIterator walks every edge of a graph once, in an unspecified
// order. Only the base graph supports it; the query overlay's virtual
// edges are request-scoped and never meant to be bulk-enumerated, so it
// reports ErrNotSupported there.
type AllEdgesIterator interface {
	EdgeIteratorState
	Next() bool
}

// Graph is the read-only contract shared by the base graph and the query
// overlay: node/edge counts, coordinate lookup, edge lookup by id, and
// edge exploration from a node.
type Graph interface {
	Nodes() int
	Edges() int
	NodeAccess() NodeAccess
	Bounds() BBox
	GetEdgeIteratorState(edge EdgeID, adjNode NodeID) (EdgeIteratorState, error)
	CreateEdgeExplorer(filter EdgeFilter) EdgeExplorer
	GetOtherNode(edge EdgeID, node NodeID) NodeID
	IsAdjacentToNode(edge EdgeID, node NodeID) bool
	AllEdges() (AllEdgesIterator, error)
}

// TurnCostProvider is implemented by base graphs that carry per-edge turn
// costs. QueryGraph wraps it to substitute virtual edges with their
// underlying closest edge before delegating.
type TurnCostProvider interface {
	TurnCost(fromEdge EdgeID, viaNode NodeID, toEdge EdgeID) float64
}
