package graph

import (
	"sort"

	"github.com/kartaroute/querygraph/pkg/geo"
	"github.com/kartaroute/querygraph/pkg/util"
)

// BaseGraph is a minimal, densely-numbered, in-memory Graph used to
// exercise the query overlay in tests. Production
// deployments plug in whatever immutable base graph their preprocessing
// pipeline produces (OSM import, contraction hierarchies, ...); this
// type only has to satisfy the Graph contract those pipelines expose.
//
// Nodes and edges are appended once at build time and never mutated
// afterwards, matching the "immutable base graph" assumption the overlay
// relies on.
type BaseGraph struct {
	lats, lons []float64
	edges      []baseEdge
	outByNode  [][]EdgeID
	inByNode   [][]EdgeID
	bounds     BBox
}

type baseEdge struct {
	base, adj NodeID
	dist      float64
	flags     uint32
	pillars   Points // excludes both endpoints
}

// NewBaseGraph creates an empty graph with capacity for n nodes.
func NewBaseGraph(n int) *BaseGraph {
	return &BaseGraph{
		lats:      make([]float64, 0, n),
		lons:      make([]float64, 0, n),
		outByNode: make([][]EdgeID, 0, n),
		inByNode:  make([][]EdgeID, 0, n),
		bounds:    BBox{MinLat: 90, MaxLat: -90, MinLon: 180, MaxLon: -180},
	}
}

// AddNode appends a tower node and returns its id.
func (g *BaseGraph) AddNode(lat, lon float64) NodeID {
	id := NodeID(len(g.lats))
	g.lats = append(g.lats, lat)
	g.lons = append(g.lons, lon)
	g.outByNode = append(g.outByNode, nil)
	g.inByNode = append(g.inByNode, nil)
	g.bounds.MinLat = util.Min(g.bounds.MinLat, lat)
	g.bounds.MaxLat = util.Max(g.bounds.MaxLat, lat)
	g.bounds.MinLon = util.Min(g.bounds.MinLon, lon)
	g.bounds.MaxLon = util.Max(g.bounds.MaxLon, lon)
	return id
}

// AddEdge appends a directed base edge base->adj with the given pillar
// geometry (excluding both endpoints) and returns its id. Distance is
// computed by summing haversine legs over base, pillars..., adj so that
// it is exactly consistent with WayGeometry(All), which the query
// modification builder relies on for distance conservation.
func (g *BaseGraph) AddEdge(base, adj NodeID, pillars Points, flags uint32) EdgeID {
	full := g.fullGeometry(base, adj, pillars)
	dist := sumHaversine(full)
	id := EdgeID(len(g.edges))
	g.edges = append(g.edges, baseEdge{base: base, adj: adj, dist: dist, flags: flags, pillars: pillars})
	g.outByNode[base] = append(g.outByNode[base], id)
	g.inByNode[adj] = append(g.inByNode[adj], id)
	return id
}

func (g *BaseGraph) fullGeometry(base, adj NodeID, pillars Points) Points {
	out := make(Points, 0, len(pillars)+2)
	out = append(out, Coordinate{Lat: g.lats[base], Lon: g.lons[base]})
	out = append(out, pillars...)
	out = append(out, Coordinate{Lat: g.lats[adj], Lon: g.lons[adj]})
	return out
}

func sumHaversine(pts Points) float64 {
	var d float64
	for i := 1; i < len(pts); i++ {
		d += geo.CalculateHaversineDistance(pts[i-1].Lat, pts[i-1].Lon, pts[i].Lat, pts[i].Lon) * 1000
	}
	return d
}

func (g *BaseGraph) Nodes() int { return len(g.lats) }
func (g *BaseGraph) Edges() int { return len(g.edges) }

func (g *BaseGraph) Bounds() BBox { return g.bounds }

func (g *BaseGraph) NodeAccess() NodeAccess { return baseNodeAccess{g} }

type baseNodeAccess struct{ g *BaseGraph }

func (a baseNodeAccess) Lat(n NodeID) float64 { return a.g.lats[n] }
func (a baseNodeAccess) Lon(n NodeID) float64 { return a.g.lons[n] }

// edgeState is the concrete EdgeIteratorState for a base edge viewed in a
// given direction (reverse = adj->base).
type edgeState struct {
	g       *BaseGraph
	edge    EdgeID
	reverse bool
}

func (g *BaseGraph) stateFor(edge EdgeID, reverse bool) edgeState {
	return edgeState{g: g, edge: edge, reverse: reverse}
}

func (s edgeState) Edge() EdgeID { return s.edge }

func (s edgeState) BaseNode() NodeID {
	e := s.g.edges[s.edge]
	if s.reverse {
		return e.adj
	}
	return e.base
}

func (s edgeState) AdjNode() NodeID {
	e := s.g.edges[s.edge]
	if s.reverse {
		return e.base
	}
	return e.adj
}

func (s edgeState) Distance() float64 { return s.g.edges[s.edge].dist }
func (s edgeState) Flags() uint32     { return s.g.edges[s.edge].flags }

func (s edgeState) WayGeometry(mode FetchMode) PointList {
	e := s.g.edges[s.edge]
	full := s.g.fullGeometry(e.base, e.adj, e.pillars)
	if s.reverse {
		full = full.Reverse()
	}
	switch mode {
	case PillarOnly:
		return full[1 : len(full)-1]
	case BaseAndPillar:
		return full[:len(full)-1]
	case PillarAndAdj:
		return full[1:]
	default:
		return full
	}
}

func (s edgeState) Detach(reverse bool) EdgeIteratorState {
	if !reverse {
		return s
	}
	return edgeState{g: s.g, edge: s.edge, reverse: !s.reverse}
}

func (g *BaseGraph) GetEdgeIteratorState(edge EdgeID, adjNode NodeID) (EdgeIteratorState, error) {
	if int(edge) < 0 || int(edge) >= len(g.edges) {
		return nil, ErrEdgeNotFound
	}
	e := g.edges[edge]
	if adjNode == NoNode || adjNode == e.adj {
		return g.stateFor(edge, false), nil
	}
	if adjNode == e.base {
		return g.stateFor(edge, true), nil
	}
	return nil, ErrEdgeNotFound
}

func (g *BaseGraph) GetOtherNode(edge EdgeID, node NodeID) NodeID {
	e := g.edges[edge]
	if e.base == node {
		return e.adj
	}
	return e.base
}

func (g *BaseGraph) IsAdjacentToNode(edge EdgeID, node NodeID) bool {
	e := g.edges[edge]
	return e.base == node || e.adj == node
}

// baseIterator walks the edges incident to one node, combining out-edges
// (forward direction) and in-edges (reverse direction) since base graph
// edges here are stored as single directed arcs with an implicit reverse
// view, matching how OutEdge/InEdge pairs work in CSR road graphs.
type baseIterator struct {
	g      *BaseGraph
	ids    []edgeDir
	filter EdgeFilter
	pos    int
}

type edgeDir struct {
	edge    EdgeID
	reverse bool
}

func (it *baseIterator) Next() bool {
	for {
		it.pos++
		if it.pos >= len(it.ids) {
			return false
		}
		if it.filter.Accept(it.current()) {
			return true
		}
	}
}

func (it *baseIterator) current() edgeState {
	d := it.ids[it.pos]
	return it.g.stateFor(d.edge, d.reverse)
}

func (it *baseIterator) Edge() EdgeID                        { return it.current().Edge() }
func (it *baseIterator) BaseNode() NodeID                    { return it.current().BaseNode() }
func (it *baseIterator) AdjNode() NodeID                     { return it.current().AdjNode() }
func (it *baseIterator) Distance() float64                   { return it.current().Distance() }
func (it *baseIterator) Flags() uint32                        { return it.current().Flags() }
func (it *baseIterator) WayGeometry(m FetchMode) PointList    { return it.current().WayGeometry(m) }
func (it *baseIterator) Detach(reverse bool) EdgeIteratorState { return it.current().Detach(reverse) }

type baseExplorer struct {
	g      *BaseGraph
	filter EdgeFilter
}

func (e *baseExplorer) SetBaseNode(node NodeID) EdgeIterator {
	ids := make([]edgeDir, 0, len(e.g.outByNode[node])+len(e.g.inByNode[node]))
	for _, eid := range e.g.outByNode[node] {
		ids = append(ids, edgeDir{edge: eid, reverse: false})
	}
	for _, eid := range e.g.inByNode[node] {
		ids = append(ids, edgeDir{edge: eid, reverse: true})
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].edge < ids[j].edge })
	return &baseIterator{g: e.g, ids: ids, filter: e.filter, pos: -1}
}

func (g *BaseGraph) CreateEdgeExplorer(filter EdgeFilter) EdgeExplorer {
	if filter == nil {
		filter = AllEdges
	}
	return &baseExplorer{g: g, filter: filter}
}

// allEdgesIterator walks g.edges in id order, forward direction only.
type allEdgesIterator struct {
	g   *BaseGraph
	pos int
}

func (it *allEdgesIterator) Next() bool {
	it.pos++
	return it.pos < len(it.g.edges)
}

func (it *allEdgesIterator) current() edgeState { return it.g.stateFor(EdgeID(it.pos), false) }

func (it *allEdgesIterator) Edge() EdgeID                        { return it.current().Edge() }
func (it *allEdgesIterator) BaseNode() NodeID                    { return it.current().BaseNode() }
func (it *allEdgesIterator) AdjNode() NodeID                      { return it.current().AdjNode() }
func (it *allEdgesIterator) Distance() float64                    { return it.current().Distance() }
func (it *allEdgesIterator) Flags() uint32                        { return it.current().Flags() }
func (it *allEdgesIterator) WayGeometry(m FetchMode) PointList    { return it.current().WayGeometry(m) }
func (it *allEdgesIterator) Detach(reverse bool) EdgeIteratorState { return it.current().Detach(reverse) }

// AllEdges returns an iterator over every base edge, in id order.
func (g *BaseGraph) AllEdges() (AllEdgesIterator, error) {
	return &allEdgesIterator{g: g, pos: -1}, nil
}
