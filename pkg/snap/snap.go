// Package snap resolves a GPS coordinate to a point on the road network:
// the closest edge, where along that edge the point falls, and whether
// it lands close enough to an existing tower node to reuse it outright
// rather than create a new virtual node.
package snap

import (
	"math"

	"github.com/kartaroute/querygraph/pkg/geo"
	"github.com/kartaroute/querygraph/pkg/graph"
	"github.com/kartaroute/querygraph/pkg/spatialhash"
	"github.com/kartaroute/querygraph/pkg/util"

	"github.com/go-playground/validator/v10"
)

// Position classifies where a QueryResult's snapped point falls
// relative to the closest edge's stored geometry.
type Position int

const (
	// OnEdge means the snapped point falls strictly between two
	// geometry points and needs a virtual node.
	OnEdge Position = iota
	// Tower means the snapped point coincides with one of the edge's
	// tower endpoints closely enough to reuse that node directly.
	Tower
	// Pillar means the snapped point coincides with an intermediate
	// shape point of the edge (still requires a virtual node, since
	// pillar points are not addressable graph nodes).
	Pillar
)

// TowerSnapToleranceMeters bounds how close a projection has to land to
// a tower node before it is treated as landing exactly on that node
// instead of needing a split.
const TowerSnapToleranceMeters = 1.0

// QueryResult is the outcome of resolving one GPS coordinate against the
// network. WayIndex is the index into the closest edge's BaseAndPillar
// geometry after which the snapped point falls (0 means "between the
// base node and the first pillar/adjacent node").
type QueryResult struct {
	QueryPoint    graph.Coordinate
	ClosestEdge   graph.EdgeID
	ClosestNode   graph.NodeID
	SnappedPoint  graph.Coordinate
	WayIndex      int
	Position      Position
	QueryDistance float64 // meters, query point to snapped point
}

// Request describes a snap query and is validated before use so callers
// get a clear error instead of a confusing downstream failure.
type Request struct {
	Lat            float64 `validate:"latitude"`
	Lon            float64 `validate:"longitude"`
	SearchRadiusKm float64 `validate:"required,gt=0"`
}

var validate = validator.New()

// Index finds the closest edge to arbitrary coordinates by combining a
// spatial hash region query for candidate edges with an exact
// point-to-segment projection over each candidate's geometry.
type Index struct {
	g         graph.Graph
	hash      *spatialhash.HashTable
	key       *spatialhash.SpatialKeyAlgo
	edgeAtKey map[uint32][]graph.EdgeID // node id -> incident edges, populated by NewIndex
}

// NewIndex builds a snap index over g. hash must already contain one
// entry per node id, keyed by that node's coordinate, matching the
// layout BuildNodeIndex produces.
func NewIndex(g graph.Graph, hash *spatialhash.HashTable, key *spatialhash.SpatialKeyAlgo) *Index {
	idx := &Index{g: g, hash: hash, key: key, edgeAtKey: make(map[uint32][]graph.EdgeID)}
	idx.indexEdgesByEndpoint()
	return idx
}

func (idx *Index) indexEdgesByEndpoint() {
	explorer := idx.g.CreateEdgeExplorer(graph.AllEdges)
	for n := 0; n < idx.g.Nodes(); n++ {
		it := explorer.SetBaseNode(graph.NodeID(n))
		for it.Next() {
			idx.edgeAtKey[uint32(n)] = append(idx.edgeAtKey[uint32(n)], it.Edge())
		}
	}
}

// BuildNodeIndex populates hash with one entry per tower node, keyed by
// that node's coordinate, so NewIndex has a spatial structure to query
// candidate nodes/edges from.
func BuildNodeIndex(hash *spatialhash.HashTable, key *spatialhash.SpatialKeyAlgo, g graph.Graph) error {
	na := g.NodeAccess()
	for n := 0; n < g.Nodes(); n++ {
		lat, lon := na.Lat(graph.NodeID(n)), na.Lon(graph.NodeID(n))
		if err := hash.AddKey(key.Encode(lat, lon), uint32(n)); err != nil {
			return util.WrapErrorf(err, ErrSnapFailed, "indexing node %d", n)
		}
	}
	return nil
}

// FindClosest resolves req against the network. It runs one circle
// query of radius req.SearchRadiusKm on the spatial hash for candidate
// nodes, projects onto every edge incident to them, then picks the
// globally closest projection among them. The radius is not grown.
func (idx *Index) FindClosest(req Request) (QueryResult, error) {
	if err := validate.Struct(req); err != nil {
		return QueryResult{}, util.WrapErrorf(err, util.ErrBadParamInput, "invalid snap request: %v", err)
	}

	candidates := idx.hash.GetNodesCircle(req.Lat, req.Lon, req.SearchRadiusKm)
	if len(candidates) == 0 {
		return QueryResult{}, util.WrapErrorf(ErrNoCandidates, util.ErrNotFound, "no candidate nodes within %.3fkm of (%f,%f)", req.SearchRadiusKm, req.Lat, req.Lon)
	}

	seen := make(map[graph.EdgeID]bool)
	best := QueryResult{QueryDistance: math.Inf(1)}
	found := false
	queryPoint := geo.NewCoordinate(req.Lat, req.Lon)

	for _, nodeID := range candidates {
		for _, edgeID := range idx.edgeAtKey[nodeID] {
			if seen[edgeID] {
				continue
			}
			seen[edgeID] = true

			state, err := idx.g.GetEdgeIteratorState(edgeID, graph.NoNode)
			if err != nil {
				continue
			}
			result, ok := projectOntoEdge(queryPoint, state)
			if !ok {
				continue
			}
			if result.QueryDistance < best.QueryDistance {
				best = result
				found = true
			}
		}
	}

	if !found {
		return QueryResult{}, util.WrapErrorf(ErrNoCandidates, util.ErrNotFound, "no projectable edges near (%f,%f)", req.Lat, req.Lon)
	}
	best.QueryPoint = graph.Coordinate{Lat: req.Lat, Lon: req.Lon}
	return best, nil
}

// projectOntoEdge finds the closest point on state's full geometry to
// query, segment by segment, returning the segment index (WayIndex) and
// classifying whether the result should be treated as a tower/pillar
// hit or a true mid-edge split.
func projectOntoEdge(query geo.Coordinate, state graph.EdgeIteratorState) (QueryResult, bool) {
	full := state.WayGeometry(graph.All)
	n := full.Size()
	if n < 2 {
		return QueryResult{}, false
	}

	bestDist := math.Inf(1)
	var bestPoint geo.Coordinate
	bestIdx := -1

	for i := 0; i < n-1; i++ {
		a := geo.NewCoordinate(full.Lat(i), full.Lon(i))
		b := geo.NewCoordinate(full.Lat(i+1), full.Lon(i+1))
		proj := geo.ProjectPointToLineCoord(a, b, query)
		if !isBetween(a, b, proj) {
			// clamp to whichever endpoint the projection overshot.
			da := geo.CalculateHaversineDistance(query.Lat, query.Lon, a.Lat, a.Lon)
			db := geo.CalculateHaversineDistance(query.Lat, query.Lon, b.Lat, b.Lon)
			if da < db {
				proj = a
			} else {
				proj = b
			}
		}
		dist := geo.CalculateHaversineDistance(query.Lat, query.Lon, proj.Lat, proj.Lon) * 1000
		if dist < bestDist {
			bestDist = dist
			bestPoint = proj
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return QueryResult{}, false
	}

	position, node := classify(state, full, bestIdx, bestPoint)
	return QueryResult{
		ClosestEdge:   state.Edge(),
		ClosestNode:   node,
		SnappedPoint:  graph.Coordinate{Lat: bestPoint.Lat, Lon: bestPoint.Lon},
		WayIndex:      bestIdx,
		Position:      position,
		QueryDistance: bestDist,
	}, true
}

func classify(state graph.EdgeIteratorState, full graph.PointList, segIdx int, snapped geo.Coordinate) (Position, graph.NodeID) {
	n := full.Size()
	distToBase := geo.CalculateHaversineDistance(snapped.Lat, snapped.Lon, full.Lat(0), full.Lon(0)) * 1000
	distToAdj := geo.CalculateHaversineDistance(snapped.Lat, snapped.Lon, full.Lat(n-1), full.Lon(n-1)) * 1000
	if distToBase <= TowerSnapToleranceMeters {
		return Tower, state.BaseNode()
	}
	if distToAdj <= TowerSnapToleranceMeters {
		return Tower, state.AdjNode()
	}
	if segIdx > 0 && segIdx < n-1 {
		distToPillar := geo.CalculateHaversineDistance(snapped.Lat, snapped.Lon, full.Lat(segIdx), full.Lon(segIdx)) * 1000
		if distToPillar <= TowerSnapToleranceMeters {
			return Pillar, graph.NoNode
		}
	}
	return OnEdge, graph.NoNode
}

// isBetween reports whether p's coordinates fall within the bounding
// box of segment a-b, a cheap proxy for "the projection landed on the
// segment rather than off one end of it".
func isBetween(a, b, p geo.Coordinate) bool {
	const eps = 1e-9
	minLat, maxLat := math.Min(a.Lat, b.Lat)-eps, math.Max(a.Lat, b.Lat)+eps
	minLon, maxLon := math.Min(a.Lon, b.Lon)-eps, math.Max(a.Lon, b.Lon)+eps
	return p.Lat >= minLat && p.Lat <= maxLat && p.Lon >= minLon && p.Lon <= maxLon
}
