package spatialhash

import (
	"math"

	"github.com/kartaroute/querygraph/pkg/geo"
)

// Shape is a region query predicate over lat/lon. BBox and Circle are
// the two built-in implementations; Intersects is used during the
// quadtree descent to prune subtrees, Contains filters leaf entries.
type Shape interface {
	Intersects(b BBox) bool
	Contains(lat, lon float64) bool
}

// BBox is an axis-aligned lat/lon bounding box, also used internally to
// describe quadtree node extents during region queries.
type BBox struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// WorldBBox spans the whole of WGS-84, matching the domain SpatialKeyAlgo
// bisects over.
func WorldBBox() BBox {
	return BBox{MinLat: -90, MaxLat: 90, MinLon: -180, MaxLon: 180}
}

func (b BBox) Intersects(o BBox) bool {
	return b.MinLat <= o.MaxLat && b.MaxLat >= o.MinLat &&
		b.MinLon <= o.MaxLon && b.MaxLon >= o.MinLon
}

func (b BBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// Circle is a great-circle disk of radiusKm around (lat,lon).
type Circle struct {
	Lat, Lon, RadiusKm float64
}

// Intersects approximates the circle with its bounding box before
// testing against the quadtree node, which only has to be conservative
// (false positives are fine, false negatives are not).
func (c Circle) Intersects(b BBox) bool {
	return c.bbox().Intersects(b)
}

func (c Circle) Contains(lat, lon float64) bool {
	return geo.CalculateHaversineDistance(c.Lat, c.Lon, lat, lon) <= c.RadiusKm
}

func (c Circle) bbox() BBox {
	latDeg := c.RadiusKm / 110.574
	lonDeg := c.RadiusKm / (111.320 * cosDeg(c.Lat))
	return BBox{
		MinLat: c.Lat - latDeg, MaxLat: c.Lat + latDeg,
		MinLon: c.Lon - lonDeg, MaxLon: c.Lon + lonDeg,
	}
}

func cosDeg(deg float64) float64 {
	c := math.Cos(deg * math.Pi / 180)
	if c < 0.01 {
		return 0.01
	}
	return c
}
