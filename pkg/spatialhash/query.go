package spatialhash

// GetNodesByKey returns the node stored at the exact cell key encodes,
// if any.
func (h *HashTable) GetNodesByKey(key uint64) (value uint32, ok bool) {
	return h.GetKey(key)
}

// GetNodes returns every value whose decoded key coordinate lies inside
// shape, found by a
// recursive quadtree descent over the same lat/lon bisection
// SpatialKeyAlgo.Encode performs: each level of recursion halves the
// current lat/lon box along the axis the next key bit addresses, and
// only descends into quadrants the shape actually intersects. Recursion
// stops as soon as the accumulated prefix determines a bucket index —
// deeper bits only distinguish entries within that bucket, and the
// table's own layout already lets a bucket's whole forward region and
// overflow chain be read in one pass instead of descending further.
func (h *HashTable) GetNodes(shape Shape) []uint32 {
	var out []uint32
	visited := make([]bool, h.numBuckets())
	h.descend(shape, WorldBBox(), 0, 0, visited, &out)
	return out
}

// GetNodesCircle is a convenience wrapper for the common circular
// region query (e.g. "nodes within 50m of this point").
func (h *HashTable) GetNodesCircle(lat, lon, radiusKm float64) []uint32 {
	return h.GetNodes(Circle{Lat: lat, Lon: lon, RadiusKm: radiusKm})
}

// descend walks the quadrant tree. prefix holds the bits already chosen
// (matching Encode's bit order, two bits per level: lat-half then
// lon-half, or one trailing bit if Bits() is odd) and depth counts how
// many bits have been fixed so far. Once depth reaches the point where
// prefix fully determines X and Y (and therefore bucketIndex = X^Y),
// the whole bucket is collected directly rather than recursing to
// individual keys.
func (h *HashTable) descend(shape Shape, box BBox, prefix uint64, depth int, visited []bool, out *[]uint32) {
	if !shape.Intersects(box) {
		return
	}

	bucketDepth := 2 * h.bucketIndexBits
	if depth >= bucketDepth {
		x := prefix >> uint(h.bucketIndexBits)
		y := prefix & h.bucketIndexMask
		bi := int(x ^ y)
		if visited[bi] {
			return
		}
		visited[bi] = true
		h.collectBucket(bi, shape, out)
		return
	}

	midLat := (box.MinLat + box.MaxLat) / 2
	midLon := (box.MinLon + box.MaxLon) / 2

	// bucketDepth is always even (2*bucketIndexBits), and depth only
	// ever advances in steps of 2 below it, so it lands on bucketDepth
	// exactly — no odd-step case to handle here.
	quadrants := [4]struct {
		box  BBox
		bits uint64
	}{
		{BBox{box.MinLat, midLat, box.MinLon, midLon}, 0b00},
		{BBox{box.MinLat, midLat, midLon, box.MaxLon}, 0b01},
		{BBox{midLat, box.MaxLat, box.MinLon, midLon}, 0b10},
		{BBox{midLat, box.MaxLat, midLon, box.MaxLon}, 0b11},
	}
	for _, q := range quadrants {
		h.descend(shape, q.box, (prefix<<2)|q.bits, depth+2, visited, out)
	}
}

// collectBucket decodes and filters every entry belonging to bucket bi,
// forward entries followed by its full overflow chain.
func (h *HashTable) collectBucket(bi int, shape Shape, out *[]uint32) {
	n := h.forwardCount(bi)
	for i := 0; i < n; i++ {
		off := h.forwardOffset(bi, i)
		h.emitIfContained(bi, h.readKey(off), h.readValue(off), shape, out)
	}
	if !h.isFull(bi) {
		return
	}
	for _, e := range h.overflowEntriesOwnedBy(bi) {
		h.emitIfContained(bi, e.storedKey, e.value, shape, out)
	}
}

func (h *HashTable) emitIfContained(bi int, stored uint64, value uint32, shape Shape, out *[]uint32) {
	key := h.toUncompressedKey(bi, stored)
	lat, lon := h.key.Decode(key)
	if shape.Contains(lat, lon) {
		*out = append(*out, value)
	}
}
