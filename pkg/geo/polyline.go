package geo

import "github.com/twpayne/go-polyline"

// EncodePolyline packs an ordered list of coordinates into the Google
// encoded-polyline wire format, the form a routing client expects a
// snapped point's or a virtual edge's way geometry rendered in.
func EncodePolyline(points []Coordinate) string {
	coords := make([][]float64, len(points))
	for i, p := range points {
		coords[i] = []float64{p.Lat, p.Lon}
	}
	return string(polyline.EncodeCoords(coords))
}

// DecodePolyline reverses EncodePolyline, returning an error if buf is
// not a well-formed encoded polyline.
func DecodePolyline(buf string) ([]Coordinate, error) {
	coords, _, err := polyline.DecodeCoords([]byte(buf))
	if err != nil {
		return nil, err
	}
	out := make([]Coordinate, len(coords))
	for i, c := range coords {
		out[i] = Coordinate{Lat: c[0], Lon: c[1]}
	}
	return out, nil
}
