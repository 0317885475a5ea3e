package geo

import (
	"math"

	"github.com/kartaroute/querygraph/pkg/util"
)

/*
AngleCalc bundles the azimuth <-> x-axis angle conversions needed to
compare a favored heading against the orientation of a virtual edge's
terminal geometry segment.
*/

// ConvertAzimuth2xaxisAngle converts a north-based azimuth in degrees
// (0 = north, clockwise, [0,360]) into a standard math angle in radians
// (0 = east, counter-clockwise, [0, 2*pi)).
func ConvertAzimuth2xaxisAngle(azimuthDeg float64) float64 {
	angle := util.DegreeToRadians(90 - azimuthDeg)
	if angle < 0 {
		angle += 2 * math.Pi
	}
	return angle
}

// CalcOrientation returns the planar orientation in radians (atan2-style,
// 0 = east, counter-clockwise) of the vector from (lat1,lon1) to
// (lat2,lon2). It treats the segment as planar, which is accurate enough
// for the short terminal segments heading enforcement inspects.
func CalcOrientation(lat1, lon1, lat2, lon2 float64) float64 {
	return math.Atan2(lat2-lat1, lon2-lon1)
}

// AlignOrientation shifts orientation by a multiple of 2*pi so that it
// lies within pi of baseOrientation, making the two directly comparable.
func AlignOrientation(baseOrientation, orientation float64) float64 {
	if baseOrientation >= 0 {
		if orientation < -math.Pi+baseOrientation {
			return orientation + 2*math.Pi
		}
		return orientation
	}
	if orientation > math.Pi+baseOrientation {
		return orientation - 2*math.Pi
	}
	return orientation
}
