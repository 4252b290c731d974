package geo

import "math"

const (
	earthRadiusMeters = 6_371_000.0
	degToRad          = math.Pi / 180

	// MinEdgeLength keeps coincident OSM nodes from producing zero-weight
	// edges, which would make witness ties ambiguous.
	MinEdgeLength = 0.1
)

// Haversine returns the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * degToRad
	dLon := (lon2 - lon1) * degToRad
	s1, s2 := math.Sin(dLat/2), math.Sin(dLon/2)
	a := s1*s1 + math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*s2*s2
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(min(a, 1)))
}

// Equirectangular returns an approximate distance in meters. It is close to
// Haversine for the short spans compared during snapping.
func Equirectangular(lat1, lon1, lat2, lon2 float64) float64 {
	x := (lon2 - lon1) * degToRad * math.Cos((lat1+lat2)/2*degToRad)
	y := (lat2 - lat1) * degToRad
	return math.Hypot(x, y) * earthRadiusMeters
}

// Box is an axis-aligned lat/lon rectangle.
type Box struct {
	MinLat, MinLon float64
	MaxLat, MaxLon float64
}

// BoxAround returns a box that contains every point within radius meters
// of (lat, lon). Longitude span is widened by the latitude's cosine.
func BoxAround(lat, lon, radius float64) Box {
	dLat := radius / earthRadiusMeters / degToRad
	cos := math.Cos(lat * degToRad)
	dLon := 180.0
	if cos > 1e-9 {
		dLon = min(dLat/cos, 180)
	}
	return Box{MinLat: lat - dLat, MinLon: lon - dLon, MaxLat: lat + dLat, MaxLon: lon + dLon}
}

// ProjectToSegment finds the point on segment AB closest to P. It returns
// the distance in meters and the position along AB in [0, 1].
func ProjectToSegment(pLat, pLon, aLat, aLon, bLat, bLon float64) (dist, ratio float64) {
	if aLat == bLat && aLon == bLon {
		return Equirectangular(pLat, pLon, aLat, aLon), 0
	}
	cos := math.Cos((aLat + bLat) / 2 * degToRad)
	dx, dy := (bLon-aLon)*cos, bLat-aLat
	px, py := (pLon-aLon)*cos, pLat-aLat

	t := (px*dx + py*dy) / (dx*dx + dy*dy)
	t = max(0, min(1, t))

	lat := aLat + t*(bLat-aLat)
	lon := aLon + t*(bLon-aLon)
	return Equirectangular(pLat, pLon, lat, lon), t
}
