// Package geo holds the closed-form position math used by the enrichment
// stage. All functions are pure so they stay testable without a database.
package geo

import "math"

// EarthRadiusKm - mean Earth radius used by the spherical law of cosines.
const EarthRadiusKm = 6371.0

// GreatCircleKm computes the great-circle distance in kilometers between two
// points given in degrees, via the spherical law of cosines.
//
// The arccos argument is clamped to [-1, 1]: with near-identical endpoints
// floating-point rounding can push it slightly outside the domain and NaN the
// result. Identical endpoints short-circuit to exactly 0 for the same reason.
// The result is rounded to 2 decimals so recomputation is bit-stable.
func GreatCircleKm(lat1, lon1, lat2, lon2 float64) float64 {
	if lat1 == lat2 && lon1 == lon2 {
		return 0
	}

	rLat1 := lat1 * math.Pi / 180
	rLon1 := lon1 * math.Pi / 180
	rLat2 := lat2 * math.Pi / 180
	rLon2 := lon2 * math.Pi / 180

	arg := math.Sin(rLat1)*math.Sin(rLat2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Cos(rLon1-rLon2)
	if arg > 1 {
		arg = 1
	} else if arg < -1 {
		arg = -1
	}

	return round2(EarthRadiusKm * math.Acos(arg))
}

// ValidCoordinates reports whether lat/lon are inside the geographic domain.
func ValidCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
