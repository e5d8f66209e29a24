package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGreatCircleKmKnownDistance(t *testing.T) {
	// Mexico City to Cancún, ~1293 km.
	d := GreatCircleKm(19.4326, -99.1332, 21.0417, -86.8515)
	assert.InDelta(t, 1293.4, d, 5.0)
}

func TestGreatCircleKmIdenticalPoints(t *testing.T) {
	points := []struct {
		name     string
		lat, lon float64
	}{
		{"origin", 0, 0},
		{"north pole", 90, 0},
		{"south pole", -90, 0},
		{"antimeridian east", 45.5, 180},
		{"antimeridian west", -45.5, -180},
		{"mexico city", 19.4326, -99.1332},
	}

	for _, p := range points {
		t.Run(p.name, func(t *testing.T) {
			d := GreatCircleKm(p.lat, p.lon, p.lat, p.lon)
			assert.Equal(t, 0.0, d)
			assert.False(t, d != d, "distance must never be NaN")
		})
	}
}

func TestGreatCircleKmNearIdenticalPoints(t *testing.T) {
	// Close enough that the unclamped arccos argument can exceed 1.
	d := GreatCircleKm(19.4326, -99.1332, 19.4326, -99.13320000000001)
	assert.False(t, d != d, "distance must never be NaN")
	assert.GreaterOrEqual(t, d, 0.0)
}

func TestGreatCircleKmAntipodal(t *testing.T) {
	// Half the Earth's circumference, ~20015 km.
	d := GreatCircleKm(90, 0, -90, 0)
	assert.InDelta(t, 20015.0, d, 5.0)
}

func TestGreatCircleKmSymmetric(t *testing.T) {
	a := GreatCircleKm(19.4326, -99.1332, 21.0417, -86.8515)
	b := GreatCircleKm(21.0417, -86.8515, 19.4326, -99.1332)
	assert.Equal(t, a, b)
}

func TestValidCoordinates(t *testing.T) {
	assert.True(t, ValidCoordinates(0, 0))
	assert.True(t, ValidCoordinates(90, 180))
	assert.True(t, ValidCoordinates(-90, -180))
	assert.False(t, ValidCoordinates(90.0001, 0))
	assert.False(t, ValidCoordinates(-91, 0))
	assert.False(t, ValidCoordinates(0, 180.5))
	assert.False(t, ValidCoordinates(0, -181))
}
