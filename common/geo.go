package common

import (
	"math"

	"github.com/paulmach/orb"
)

// EarthRadius is the mean Earth radius in meters used for haversine distances.
// Note this differs from orb.EarthRadius (the WGS84 equatorial radius).
const EarthRadius = 6371000.0

const (
	SpeedOfWalkingMin = 0.3 // m/s
	SpeedOfVehicleMin = 4.5 // m/s
)

// HaversineDistance returns the great-circle distance in meters between two
// coordinates given in degrees.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	φ1 := lat1 * math.Pi / 180
	φ2 := lat2 * math.Pi / 180
	Δφ := (lat2 - lat1) * math.Pi / 180
	Δλ := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(Δφ/2)*math.Sin(Δφ/2) +
		math.Cos(φ1)*math.Cos(φ2)*math.Sin(Δλ/2)*math.Sin(Δλ/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadius * c
}

// Distance is HaversineDistance for orb points ([lon, lat]).
func Distance(a, b orb.Point) float64 {
	return HaversineDistance(a.Lat(), a.Lon(), b.Lat(), b.Lon())
}
