package utils

import "math"

const earthRadiusMeters = 6371000

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// Haversine returns the distance between two GPS coordinates in meters.
func Haversine(startLat, startLng, endLat, endLng float64) float64 {
	phi1 := degToRad(startLat)
	phi2 := degToRad(endLat)
	deltaPhi := degToRad(endLat - startLat)
	deltaLambda := degToRad(endLng - startLng)

	a := math.Pow(math.Sin(deltaPhi/2), 2) + math.Cos(phi1)*math.Cos(phi2)*
		math.Pow(math.Sin(deltaLambda/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

type Point struct {
	Lat float64
	Lng float64
}

// PathLength returns the length in meters of the polyline through points.
func PathLength(points []Point) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += Haversine(points[i-1].Lat, points[i-1].Lng, points[i].Lat, points[i].Lng)
	}
	return total
}
