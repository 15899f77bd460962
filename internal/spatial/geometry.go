package spatial

// Point represents a 2D point with latitude and longitude
type Point struct {
	Lat float64
	Lon float64
}

// Centroid calculates the arithmetic mean of latitude and longitude.
// The second return value is false for an empty set.
func Centroid(points []Point) (Point, bool) {
	if len(points) == 0 {
		return Point{}, false
	}

	var sumLat, sumLon float64
	for _, p := range points {
		sumLat += p.Lat
		sumLon += p.Lon
	}

	return Point{
		Lat: sumLat / float64(len(points)),
		Lon: sumLon / float64(len(points)),
	}, true
}

// PathLength calculates the total length of a path (sequence of points) in meters
func PathLength(points []Point) float64 {
	if len(points) < 2 {
		return 0
	}

	var totalDist float64
	for i := 1; i < len(points); i++ {
		totalDist += HaversineDistance(points[i-1].Lat, points[i-1].Lon, points[i].Lat, points[i].Lon)
	}

	return totalDist
}

// MaxDistanceFrom returns the largest distance in meters between anchor and any of the points.
func MaxDistanceFrom(points []Point, anchor Point) float64 {
	maxDist := 0.0
	for _, p := range points {
		if d := HaversineDistance(p.Lat, p.Lon, anchor.Lat, anchor.Lon); d > maxDist {
			maxDist = d
		}
	}
	return maxDist
}
