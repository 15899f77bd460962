package models

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jengzang/records-timeline-go/internal/spatial"
)

// GPSPoint is a single timestamped location sample.
// A zero Timestamp means the sample arrived without a usable time.
type GPSPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Speed     float64   `json:"speed"`    // m/s
	Accuracy  float64   `json:"accuracy"` // meters
}

// ErrInvalidPoint marks a sample whose coordinates or speed are unusable
var ErrInvalidPoint = errors.New("invalid point")

// Validate applies the same bounds as the ingestion API: finite values,
// latitude in [-90, 90], longitude in [-180, 180], non-negative speed and accuracy.
func (p GPSPoint) Validate() error {
	switch {
	case math.IsNaN(p.Latitude) || p.Latitude < -90 || p.Latitude > 90:
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidPoint, p.Latitude)
	case math.IsNaN(p.Longitude) || p.Longitude < -180 || p.Longitude > 180:
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidPoint, p.Longitude)
	case math.IsNaN(p.Speed) || math.IsInf(p.Speed, 0) || p.Speed < 0:
		return fmt.Errorf("%w: speed %v", ErrInvalidPoint, p.Speed)
	case math.IsNaN(p.Accuracy) || math.IsInf(p.Accuracy, 0) || p.Accuracy < 0:
		return fmt.Errorf("%w: accuracy %v", ErrInvalidPoint, p.Accuracy)
	}
	return nil
}

// DistanceTo returns the great-circle distance to other in meters.
func (p GPSPoint) DistanceTo(other GPSPoint) float64 {
	return spatial.HaversineDistance(p.Latitude, p.Longitude, other.Latitude, other.Longitude)
}

// HasTimestamp reports whether the sample carries a timestamp.
func (p GPSPoint) HasTimestamp() bool {
	return !p.Timestamp.IsZero()
}

// Location returns the point as a spatial.Point
func (p GPSPoint) Location() spatial.Point {
	return spatial.Point{Lat: p.Latitude, Lon: p.Longitude}
}

// Locations converts a point sequence for the spatial helpers.
func Locations(points []GPSPoint) []spatial.Point {
	out := make([]spatial.Point, len(points))
	for i, p := range points {
		out[i] = p.Location()
	}
	return out
}

// TimeSpan is the time between the first and last point, zero when either lacks a timestamp.
func TimeSpan(points []GPSPoint) time.Duration {
	if len(points) < 2 {
		return 0
	}
	first, last := points[0], points[len(points)-1]
	if !first.HasTimestamp() || !last.HasTimestamp() {
		return 0
	}
	return last.Timestamp.Sub(first.Timestamp)
}
