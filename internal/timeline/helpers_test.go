package timeline

import (
	"time"

	"github.com/jengzang/records-timeline-go/internal/config"
	"github.com/jengzang/records-timeline-go/internal/models"
)

func mustTime(s string) time.Time {
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return ts
}

func pt(ts string, lat, lon, speed float64) models.GPSPoint {
	return models.GPSPoint{
		Timestamp: mustTime(ts),
		Latitude:  lat,
		Longitude: lon,
		Speed:     speed,
		Accuracy:  10,
	}
}

func stateWith(mode models.ProcessorMode, points ...models.GPSPoint) *models.UserState {
	state := models.NewUserState("user-1")
	state.ReplaceActivePoints(points, mode)
	if len(points) > 0 {
		state.SetLastProcessedPoint(points[len(points)-1])
	}
	return state
}

func inferenceConfig(radius int) *config.TimelineConfig {
	return &config.TimelineConfig{
		StaypointRadiusMeters:   config.Int(radius),
		GapStayInferenceEnabled: config.Bool(true),
	}
}

// arrivalConfig matches the trip arrival thresholds used by the tail arrival cases
func arrivalConfig() *config.TimelineConfig {
	cfg := inferenceConfig(80)
	cfg.StaypointVelocityThreshold = config.Float(2.0)
	cfg.TripArrivalMinPoints = config.Int(3)
	cfg.TripArrivalDetectionMinDurationSeconds = config.Int(90)
	return cfg
}

// tripWithArrivalTail is a trip whose last four samples are a slow arrival cluster
func tripWithArrivalTail() []models.GPSPoint {
	return []models.GPSPoint{
		pt("2024-01-01T17:35:00Z", 40.7120, -74.0100, 10),
		pt("2024-01-01T17:40:00Z", 40.7130, -74.0080, 12),
		pt("2024-01-01T17:50:00Z", 40.7145, -74.0060, 11),
		pt("2024-01-01T17:57:06Z", 40.71510, -74.00580, 0.7),
		pt("2024-01-01T17:57:26Z", 40.71500, -74.00576, 0.5),
		pt("2024-01-01T17:57:46Z", 40.71492, -74.00574, 0.6),
		pt("2024-01-01T17:57:57Z", 40.71486, -74.00572, 0.4),
	}
}

func postArrivalPoint() models.GPSPoint {
	return pt("2024-01-02T10:03:03Z", 40.71482, -74.00570, 0)
}

// shortLocalTrip is a 90 second trip that never leaves the block it ends in
func shortLocalTrip() []models.GPSPoint {
	return []models.GPSPoint{
		pt("2024-01-01T20:00:00Z", 40.71375, -74.0060, 2.5),
		pt("2024-01-01T20:00:30Z", 40.71335, -74.0060, 1.8),
		pt("2024-01-01T20:01:00Z", 40.71300, -74.0060, 0.9),
		pt("2024-01-01T20:01:30Z", 40.71292, -74.0060, 0.3),
	}
}
