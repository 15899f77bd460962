package timeline

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/records-timeline-go/internal/config"
	"github.com/jengzang/records-timeline-go/internal/models"
)

func movingPrefix() []models.GPSPoint {
	return []models.GPSPoint{
		pt("2024-01-01T10:20:00Z", 40.7100, -74.0100, 9),
		pt("2024-01-01T10:25:00Z", 40.7120, -74.0080, 11),
		pt("2024-01-01T10:29:00Z", 40.7140, -74.0060, 8),
	}
}

func TestDetectTripStopFromRecentWindow_ClusteredAndSlow(t *testing.T) {
	h := NewTripStopHeuristics()
	points := append(movingPrefix(),
		pt("2024-01-01T10:30:00Z", 40.71480, -74.00580, 0.7),
		pt("2024-01-01T10:31:00Z", 40.71484, -74.00576, 0.5),
		pt("2024-01-01T10:31:40Z", 40.71482, -74.00574, 0.4),
	)

	result := h.DetectTripStopFromRecentWindow(points, arrivalConfig())
	assert.True(t, result.StopDetected)
	assert.Equal(t, 3, result.StoppedClusterStartIndex)
}

func TestDetectTripStopFromRecentWindow_ShortWindow(t *testing.T) {
	h := NewTripStopHeuristics()
	points := append(movingPrefix(),
		pt("2024-01-01T10:31:00Z", 40.71480, -74.00580, 0.7),
		pt("2024-01-01T10:31:20Z", 40.71484, -74.00576, 0.5),
		pt("2024-01-01T10:31:40Z", 40.71482, -74.00574, 0.4),
	)

	result := h.DetectTripStopFromRecentWindow(points, arrivalConfig())
	assert.False(t, result.StopDetected)
	assert.Equal(t, -1, result.StoppedClusterStartIndex)
}

func TestDetectTripStopFromRecentWindow_SustainedSlowWithoutCluster(t *testing.T) {
	h := NewTripStopHeuristics()
	// ~220m apart, far outside the radius, but crawling for 70s
	points := []models.GPSPoint{
		pt("2024-01-01T10:30:00Z", 40.7100, -74.0060, 1.0),
		pt("2024-01-01T10:30:35Z", 40.7120, -74.0060, 1.2),
		pt("2024-01-01T10:31:10Z", 40.7140, -74.0060, 0.9),
	}

	result := h.DetectTripStopFromRecentWindow(points, arrivalConfig())
	assert.True(t, result.StopDetected)
	assert.Equal(t, 0, result.StoppedClusterStartIndex)
}

func TestDetectTripStopFromRecentWindow_SpeedAtThreshold(t *testing.T) {
	h := NewTripStopHeuristics()
	cfg := arrivalConfig()

	// speed == threshold fails the strict sustained test and the window is too short to cluster
	short := []models.GPSPoint{
		pt("2024-01-01T10:30:00Z", 40.71480, -74.00580, 2.0),
		pt("2024-01-01T10:30:35Z", 40.71481, -74.00580, 2.0),
		pt("2024-01-01T10:31:10Z", 40.71482, -74.00580, 2.0),
	}
	assert.False(t, h.DetectTripStopFromRecentWindow(short, cfg).StopDetected)

	// the clustered test is inclusive of the threshold
	long := []models.GPSPoint{
		pt("2024-01-01T10:30:00Z", 40.71480, -74.00580, 2.0),
		pt("2024-01-01T10:30:50Z", 40.71481, -74.00580, 2.0),
		pt("2024-01-01T10:31:40Z", 40.71482, -74.00580, 2.0),
	}
	assert.True(t, h.DetectTripStopFromRecentWindow(long, cfg).StopDetected)
}

func TestDetectTripStopFromRecentWindow_TooFewPoints(t *testing.T) {
	h := NewTripStopHeuristics()
	points := []models.GPSPoint{
		pt("2024-01-01T10:30:00Z", 40.71480, -74.00580, 0),
		pt("2024-01-01T10:35:00Z", 40.71480, -74.00580, 0),
	}

	result := h.DetectTripStopFromRecentWindow(points, arrivalConfig())
	assert.False(t, result.StopDetected)
	assert.False(t, h.DetectTripStopFromRecentWindow(nil, nil).StopDetected)
}

func TestFindGapTailArrivalClusterMatch(t *testing.T) {
	h := NewTripStopHeuristics()

	match := h.FindGapTailArrivalClusterMatch(tripWithArrivalTail(), postArrivalPoint(), arrivalConfig())
	require.True(t, match.Matched)
	assert.Equal(t, 3, match.StartIndex)
	assert.Equal(t, 80, match.StayRadiusMeters)
	assert.Equal(t, 51*time.Second, match.TailDuration)
	assert.InDelta(t, 4.8, match.ResumeDistanceMeters, 0.5)
}

func TestFindGapTailArrivalClusterMatch_Rejections(t *testing.T) {
	h := NewTripStopHeuristics()
	cfg := arrivalConfig()

	t.Run("empty trip", func(t *testing.T) {
		assert.False(t, h.FindGapTailArrivalClusterMatch(nil, postArrivalPoint(), cfg).Matched)
	})

	t.Run("fast post gap point", func(t *testing.T) {
		fast := postArrivalPoint()
		fast.Speed = 6.0
		assert.False(t, h.FindGapTailArrivalClusterMatch(tripWithArrivalTail(), fast, cfg).Matched)
	})

	t.Run("fast last trip point", func(t *testing.T) {
		points := tripWithArrivalTail()
		points[len(points)-1].Speed = 4.0
		assert.False(t, h.FindGapTailArrivalClusterMatch(points, postArrivalPoint(), cfg).Matched)
	})

	t.Run("resumed far away", func(t *testing.T) {
		far := pt("2024-01-02T10:03:03Z", 40.7170, -74.0057, 0)
		assert.False(t, h.FindGapTailArrivalClusterMatch(tripWithArrivalTail(), far, cfg).Matched)
	})

	t.Run("post gap point without coordinates", func(t *testing.T) {
		lost := postArrivalPoint()
		lost.Latitude, lost.Longitude = math.NaN(), math.NaN()
		assert.False(t, h.FindGapTailArrivalClusterMatch(tripWithArrivalTail(), lost, cfg).Matched)
	})

	t.Run("tail shorter than min points", func(t *testing.T) {
		points := []models.GPSPoint{
			pt("2024-01-01T20:00:00Z", 40.71310, -74.0060, 0.5),
			pt("2024-01-01T20:45:00Z", 40.71292, -74.0060, 0.3),
		}
		resume := pt("2024-01-02T08:00:00Z", 40.71284, -74.0060, 0)
		assert.False(t, h.FindGapTailArrivalClusterMatch(points, resume, cfg).Matched)
	})

	t.Run("tail too short in time", func(t *testing.T) {
		points := append(tripWithArrivalTail()[:3],
			pt("2024-01-01T17:57:30Z", 40.71500, -74.00576, 0.5),
			pt("2024-01-01T17:57:45Z", 40.71492, -74.00574, 0.6),
			pt("2024-01-01T17:57:57Z", 40.71486, -74.00572, 0.4),
		)
		assert.False(t, h.FindGapTailArrivalClusterMatch(points, postArrivalPoint(), cfg).Matched)
	})
}

func TestFindGapTailArrivalClusterMatch_ComparesAgainstLastPoint(t *testing.T) {
	h := NewTripStopHeuristics()
	// the first two points are ~133m apart but each within 80m of the last one
	points := []models.GPSPoint{
		pt("2024-01-01T09:00:00Z", 40.71540, -74.0060, 0.5),
		pt("2024-01-01T09:00:30Z", 40.71420, -74.0060, 0.5),
		pt("2024-01-01T09:01:00Z", 40.71480, -74.0060, 0.2),
	}
	resume := pt("2024-01-01T14:00:00Z", 40.71481, -74.0060, 0)

	match := h.FindGapTailArrivalClusterMatch(points, resume, arrivalConfig())
	require.True(t, match.Matched)
	assert.Equal(t, 0, match.StartIndex)
}

func TestThresholdDefaults(t *testing.T) {
	h := NewTripStopHeuristics()

	assert.Equal(t, 50, h.StayRadiusMeters(nil))
	assert.Equal(t, 2.0, h.StopSpeedThreshold(&config.TimelineConfig{}))
	assert.Equal(t, 90*time.Second, h.ArrivalDetectionDuration(nil))
	assert.Equal(t, 60*time.Second, h.SustainedStopDuration(nil))
	assert.Equal(t, 3, h.TripArrivalMinPoints(nil))
	assert.Equal(t, 3, h.TripArrivalMinPoints(&config.TimelineConfig{TripArrivalMinPoints: config.Int(0)}))
	assert.Equal(t, 45*time.Second, h.GapTailStopMinDuration(nil))

	// an unvalidated zero must not shrink the stop window to nothing
	zero := &config.TimelineConfig{TripArrivalMinPoints: config.Int(0)}
	assert.NotPanics(t, func() {
		assert.False(t, h.DetectTripStopFromRecentWindow(shortLocalTrip()[:1], zero).StopDetected)
	})
}

func TestRelaxedTailDuration(t *testing.T) {
	cases := []struct {
		arrival time.Duration
		want    time.Duration
	}{
		{arrival: 20 * time.Second, want: 30 * time.Second},
		{arrival: 60 * time.Second, want: 30 * time.Second},
		{arrival: 90 * time.Second, want: 45 * time.Second},
		{arrival: 120 * time.Second, want: 60 * time.Second},
		{arrival: 600 * time.Second, want: 60 * time.Second},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, relaxedTailDuration(tc.arrival), "arrival %s", tc.arrival)
	}
}
