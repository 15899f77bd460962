package timeline

import (
	"time"

	"github.com/jengzang/records-timeline-go/internal/config"
	"github.com/jengzang/records-timeline-go/internal/models"
)

// Defaults for the stop/arrival thresholds
const (
	DefaultStayRadiusMeters         = 50
	DefaultStopSpeedThreshold       = 2.0
	DefaultArrivalDetectionDuration = 90 * time.Second
	DefaultSustainedStopDuration    = 60 * time.Second
	DefaultTripArrivalMinPoints     = 3
	minGapTailStopDuration          = 30 * time.Second
	maxGapTailStopDuration          = 60 * time.Second
)

// TripStopHeuristics holds the stop and arrival checks shared by trip
// processing and gap stay inference, so both code paths read the same
// thresholds. It is stateless and safe for concurrent use.
type TripStopHeuristics struct{}

// NewTripStopHeuristics creates the heuristics service
func NewTripStopHeuristics() *TripStopHeuristics {
	return &TripStopHeuristics{}
}

// TripStopDetection is the result of DetectTripStopFromRecentWindow
type TripStopDetection struct {
	StopDetected             bool
	StoppedClusterStartIndex int // -1 when no stop
}

func noStop() TripStopDetection {
	return TripStopDetection{StoppedClusterStartIndex: -1}
}

// TailArrivalClusterMatch is the result of FindGapTailArrivalClusterMatch
type TailArrivalClusterMatch struct {
	Matched              bool
	StartIndex           int // -1 when not matched
	StayRadiusMeters     int
	ResumeDistanceMeters float64
	TailDuration         time.Duration
}

func noTailMatch() TailArrivalClusterMatch {
	return TailArrivalClusterMatch{StartIndex: -1}
}

// DetectTripStopFromRecentWindow checks whether the newest tripArrivalMinPoints
// samples of a trip look stopped. The window passes when it is either
// clustered around its last point and slow for the arrival duration, or
// strictly below the speed threshold for the sustained stop duration.
func (h *TripStopHeuristics) DetectTripStopFromRecentWindow(activePoints []models.GPSPoint, cfg *config.TimelineConfig) TripStopDetection {
	minPoints := h.TripArrivalMinPoints(cfg)
	if len(activePoints) < minPoints {
		return noStop()
	}

	stopSpeed := h.StopSpeedThreshold(cfg)
	stayRadius := float64(h.StayRadiusMeters(cfg))

	startIndex := len(activePoints) - minPoints
	window := activePoints[startIndex:]
	lastPoint := window[len(window)-1]

	clusteredAndSlow := true
	for _, p := range window {
		if !(p.DistanceTo(lastPoint) <= stayRadius && p.Speed <= stopSpeed) {
			clusteredAndSlow = false
			break
		}
	}
	if clusteredAndSlow && models.TimeSpan(window) >= h.ArrivalDetectionDuration(cfg) {
		return TripStopDetection{StopDetected: true, StoppedClusterStartIndex: startIndex}
	}

	if len(window) >= 2 {
		allSlow := true
		for _, p := range window {
			if !(p.Speed < stopSpeed) {
				allSlow = false
				break
			}
		}
		if allSlow && models.TimeSpan(window) >= h.SustainedStopDuration(cfg) {
			return TripStopDetection{StopDetected: true, StoppedClusterStartIndex: startIndex}
		}
	}

	return noStop()
}

// FindGapTailArrivalClusterMatch tests whether an unfinished trip had already
// arrived before the signal was lost. The tail grows backwards from the last
// trip point while each candidate stays slow and within the stay radius of
// that last point; the comparison is always against the last point, never the
// neighbouring tail point.
func (h *TripStopHeuristics) FindGapTailArrivalClusterMatch(activeTripPoints []models.GPSPoint, postGapPoint models.GPSPoint, cfg *config.TimelineConfig) TailArrivalClusterMatch {
	if len(activeTripPoints) == 0 {
		return noTailMatch()
	}

	stayRadius := h.StayRadiusMeters(cfg)
	stopSpeed := h.StopSpeedThreshold(cfg)
	lastTripPoint := activeTripPoints[len(activeTripPoints)-1]

	if !(lastTripPoint.Speed <= stopSpeed && postGapPoint.Speed <= stopSpeed) {
		return noTailMatch()
	}

	resumeDistance := lastTripPoint.DistanceTo(postGapPoint)
	if !(resumeDistance <= float64(stayRadius)) {
		return noTailMatch()
	}

	startIndex := len(activeTripPoints) - 1
	for startIndex > 0 {
		candidate := activeTripPoints[startIndex-1]
		if !(candidate.DistanceTo(lastTripPoint) <= float64(stayRadius) && candidate.Speed <= stopSpeed) {
			break
		}
		startIndex--
	}

	if len(activeTripPoints)-startIndex < h.TripArrivalMinPoints(cfg) {
		return noTailMatch()
	}

	firstTailPoint := activeTripPoints[startIndex]
	if !firstTailPoint.HasTimestamp() || !lastTripPoint.HasTimestamp() {
		return noTailMatch()
	}

	tailDuration := lastTripPoint.Timestamp.Sub(firstTailPoint.Timestamp)
	if tailDuration < h.GapTailStopMinDuration(cfg) {
		return noTailMatch()
	}

	return TailArrivalClusterMatch{
		Matched:              true,
		StartIndex:           startIndex,
		StayRadiusMeters:     stayRadius,
		ResumeDistanceMeters: resumeDistance,
		TailDuration:         tailDuration,
	}
}

// StayRadiusMeters returns staypoint_radius_meters or its default
func (h *TripStopHeuristics) StayRadiusMeters(cfg *config.TimelineConfig) int {
	if cfg != nil && cfg.StaypointRadiusMeters != nil {
		return *cfg.StaypointRadiusMeters
	}
	return DefaultStayRadiusMeters
}

// StopSpeedThreshold returns staypoint_velocity_threshold (m/s) or its default
func (h *TripStopHeuristics) StopSpeedThreshold(cfg *config.TimelineConfig) float64 {
	if cfg != nil && cfg.StaypointVelocityThreshold != nil {
		return *cfg.StaypointVelocityThreshold
	}
	return DefaultStopSpeedThreshold
}

// ArrivalDetectionDuration returns trip_arrival_detection_min_duration_seconds or its default
func (h *TripStopHeuristics) ArrivalDetectionDuration(cfg *config.TimelineConfig) time.Duration {
	if cfg != nil && cfg.TripArrivalDetectionMinDurationSeconds != nil {
		return time.Duration(*cfg.TripArrivalDetectionMinDurationSeconds) * time.Second
	}
	return DefaultArrivalDetectionDuration
}

// SustainedStopDuration returns trip_sustained_stop_min_duration_seconds or its default
func (h *TripStopHeuristics) SustainedStopDuration(cfg *config.TimelineConfig) time.Duration {
	if cfg != nil && cfg.TripSustainedStopMinDurationSeconds != nil {
		return time.Duration(*cfg.TripSustainedStopMinDurationSeconds) * time.Second
	}
	return DefaultSustainedStopDuration
}

// TripArrivalMinPoints returns trip_arrival_min_points or its default.
// Values below 1 also get the default: the stop window needs a last point,
// and configs built in code never pass through Validate.
func (h *TripStopHeuristics) TripArrivalMinPoints(cfg *config.TimelineConfig) int {
	if cfg != nil && cfg.TripArrivalMinPoints != nil && *cfg.TripArrivalMinPoints > 0 {
		return *cfg.TripArrivalMinPoints
	}
	return DefaultTripArrivalMinPoints
}

// GapTailStopMinDuration is the relaxed tail duration used after a gap:
// half the arrival detection duration, clamped to [30s, 60s].
func (h *TripStopHeuristics) GapTailStopMinDuration(cfg *config.TimelineConfig) time.Duration {
	return relaxedTailDuration(h.ArrivalDetectionDuration(cfg))
}

func relaxedTailDuration(arrival time.Duration) time.Duration {
	relaxed := arrival / 2
	if relaxed < minGapTailStopDuration {
		return minGapTailStopDuration
	}
	if relaxed > maxGapTailStopDuration {
		return maxGapTailStopDuration
	}
	return relaxed
}
