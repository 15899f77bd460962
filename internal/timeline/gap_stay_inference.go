package timeline

import (
	"time"

	"go.uber.org/zap"

	"github.com/jengzang/records-timeline-go/internal/config"
	"github.com/jengzang/records-timeline-go/internal/logging"
	"github.com/jengzang/records-timeline-go/internal/models"
	"github.com/jengzang/records-timeline-go/internal/spatial"
)

const (
	maxInTripLocalExcursionDuration      = 30 * time.Minute
	inTripLocalExcursionRadiusMultiplier = 2.0
)

// GapStayInference decides whether a data gap can be treated as stay
// continuity instead of a DataGap. It never finalizes events and never
// mutates the state it is given; the engine applies the returned plan.
type GapStayInference struct {
	heuristics *TripStopHeuristics
	logger     *zap.Logger
}

// NewGapStayInference creates the inference service
func NewGapStayInference(heuristics *TripStopHeuristics, logger *zap.Logger) *GapStayInference {
	if heuristics == nil {
		heuristics = NewTripStopHeuristics()
	}
	return &GapStayInference{
		heuristics: heuristics,
		logger:     logging.OrNop(logger).Named("gap_stay_inference"),
	}
}

// TryInfer returns the plan for a gap of gapDuration ending at currentPoint.
func (s *GapStayInference) TryInfer(currentPoint models.GPSPoint, state *models.UserState, cfg *config.TimelineConfig, gapDuration time.Duration) GapStayInferencePlan {
	if cfg == nil || cfg.GapStayInferenceEnabled == nil || !*cfg.GapStayInferenceEnabled {
		s.logger.Debug("gap stay inference is disabled")
		return NoInference()
	}

	if !state.HasActivePoints() {
		s.logger.Debug("no active points for gap stay inference comparison")
		return NoInference()
	}

	gapHours := int64(gapDuration / time.Hour)
	if cfg.GapStayInferenceMaxGapHours != nil && *cfg.GapStayInferenceMaxGapHours > 0 {
		if gapHours > int64(*cfg.GapStayInferenceMaxGapHours) {
			s.logger.Debug("gap exceeds max allowed duration for stay inference",
				zap.Int64("gapHours", gapHours),
				zap.Int("maxGapHours", *cfg.GapStayInferenceMaxGapHours))
			return NoInference()
		}
	}

	mode := state.CurrentMode
	if mode == models.ModeUnknown {
		s.logger.Debug("gap stay inference not applicable", zap.String("mode", string(mode)))
		return NoInference()
	}

	stayRadius := s.heuristics.StayRadiusMeters(cfg)

	if mode == models.ModeInTrip {
		if plan := s.tryInferForShortLocalTrip(currentPoint, state, stayRadius, gapHours); plan.Inferred() {
			return plan
		}
		return s.tryInferFromTripTailArrival(currentPoint, state, cfg, gapHours)
	}

	return s.tryInferForStayModes(currentPoint, state, stayRadius, gapHours)
}

func (s *GapStayInference) tryInferForStayModes(currentPoint models.GPSPoint, state *models.UserState, stayRadius int, gapHours int64) GapStayInferencePlan {
	centroid, ok := state.Centroid()
	if !ok {
		s.logger.Debug("could not calculate centroid for gap stay inference")
		return NoInference()
	}

	// comparisons are written to fail closed on NaN distances
	distance := centroid.DistanceTo(currentPoint)
	if !(distance <= float64(stayRadius)) {
		s.logger.Debug("distance from centroid exceeds stay radius, creating gap",
			zap.Float64("distanceMeters", distance),
			zap.Int("radiusMeters", stayRadius))
		return NoInference()
	}

	s.logger.Info("gap stay inference conditions met",
		zap.String("mode", string(state.CurrentMode)),
		zap.Int64("gapHours", gapHours),
		zap.Float64("distanceMeters", distance),
		zap.Int("radiusMeters", stayRadius))
	return ContinueExistingStay()
}

// tryInferForShortLocalTrip collapses a short unfinished trip that never left
// the neighbourhood of its end point back into a stay.
func (s *GapStayInference) tryInferForShortLocalTrip(currentPoint models.GPSPoint, state *models.UserState, stayRadius int, gapHours int64) GapStayInferencePlan {
	tripPoints := state.CopyActivePoints()
	if len(tripPoints) < 2 {
		s.logger.Debug("local excursion check needs at least 2 active points")
		return NoInference()
	}

	first, last := tripPoints[0], tripPoints[len(tripPoints)-1]
	if !first.HasTimestamp() || !last.HasTimestamp() {
		s.logger.Debug("local excursion check skipped, missing timestamps")
		return NoInference()
	}

	pendingTripDuration := last.Timestamp.Sub(first.Timestamp)
	if pendingTripDuration > maxInTripLocalExcursionDuration {
		s.logger.Debug("pending trip exceeds local excursion duration",
			zap.Duration("pendingTrip", pendingTripDuration),
			zap.Duration("limit", maxInTripLocalExcursionDuration))
		return NoInference()
	}

	radius := float64(stayRadius)
	resumeDistance := last.DistanceTo(currentPoint)
	if !(resumeDistance <= radius) {
		s.logger.Debug("trip resume distance exceeds stay radius, creating gap",
			zap.Float64("resumeDistanceMeters", resumeDistance),
			zap.Int("radiusMeters", stayRadius))
		return NoInference()
	}

	maxDistanceFromTripEnd := spatial.MaxDistanceFrom(models.Locations(tripPoints), last.Location())

	excursionLimit := radius * inTripLocalExcursionRadiusMultiplier
	if !(maxDistanceFromTripEnd <= excursionLimit) {
		s.logger.Debug("pending trip spread exceeds local excursion limit",
			zap.Float64("spreadMeters", maxDistanceFromTripEnd),
			zap.Float64("limitMeters", excursionLimit))
		return NoInference()
	}

	localPoints := collectPointsWithinRadius(tripPoints, last, radius)

	s.logger.Info("gap stay inference conditions met for short local trip",
		zap.Int64("gapHours", gapHours),
		zap.Duration("pendingTrip", pendingTripDuration),
		zap.Float64("resumeDistanceMeters", resumeDistance),
		zap.Float64("spreadMeters", maxDistanceFromTripEnd),
		zap.Int("radiusMeters", stayRadius))
	return ReplaceWithConfirmedStay(localPoints)
}

func (s *GapStayInference) tryInferFromTripTailArrival(currentPoint models.GPSPoint, state *models.UserState, cfg *config.TimelineConfig, gapHours int64) GapStayInferencePlan {
	tripPoints := state.CopyActivePoints()
	match := s.heuristics.FindGapTailArrivalClusterMatch(tripPoints, currentPoint, cfg)
	if !match.Matched {
		return NoInference()
	}

	prefix := tripPoints[:match.StartIndex]
	tail := tripPoints[match.StartIndex:]

	s.logger.Info("gap stay inference conditions met for trip tail arrival",
		zap.Int64("gapHours", gapHours),
		zap.Int("tailPoints", len(tail)),
		zap.Duration("tailDuration", match.TailDuration),
		zap.Float64("resumeDistanceMeters", match.ResumeDistanceMeters),
		zap.Int("radiusMeters", match.StayRadiusMeters),
		zap.Int("finalizedTripPoints", len(prefix)))
	return FinalizeTripAndReplaceWithConfirmedStay(prefix, tail)
}

func collectPointsWithinRadius(points []models.GPSPoint, anchor models.GPSPoint, radius float64) []models.GPSPoint {
	var local []models.GPSPoint
	for _, p := range points {
		if p.DistanceTo(anchor) <= radius {
			local = append(local, p)
		}
	}
	if len(local) == 0 {
		local = append(local, anchor)
	}
	return local
}
