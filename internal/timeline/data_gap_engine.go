package timeline

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/jengzang/records-timeline-go/internal/config"
	"github.com/jengzang/records-timeline-go/internal/logging"
	"github.com/jengzang/records-timeline-go/internal/models"
)

// GapDetector decides whether two consecutive samples are separated by a data gap
type GapDetector interface {
	ShouldCreateDataGap(last, current models.GPSPoint, cfg *config.TimelineConfig) (bool, error)
}

// SegmentFinalizer turns pending points into finalized events.
// A nil event with a nil error means the segment was too small to record.
type SegmentFinalizer interface {
	FinalizeStayWithoutLocation(points []models.GPSPoint, cfg *config.TimelineConfig) (*models.Stay, error)
	FinalizeTripForGap(points []models.GPSPoint, current models.GPSPoint, cfg *config.TimelineConfig) (*models.Trip, error)
	FinalizeTrip(points []models.GPSPoint, cfg *config.TimelineConfig) (*models.Trip, error)
}

// DataGapDetectionEngine applies gap detection and gap stay inference to a
// user's state before the sample enters the normal state machine.
type DataGapDetectionEngine struct {
	detector  GapDetector
	finalizer SegmentFinalizer
	inference *GapStayInference
	logger    *zap.Logger
}

// NewDataGapDetectionEngine creates the engine
func NewDataGapDetectionEngine(detector GapDetector, finalizer SegmentFinalizer, inference *GapStayInference, logger *zap.Logger) *DataGapDetectionEngine {
	if inference == nil {
		inference = NewGapStayInference(nil, logger)
	}
	return &DataGapDetectionEngine{
		detector:  detector,
		finalizer: finalizer,
		inference: inference,
		logger:    logging.OrNop(logger).Named("data_gap_engine"),
	}
}

// CheckForDataGap returns the events caused by a gap before currentPoint,
// zero to two of them in emission order. The state is only mutated once every
// collaborator call has succeeded. Updating LastProcessedPoint is left to the caller.
func (e *DataGapDetectionEngine) CheckForDataGap(currentPoint models.GPSPoint, state *models.UserState, cfg *config.TimelineConfig) ([]models.TimelineEvent, error) {
	if state.LastProcessedPoint == nil {
		return nil, nil
	}
	last := *state.LastProcessedPoint

	gap, err := e.detector.ShouldCreateDataGap(last, currentPoint, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to check data gap: %w", err)
	}
	if !gap {
		return nil, nil
	}

	gapDuration := currentPoint.Timestamp.Sub(last.Timestamp)
	plan := e.inference.TryInfer(currentPoint, state, cfg, gapDuration)

	e.logger.Debug("data gap detected",
		zap.String("userId", state.UserID),
		zap.Time("gapStart", last.Timestamp),
		zap.Time("gapEnd", currentPoint.Timestamp),
		zap.Stringer("plan", plan.Kind))

	switch plan.Kind {
	case PlanContinueExistingStay:
		return nil, nil

	case PlanReplaceWithConfirmedStay:
		state.ReplaceActivePoints(plan.StayPoints, models.ModeConfirmedStay)
		return nil, nil

	case PlanFinalizeTripAndReplaceWithConfirmedStay:
		var events []models.TimelineEvent
		if plan.HasTripToFinalize() {
			trip, err := e.finalizer.FinalizeTrip(plan.TripPoints, cfg)
			if err != nil {
				return nil, fmt.Errorf("failed to finalize trip before inferred stay: %w", err)
			}
			if trip != nil {
				events = append(events, trip)
			}
		}
		state.ReplaceActivePoints(plan.StayPoints, models.ModeConfirmedStay)
		return events, nil
	}

	return e.finalizeForGap(currentPoint, last, state, cfg)
}

// finalizeForGap closes the pending segment, emits the DataGap and resets the state
func (e *DataGapDetectionEngine) finalizeForGap(currentPoint, last models.GPSPoint, state *models.UserState, cfg *config.TimelineConfig) ([]models.TimelineEvent, error) {
	var events []models.TimelineEvent

	if state.HasActivePoints() {
		switch {
		case state.CurrentMode.IsStay():
			stay, err := e.finalizer.FinalizeStayWithoutLocation(state.CopyActivePoints(), cfg)
			if err != nil {
				return nil, fmt.Errorf("failed to finalize stay for data gap: %w", err)
			}
			if stay != nil {
				events = append(events, stay)
			}
		case state.CurrentMode == models.ModeInTrip:
			trip, err := e.finalizer.FinalizeTripForGap(state.CopyActivePoints(), currentPoint, cfg)
			if err != nil {
				return nil, fmt.Errorf("failed to finalize trip for data gap: %w", err)
			}
			if trip != nil {
				events = append(events, trip)
			}
		}
	}

	events = append(events, &models.DataGap{
		StartTime: last.Timestamp,
		EndTime:   currentPoint.Timestamp,
	})
	state.Reset()
	return events, nil
}
