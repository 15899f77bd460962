package timeline

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/jengzang/records-timeline-go/internal/config"
	"github.com/jengzang/records-timeline-go/internal/logging"
	"github.com/jengzang/records-timeline-go/internal/models"
)

// StreamFinalizer is the SegmentFinalizer used by the normal state machine
type StreamFinalizer interface {
	SegmentFinalizer
	FinalizeStay(points []models.GPSPoint, cfg *config.TimelineConfig) (*models.Stay, error)
}

// StreamProcessor advances one user's state by one sample at a time.
// Samples of a user must arrive in non-decreasing timestamp order.
type StreamProcessor struct {
	gaps       *DataGapDetectionEngine
	heuristics *TripStopHeuristics
	finalizer  StreamFinalizer
	logger     *zap.Logger
}

// NewStreamProcessor wires the processor with its gap engine
func NewStreamProcessor(detector GapDetector, finalizer StreamFinalizer, logger *zap.Logger) *StreamProcessor {
	heuristics := NewTripStopHeuristics()
	inference := NewGapStayInference(heuristics, logger)
	return &StreamProcessor{
		gaps:       NewDataGapDetectionEngine(detector, finalizer, inference, logger),
		heuristics: heuristics,
		finalizer:  finalizer,
		logger:     logging.OrNop(logger).Named("stream_processor"),
	}
}

// ProcessPoint consumes point and returns the events it finalized, in order.
// On error the state may be partially advanced and must be discarded.
func (p *StreamProcessor) ProcessPoint(point models.GPSPoint, state *models.UserState, cfg *config.TimelineConfig) ([]models.TimelineEvent, error) {
	if last := state.LastProcessedPoint; last != nil && last.HasTimestamp() && point.HasTimestamp() {
		if point.Timestamp.Before(last.Timestamp) {
			return nil, fmt.Errorf("%w: user %s", ErrOutOfOrderPoint, state.UserID)
		}
	}

	events, err := p.gaps.CheckForDataGap(point, state, cfg)
	if err != nil {
		return nil, err
	}

	more, err := p.advance(point, state, cfg)
	if err != nil {
		return nil, err
	}

	state.SetLastProcessedPoint(point)
	return append(events, more...), nil
}

// Flush finalizes the pending segment at the end of a stream
func (p *StreamProcessor) Flush(state *models.UserState, cfg *config.TimelineConfig) ([]models.TimelineEvent, error) {
	if !state.HasActivePoints() {
		state.Reset()
		return nil, nil
	}

	var events []models.TimelineEvent
	points := state.CopyActivePoints()

	switch {
	case state.CurrentMode.IsStay():
		stay, err := p.finalizer.FinalizeStay(points, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to flush stay: %w", err)
		}
		if stay != nil {
			events = append(events, stay)
		}
	case state.CurrentMode == models.ModeInTrip:
		trip, err := p.finalizer.FinalizeTrip(points, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to flush trip: %w", err)
		}
		if trip != nil {
			events = append(events, trip)
		}
	}

	state.Reset()
	return events, nil
}

func (p *StreamProcessor) advance(point models.GPSPoint, state *models.UserState, cfg *config.TimelineConfig) ([]models.TimelineEvent, error) {
	if state.CurrentMode == models.ModeUnknown || !state.HasActivePoints() {
		state.ReplaceActivePoints([]models.GPSPoint{point}, models.ModePotentialStay)
		return nil, nil
	}

	if state.CurrentMode == models.ModeInTrip {
		return p.advanceTrip(point, state, cfg)
	}
	return p.advanceStay(point, state, cfg)
}

func (p *StreamProcessor) advanceStay(point models.GPSPoint, state *models.UserState, cfg *config.TimelineConfig) ([]models.TimelineEvent, error) {
	centroid, _ := state.Centroid()
	radius := float64(p.heuristics.StayRadiusMeters(cfg))

	if centroid.DistanceTo(point) <= radius {
		state.AddActivePoint(point)
		if state.CurrentMode == models.ModePotentialStay && models.TimeSpan(state.ActivePoints) >= staypointMinDuration(cfg) {
			state.CurrentMode = models.ModeConfirmedStay
			p.logger.Debug("stay confirmed",
				zap.String("userId", state.UserID),
				zap.Int("points", len(state.ActivePoints)))
		}
		return nil, nil
	}

	if state.CurrentMode == models.ModePotentialStay {
		state.AddActivePoint(point)
		state.CurrentMode = models.ModeInTrip
		return nil, nil
	}

	stay, err := p.finalizer.FinalizeStay(state.CopyActivePoints(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to finalize stay: %w", err)
	}

	last, _ := state.LastActivePoint()
	state.ReplaceActivePoints([]models.GPSPoint{last, point}, models.ModeInTrip)

	if stay == nil {
		return nil, nil
	}
	return []models.TimelineEvent{stay}, nil
}

func (p *StreamProcessor) advanceTrip(point models.GPSPoint, state *models.UserState, cfg *config.TimelineConfig) ([]models.TimelineEvent, error) {
	points := append(state.CopyActivePoints(), point)

	detection := p.heuristics.DetectTripStopFromRecentWindow(points, cfg)
	if !detection.StopDetected {
		state.ReplaceActivePoints(points, models.ModeInTrip)
		return nil, nil
	}

	start := detection.StoppedClusterStartIndex
	trip, err := p.finalizer.FinalizeTrip(points[:start+1], cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to finalize trip: %w", err)
	}

	state.ReplaceActivePoints(points[start:], models.ModeConfirmedStay)
	p.logger.Debug("trip stop detected",
		zap.String("userId", state.UserID),
		zap.Int("clusterStart", start),
		zap.Int("clusterPoints", len(points)-start))

	if trip == nil {
		return nil, nil
	}
	return []models.TimelineEvent{trip}, nil
}
