package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/jengzang/records-timeline-go/internal/config"
	"github.com/jengzang/records-timeline-go/internal/database"
	"github.com/jengzang/records-timeline-go/internal/logging"
	"github.com/jengzang/records-timeline-go/internal/models"
	"github.com/jengzang/records-timeline-go/internal/repository"
	"github.com/jengzang/records-timeline-go/internal/timeline"
)

// ErrOutOfOrderBatch is returned when a batch is not in timestamp order or
// starts before the user's last processed point
var ErrOutOfOrderBatch = errors.New("gps points are out of order")

// IngestResult is the outcome of one ingestion request
type IngestResult struct {
	Processed int                          `json:"processed"`
	Events    []models.TimelineEventRecord `json:"events"`
	Mode      models.ProcessorMode         `json:"mode"`
}

// TimelineService runs the stream processor over persisted user state
type TimelineService struct {
	db        *sql.DB
	states    *repository.UserStateRepository
	events    *repository.TimelineEventRepository
	processor *timeline.StreamProcessor
	cfg       *config.TimelineConfig
	locks     *userLocks
	logger    *zap.Logger
}

// NewTimelineService creates a new timeline service
func NewTimelineService(db *sql.DB, processor *timeline.StreamProcessor, cfg *config.TimelineConfig, logger *zap.Logger) *TimelineService {
	if cfg == nil {
		cfg = &config.TimelineConfig{}
	}
	return &TimelineService{
		db:        db,
		states:    repository.NewUserStateRepository(db),
		events:    repository.NewTimelineEventRepository(db),
		processor: processor,
		cfg:       cfg,
		locks:     newUserLocks(),
		logger:    logging.OrNop(logger).Named("timeline_service"),
	}
}

// IngestPoints processes a batch of samples for a user. The whole batch is
// applied in one transaction; an out of order batch is rejected untouched.
func (s *TimelineService) IngestPoints(ctx context.Context, userID string, points []models.GPSPoint) (*IngestResult, error) {
	if !sort.SliceIsSorted(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	}) {
		return nil, fmt.Errorf("%w: batch is not sorted by timestamp", ErrOutOfOrderBatch)
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	result := &IngestResult{}
	err := database.Transaction(ctx, s.db, func(tx *sql.Tx) error {
		states := s.states.WithTx(tx)
		state, err := states.GetOrNew(ctx, userID)
		if err != nil {
			return err
		}

		if last := state.LastProcessedPoint; last != nil && len(points) > 0 && points[0].Timestamp.Before(last.Timestamp) {
			return fmt.Errorf("%w: batch starts before last processed point %s", ErrOutOfOrderBatch, last.Timestamp)
		}

		var emitted []models.TimelineEvent
		for _, point := range points {
			events, err := s.processor.ProcessPoint(point, state, s.cfg)
			if err != nil {
				if errors.Is(err, timeline.ErrOutOfOrderPoint) {
					return fmt.Errorf("%w: %v", ErrOutOfOrderBatch, err)
				}
				return fmt.Errorf("failed to process point: %w", err)
			}
			emitted = append(emitted, events...)
		}

		records, err := s.events.WithTx(tx).InsertEvents(ctx, userID, emitted)
		if err != nil {
			return err
		}
		if err := states.Save(ctx, state); err != nil {
			return err
		}

		result.Processed = len(points)
		result.Events = records
		result.Mode = state.CurrentMode
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("points ingested",
		zap.String("userId", userID),
		zap.Int("points", result.Processed),
		zap.Int("events", len(result.Events)),
		zap.String("mode", string(result.Mode)))
	return result, nil
}

// Flush finalizes a user's pending segment
func (s *TimelineService) Flush(ctx context.Context, userID string) ([]models.TimelineEventRecord, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	var records []models.TimelineEventRecord
	err := database.Transaction(ctx, s.db, func(tx *sql.Tx) error {
		states := s.states.WithTx(tx)
		state, err := states.Get(ctx, userID)
		if err != nil {
			return err
		}

		events, err := s.processor.Flush(state, s.cfg)
		if err != nil {
			return err
		}

		records, err = s.events.WithTx(tx).InsertEvents(ctx, userID, events)
		if err != nil {
			return err
		}
		return states.Save(ctx, state)
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// GetTimeline retrieves stored events with filtering and pagination
func (s *TimelineService) GetTimeline(ctx context.Context, filter models.TimelineFilter) (*models.TimelineResponse, error) {
	filter.Normalize()
	records, total, err := s.events.GetEvents(ctx, filter)
	if err != nil {
		return nil, err
	}

	totalPages := int(total) / filter.PageSize
	if int(total)%filter.PageSize > 0 {
		totalPages++
	}

	return &models.TimelineResponse{
		Data:       records,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: totalPages,
	}, nil
}

// GetPlaces groups the user's stays into places by geohash cell
func (s *TimelineService) GetPlaces(ctx context.Context, filter models.PlaceFilter) ([]models.Place, error) {
	filter.Normalize()
	return s.events.ListPlaces(ctx, filter)
}

// GetUserState returns the stored state of a user
func (s *TimelineService) GetUserState(ctx context.Context, userID string) (*models.UserState, error) {
	return s.states.Get(ctx, userID)
}
