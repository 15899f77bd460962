package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jengzang/records-timeline-go/internal/models"
	"github.com/jengzang/records-timeline-go/internal/stats"
)

// GetSummary aggregates the stored events matching filter by type.
// Paging fields of the filter are ignored.
func (s *TimelineService) GetSummary(ctx context.Context, filter models.TimelineFilter) (*models.TimelineSummary, error) {
	records, err := s.events.ListEvents(ctx, filter)
	if err != nil {
		return nil, err
	}

	durations := make(map[models.EventType][]float64)
	summary := &models.TimelineSummary{
		UserID:    filter.UserID,
		StartTime: filter.StartTime,
		EndTime:   filter.EndTime,
		ByType:    make(map[models.EventType]*models.TypeSummary),
	}

	for _, rec := range records {
		ts, ok := summary.ByType[rec.Type]
		if !ok {
			ts = &models.TypeSummary{}
			summary.ByType[rec.Type] = ts
		}
		ts.Count++
		durations[rec.Type] = append(durations[rec.Type], rec.EndTime.Sub(rec.StartTime).Seconds())

		if rec.Type == models.EventTypeTrip {
			var trip models.Trip
			if err := json.Unmarshal(rec.Payload, &trip); err != nil {
				return nil, fmt.Errorf("failed to decode trip %s: %w", rec.ID, err)
			}
			ts.TotalDistanceMeters += trip.DistanceMeters
		}
	}

	for eventType, values := range durations {
		ts := summary.ByType[eventType]
		ts.TotalDurationSeconds = stats.Sum(values)
		ts.MeanDurationSeconds = stats.Mean(values)
		p := stats.Percentiles(values, 50, 90)
		ts.MedianDurationSeconds, ts.P90DurationSeconds = p[0], p[1]
	}

	return summary, nil
}
