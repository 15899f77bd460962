package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jengzang/records-timeline-go/internal/models"
)

// TimelineEventRepository handles database operations for timeline events
type TimelineEventRepository struct {
	db Querier
}

// NewTimelineEventRepository creates a new timeline event repository
func NewTimelineEventRepository(db Querier) *TimelineEventRepository {
	return &TimelineEventRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *TimelineEventRepository) WithTx(tx *sql.Tx) *TimelineEventRepository {
	return &TimelineEventRepository{db: tx}
}

// InsertEvents stores events in emission order and returns the stored records
func (r *TimelineEventRepository) InsertEvents(ctx context.Context, userID string, events []models.TimelineEvent) ([]models.TimelineEventRecord, error) {
	query := `INSERT INTO timeline_events (id, user_id, event_type, start_ts, end_ts, geohash, payload_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	now := time.Now().UTC()
	records := make([]models.TimelineEventRecord, 0, len(events))
	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s event: %w", event.Type(), err)
		}

		record := models.TimelineEventRecord{
			ID:        uuid.NewString(),
			UserID:    userID,
			Type:      event.Type(),
			StartTime: event.Start().UTC(),
			EndTime:   event.End().UTC(),
			Payload:   payload,
			CreatedAt: now,
		}
		if stay, ok := event.(*models.Stay); ok {
			record.Geohash = stay.Geohash
		}

		_, err = r.db.ExecContext(ctx, query,
			record.ID, record.UserID, string(record.Type),
			record.StartTime.UnixMilli(), record.EndTime.UnixMilli(),
			sql.NullString{String: record.Geohash, Valid: record.Geohash != ""},
			string(payload), now.UnixMilli())
		if err != nil {
			return nil, fmt.Errorf("failed to insert timeline event: %w", err)
		}
		records = append(records, record)
	}

	return records, nil
}

// GetEvents retrieves a user's events with filtering and pagination.
// StartTime and EndTime in the filter are unix seconds.
func (r *TimelineEventRepository) GetEvents(ctx context.Context, filter models.TimelineFilter) ([]models.TimelineEventRecord, int64, error) {
	where, args := eventConditions(filter)

	var total int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM timeline_events"+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count timeline events: %w", err)
	}

	filter.Normalize()
	offset := (filter.Page - 1) * filter.PageSize

	records, err := r.queryEvents(ctx, where+" ORDER BY start_ts ASC, rowid ASC LIMIT ? OFFSET ?", append(args, filter.PageSize, offset)...)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// ListEvents retrieves every event matching the filter, ignoring pagination
func (r *TimelineEventRepository) ListEvents(ctx context.Context, filter models.TimelineFilter) ([]models.TimelineEventRecord, error) {
	where, args := eventConditions(filter)
	return r.queryEvents(ctx, where+" ORDER BY start_ts ASC, rowid ASC", args...)
}

// ListPlaces groups a user's stays by the first filter.Precision characters
// of their geohash, most visited first. The centroid is the mean of the stay
// centroids in the cell.
func (r *TimelineEventRepository) ListPlaces(ctx context.Context, filter models.PlaceFilter) ([]models.Place, error) {
	filter.Normalize()
	where, args := eventConditions(models.TimelineFilter{
		UserID:    filter.UserID,
		Type:      string(models.EventTypeStay),
		StartTime: filter.StartTime,
		EndTime:   filter.EndTime,
	})

	query := `SELECT substr(geohash, 1, ?) AS cell,
			COUNT(*),
			SUM(end_ts - start_ts),
			MIN(start_ts),
			MAX(start_ts),
			AVG(json_extract(payload_json, '$.latitude')),
			AVG(json_extract(payload_json, '$.longitude'))
		FROM timeline_events` + where + ` AND geohash IS NOT NULL
		GROUP BY cell
		ORDER BY COUNT(*) DESC, MAX(start_ts) DESC
		LIMIT ?`

	queryArgs := append([]interface{}{filter.Precision}, args...)
	rows, err := r.db.QueryContext(ctx, query, append(queryArgs, filter.Limit)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query places: %w", err)
	}
	defer rows.Close()

	places := []models.Place{}
	for rows.Next() {
		var (
			place                       models.Place
			durationMs, firstMs, lastMs int64
		)
		if err := rows.Scan(&place.Geohash, &place.VisitCount, &durationMs, &firstMs, &lastMs, &place.Latitude, &place.Longitude); err != nil {
			return nil, fmt.Errorf("failed to scan place: %w", err)
		}
		place.TotalDurationSeconds = float64(durationMs) / 1000
		place.FirstVisit = time.UnixMilli(firstMs).UTC()
		place.LastVisit = time.UnixMilli(lastMs).UTC()
		places = append(places, place)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate places: %w", err)
	}

	return places, nil
}

func eventConditions(filter models.TimelineFilter) (string, []interface{}) {
	conditions := []string{"user_id = ?"}
	args := []interface{}{filter.UserID}

	if filter.Type != "" {
		conditions = append(conditions, "event_type = ?")
		args = append(args, strings.ToUpper(filter.Type))
	}
	if filter.Geohash != "" {
		conditions = append(conditions, "geohash LIKE ?")
		args = append(args, strings.ToLower(filter.Geohash)+"%")
	}
	if filter.StartTime > 0 {
		conditions = append(conditions, "end_ts >= ?")
		args = append(args, filter.StartTime*1000)
	}
	if filter.EndTime > 0 {
		conditions = append(conditions, "start_ts <= ?")
		args = append(args, filter.EndTime*1000)
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func (r *TimelineEventRepository) queryEvents(ctx context.Context, tail string, args ...interface{}) ([]models.TimelineEventRecord, error) {
	query := `SELECT id, user_id, event_type, start_ts, end_ts, geohash, payload_json, created_at
		FROM timeline_events` + tail

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query timeline events: %w", err)
	}
	defer rows.Close()

	records := []models.TimelineEventRecord{}
	for rows.Next() {
		var (
			rec                       models.TimelineEventRecord
			eventType, payload        string
			geohash                   sql.NullString
			startMs, endMs, createdMs int64
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &eventType, &startMs, &endMs, &geohash, &payload, &createdMs); err != nil {
			return nil, fmt.Errorf("failed to scan timeline event: %w", err)
		}
		rec.Type = models.EventType(eventType)
		rec.Geohash = geohash.String
		rec.StartTime = time.UnixMilli(startMs).UTC()
		rec.EndTime = time.UnixMilli(endMs).UTC()
		rec.CreatedAt = time.UnixMilli(createdMs).UTC()
		rec.Payload = json.RawMessage(payload)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate timeline events: %w", err)
	}

	return records, nil
}
