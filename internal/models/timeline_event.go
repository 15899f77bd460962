package models

import (
	"encoding/json"
	"time"
)

// EventType identifies a timeline event variant
type EventType string

// EventType constants
const (
	EventTypeStay    EventType = "STAY"
	EventTypeTrip    EventType = "TRIP"
	EventTypeDataGap EventType = "DATA_GAP"
)

// TimelineEvent is a finalized Stay, Trip or DataGap
type TimelineEvent interface {
	Type() EventType
	Start() time.Time
	End() time.Time
}

// Stay is a period without significant movement at one place
type Stay struct {
	StartTime  time.Time     `json:"startTime"`
	Duration   time.Duration `json:"duration"`
	Latitude   float64       `json:"latitude"`
	Longitude  float64       `json:"longitude"`
	PointCount int           `json:"pointCount"`
	Geohash    string        `json:"geohash,omitempty"`
}

func (s *Stay) Type() EventType  { return EventTypeStay }
func (s *Stay) Start() time.Time { return s.StartTime }
func (s *Stay) End() time.Time   { return s.StartTime.Add(s.Duration) }

// Trip is a period of movement between places
type Trip struct {
	StartTime      time.Time     `json:"startTime"`
	Duration       time.Duration `json:"duration"`
	DistanceMeters float64       `json:"distanceMeters"`
	StartLatitude  float64       `json:"startLatitude"`
	StartLongitude float64       `json:"startLongitude"`
	EndLatitude    float64       `json:"endLatitude"`
	EndLongitude   float64       `json:"endLongitude"`
	PointCount     int           `json:"pointCount"`
}

func (t *Trip) Type() EventType  { return EventTypeTrip }
func (t *Trip) Start() time.Time { return t.StartTime }
func (t *Trip) End() time.Time   { return t.StartTime.Add(t.Duration) }

// DataGap is a period without usable samples
type DataGap struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

func (g *DataGap) Type() EventType  { return EventTypeDataGap }
func (g *DataGap) Start() time.Time { return g.StartTime }
func (g *DataGap) End() time.Time   { return g.EndTime }

// Ensure the variants implement TimelineEvent
var (
	_ TimelineEvent = (*Stay)(nil)
	_ TimelineEvent = (*Trip)(nil)
	_ TimelineEvent = (*DataGap)(nil)
)

// TimelineEventRecord is a persisted timeline event
type TimelineEventRecord struct {
	ID        string          `json:"id" db:"id"`
	UserID    string          `json:"userId" db:"user_id"`
	Type      EventType       `json:"type" db:"event_type"`
	StartTime time.Time       `json:"startTime" db:"start_ts"`
	EndTime   time.Time       `json:"endTime" db:"end_ts"`
	Geohash   string          `json:"geohash,omitempty" db:"geohash"`
	Payload   json.RawMessage `json:"payload" db:"payload_json"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
}

// TimelineResponse represents a paginated response of timeline events
type TimelineResponse struct {
	Data       []TimelineEventRecord `json:"data"`
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"pageSize"`
	TotalPages int                   `json:"totalPages"`
}
