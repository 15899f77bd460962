package models

import (
	"github.com/jengzang/records-timeline-go/internal/spatial"
)

// UserState is the mutable tracking buffer of one user's sample stream.
// It has a single owner at a time and is never shared between goroutines.
//
// ActivePoints is the pending, not yet finalized segment in arrival order.
// It is empty only when CurrentMode is ModeUnknown.
type UserState struct {
	UserID             string        `json:"userId"`
	CurrentMode        ProcessorMode `json:"currentMode"`
	ActivePoints       []GPSPoint    `json:"activePoints"`
	LastProcessedPoint *GPSPoint     `json:"lastProcessedPoint,omitempty"`
}

// NewUserState returns an empty state in ModeUnknown.
func NewUserState(userID string) *UserState {
	return &UserState{
		UserID:      userID,
		CurrentMode: ModeUnknown,
	}
}

// HasActivePoints reports whether a pending segment exists
func (s *UserState) HasActivePoints() bool {
	return len(s.ActivePoints) > 0
}

// AddActivePoint appends a sample to the pending segment
func (s *UserState) AddActivePoint(p GPSPoint) {
	s.ActivePoints = append(s.ActivePoints, p)
}

// CopyActivePoints returns a copy callers may slice freely.
func (s *UserState) CopyActivePoints() []GPSPoint {
	out := make([]GPSPoint, len(s.ActivePoints))
	copy(out, s.ActivePoints)
	return out
}

// LastActivePoint returns the newest pending sample.
func (s *UserState) LastActivePoint() (GPSPoint, bool) {
	if len(s.ActivePoints) == 0 {
		return GPSPoint{}, false
	}
	return s.ActivePoints[len(s.ActivePoints)-1], true
}

// ReplaceActivePoints swaps the pending segment and sets the mode.
func (s *UserState) ReplaceActivePoints(points []GPSPoint, mode ProcessorMode) {
	s.ActivePoints = append([]GPSPoint(nil), points...)
	s.CurrentMode = mode
}

// SetLastProcessedPoint records p as the newest consumed sample.
func (s *UserState) SetLastProcessedPoint(p GPSPoint) {
	s.LastProcessedPoint = &p
}

// Reset drops the pending segment. LastProcessedPoint is kept.
func (s *UserState) Reset() {
	s.CurrentMode = ModeUnknown
	s.ActivePoints = nil
}

// Centroid is the mean latitude/longitude of the active points.
func (s *UserState) Centroid() (GPSPoint, bool) {
	c, ok := spatial.Centroid(Locations(s.ActivePoints))
	if !ok {
		return GPSPoint{}, false
	}
	return GPSPoint{Latitude: c.Lat, Longitude: c.Lon}, true
}
