package models

import "time"

// StayGeohashPrecision is the geohash length stored with every stay
const StayGeohashPrecision = 7

// PlaceFilter selects the stays grouped into places
type PlaceFilter struct {
	UserID    string `form:"-"`
	Precision int    `form:"precision" binding:"omitempty,min=1,max=7"` // geohash characters per place
	StartTime int64  `form:"startTime"`                                 // Unix timestamp
	EndTime   int64  `form:"endTime"`                                   // Unix timestamp
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=500"`
}

// Normalize applies the default precision and limit.
func (f *PlaceFilter) Normalize() {
	if f.Precision < 1 || f.Precision > StayGeohashPrecision {
		f.Precision = 6
	}
	if f.Limit < 1 {
		f.Limit = 50
	}
	if f.Limit > 500 {
		f.Limit = 500
	}
}

// Place aggregates the stays recorded inside one geohash cell
type Place struct {
	Geohash              string    `json:"geohash"`
	VisitCount           int64     `json:"visitCount"`
	TotalDurationSeconds float64   `json:"totalDurationSeconds"`
	FirstVisit           time.Time `json:"firstVisit"`
	LastVisit            time.Time `json:"lastVisit"`
	Latitude             float64   `json:"latitude"`
	Longitude            float64   `json:"longitude"`
}
