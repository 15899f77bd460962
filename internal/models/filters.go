package models

// TimelineFilter represents filter parameters for querying timeline events
type TimelineFilter struct {
	UserID    string `form:"-"`
	Type      string `form:"type"`      // STAY, TRIP, DATA_GAP
	Geohash   string `form:"geohash"`   // stay cell prefix
	StartTime int64  `form:"startTime"` // Unix timestamp
	EndTime   int64  `form:"endTime"`   // Unix timestamp
	Page      int    `form:"page"`
	PageSize  int    `form:"pageSize"`
}

// Normalize applies the default page and clamps the page size.
func (f *TimelineFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 100
	}
	if f.PageSize > 1000 {
		f.PageSize = 1000
	}
}
