package models

// TypeSummary aggregates the events of one type
type TypeSummary struct {
	Count                 int     `json:"count"`
	TotalDurationSeconds  float64 `json:"totalDurationSeconds"`
	MeanDurationSeconds   float64 `json:"meanDurationSeconds"`
	MedianDurationSeconds float64 `json:"medianDurationSeconds"`
	P90DurationSeconds    float64 `json:"p90DurationSeconds"`
	TotalDistanceMeters   float64 `json:"totalDistanceMeters,omitempty"`
}

// TimelineSummary aggregates a user's timeline over a time range
type TimelineSummary struct {
	UserID    string                     `json:"userId"`
	StartTime int64                      `json:"startTime,omitempty"`
	EndTime   int64                      `json:"endTime,omitempty"`
	ByType    map[EventType]*TypeSummary `json:"byType"`
}
