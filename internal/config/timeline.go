package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// TimelineConfig holds the thresholds of the timeline processor.
// Every field is optional; readers substitute their own default for nil.
type TimelineConfig struct {
	StaypointRadiusMeters       *int     `hcl:"staypoint_radius_meters,optional" json:"staypointRadiusMeters,omitempty"`
	StaypointVelocityThreshold  *float64 `hcl:"staypoint_velocity_threshold,optional" json:"staypointVelocityThreshold,omitempty"`
	StaypointMinDurationMinutes *int     `hcl:"staypoint_min_duration_minutes,optional" json:"staypointMinDurationMinutes,omitempty"`

	TripArrivalDetectionMinDurationSeconds *int `hcl:"trip_arrival_detection_min_duration_seconds,optional" json:"tripArrivalDetectionMinDurationSeconds,omitempty"`
	TripSustainedStopMinDurationSeconds    *int `hcl:"trip_sustained_stop_min_duration_seconds,optional" json:"tripSustainedStopMinDurationSeconds,omitempty"`
	TripArrivalMinPoints                   *int `hcl:"trip_arrival_min_points,optional" json:"tripArrivalMinPoints,omitempty"`
	TripMinDistanceMeters                  *int `hcl:"trip_min_distance_meters,optional" json:"tripMinDistanceMeters,omitempty"`
	TripMinDurationMinutes                 *int `hcl:"trip_min_duration_minutes,optional" json:"tripMinDurationMinutes,omitempty"`

	DataGapThresholdSeconds   *int `hcl:"data_gap_threshold_seconds,optional" json:"dataGapThresholdSeconds,omitempty"`
	DataGapMinDurationSeconds *int `hcl:"data_gap_min_duration_seconds,optional" json:"dataGapMinDurationSeconds,omitempty"`

	GapStayInferenceEnabled     *bool `hcl:"gap_stay_inference_enabled,optional" json:"gapStayInferenceEnabled,omitempty"`
	GapStayInferenceMaxGapHours *int  `hcl:"gap_stay_inference_max_gap_hours,optional" json:"gapStayInferenceMaxGapHours,omitempty"`
}

// Int returns a pointer to v, for building a TimelineConfig in code.
func Int(v int) *int { return &v }

// Float returns a pointer to v
func Float(v float64) *float64 { return &v }

// Bool returns a pointer to v
func Bool(v bool) *bool { return &v }

// ParseTimelineConfig decodes HCL source into a TimelineConfig
func ParseTimelineConfig(src []byte, filename string) (*TimelineConfig, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse timeline config: %s", diags.Error())
	}

	var cfg TimelineConfig
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode timeline config: %s", diags.Error())
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadTimelineConfig reads an HCL file. An empty path yields an all-defaults config.
func LoadTimelineConfig(path string) (*TimelineConfig, error) {
	if path == "" {
		return &TimelineConfig{}, nil
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timeline config %s: %w", path, err)
	}
	return ParseTimelineConfig(src, path)
}

// Validate rejects values no reader could interpret.
func (c *TimelineConfig) Validate() error {
	positive := map[string]*int{
		"staypoint_radius_meters":    c.StaypointRadiusMeters,
		"trip_arrival_min_points":    c.TripArrivalMinPoints,
		"data_gap_threshold_seconds": c.DataGapThresholdSeconds,
	}
	for name, v := range positive {
		if v != nil && *v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, *v)
		}
	}
	if c.StaypointVelocityThreshold != nil && *c.StaypointVelocityThreshold < 0 {
		return fmt.Errorf("staypoint_velocity_threshold must not be negative, got %g", *c.StaypointVelocityThreshold)
	}
	return nil
}
