package timeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/jengzang/records-timeline-go/internal/config"
	"github.com/jengzang/records-timeline-go/internal/models"
)

// Default data gap thresholds
const (
	DefaultDataGapThreshold   = 3 * time.Hour
	DefaultDataGapMinDuration = 30 * time.Minute
)

// ErrOutOfOrderPoint is returned when a sample is older than the last processed one
var ErrOutOfOrderPoint = errors.New("gps point is older than the last processed point")

// DataGapService is the GapDetector backed by the data gap thresholds
type DataGapService struct{}

// NewDataGapService creates the gap detector
func NewDataGapService() *DataGapService {
	return &DataGapService{}
}

// ShouldCreateDataGap reports whether the time between last and current is a gap.
// The difference must exceed the threshold and reach the minimum gap duration.
func (s *DataGapService) ShouldCreateDataGap(last, current models.GPSPoint, cfg *config.TimelineConfig) (bool, error) {
	if !last.HasTimestamp() || !current.HasTimestamp() {
		return false, nil
	}

	diff := current.Timestamp.Sub(last.Timestamp)
	if diff < 0 {
		return false, fmt.Errorf("%w: %s before %s", ErrOutOfOrderPoint,
			current.Timestamp.Format(time.RFC3339), last.Timestamp.Format(time.RFC3339))
	}

	return diff > dataGapThreshold(cfg) && diff >= dataGapMinDuration(cfg), nil
}

func dataGapThreshold(cfg *config.TimelineConfig) time.Duration {
	if cfg != nil && cfg.DataGapThresholdSeconds != nil {
		return time.Duration(*cfg.DataGapThresholdSeconds) * time.Second
	}
	return DefaultDataGapThreshold
}

func dataGapMinDuration(cfg *config.TimelineConfig) time.Duration {
	if cfg != nil && cfg.DataGapMinDurationSeconds != nil {
		return time.Duration(*cfg.DataGapMinDurationSeconds) * time.Second
	}
	return DefaultDataGapMinDuration
}
