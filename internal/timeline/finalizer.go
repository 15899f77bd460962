package timeline

import (
	"time"

	"go.uber.org/zap"

	"github.com/jengzang/records-timeline-go/internal/config"
	"github.com/jengzang/records-timeline-go/internal/logging"
	"github.com/jengzang/records-timeline-go/internal/models"
	"github.com/jengzang/records-timeline-go/internal/spatial"
)

// Default minimum sizes of finalized segments
const (
	DefaultStaypointMinDuration = 7 * time.Minute
	DefaultTripMinDistance      = 50.0
	DefaultTripMinDuration      = 1 * time.Minute

	stayGeohashPrecision = models.StayGeohashPrecision
)

// FinalizationService builds Stay and Trip events from pending points.
// Segments below the configured minimums yield no event.
type FinalizationService struct {
	logger *zap.Logger
}

// NewFinalizationService creates the finalizer
func NewFinalizationService(logger *zap.Logger) *FinalizationService {
	return &FinalizationService{logger: logging.OrNop(logger).Named("finalizer")}
}

// FinalizeStay finalizes a stay closed by movement
func (f *FinalizationService) FinalizeStay(points []models.GPSPoint, cfg *config.TimelineConfig) (*models.Stay, error) {
	return f.buildStay(points, cfg), nil
}

// FinalizeStayWithoutLocation finalizes a stay interrupted by a data gap
func (f *FinalizationService) FinalizeStayWithoutLocation(points []models.GPSPoint, cfg *config.TimelineConfig) (*models.Stay, error) {
	return f.buildStay(points, cfg), nil
}

// FinalizeTripForGap finalizes a trip interrupted by a data gap. The trip ends
// at the last active point; current is the first sample after the gap.
func (f *FinalizationService) FinalizeTripForGap(points []models.GPSPoint, current models.GPSPoint, cfg *config.TimelineConfig) (*models.Trip, error) {
	trip := f.buildTrip(points, cfg)
	if trip == nil {
		f.logger.Debug("trip before data gap too small to record",
			zap.Int("points", len(points)),
			zap.Time("resumedAt", current.Timestamp))
	}
	return trip, nil
}

// FinalizeTrip finalizes a trip over points
func (f *FinalizationService) FinalizeTrip(points []models.GPSPoint, cfg *config.TimelineConfig) (*models.Trip, error) {
	return f.buildTrip(points, cfg), nil
}

func (f *FinalizationService) buildStay(points []models.GPSPoint, cfg *config.TimelineConfig) *models.Stay {
	if len(points) == 0 || !points[0].HasTimestamp() {
		return nil
	}

	duration := models.TimeSpan(points)
	if duration < staypointMinDuration(cfg) {
		f.logger.Debug("stay too short to record",
			zap.Int("points", len(points)),
			zap.Duration("duration", duration))
		return nil
	}

	centroid, _ := spatial.Centroid(models.Locations(points))
	return &models.Stay{
		StartTime:  points[0].Timestamp,
		Duration:   duration,
		Latitude:   centroid.Lat,
		Longitude:  centroid.Lon,
		PointCount: len(points),
		Geohash:    spatial.Geohash(centroid, stayGeohashPrecision),
	}
}

func (f *FinalizationService) buildTrip(points []models.GPSPoint, cfg *config.TimelineConfig) *models.Trip {
	if len(points) < 2 || !points[0].HasTimestamp() {
		return nil
	}

	distance := spatial.PathLength(models.Locations(points))
	if !(distance >= tripMinDistance(cfg)) {
		return nil
	}

	duration := models.TimeSpan(points)
	if duration < tripMinDuration(cfg) {
		return nil
	}

	first, last := points[0], points[len(points)-1]
	return &models.Trip{
		StartTime:      first.Timestamp,
		Duration:       duration,
		DistanceMeters: distance,
		StartLatitude:  first.Latitude,
		StartLongitude: first.Longitude,
		EndLatitude:    last.Latitude,
		EndLongitude:   last.Longitude,
		PointCount:     len(points),
	}
}

func staypointMinDuration(cfg *config.TimelineConfig) time.Duration {
	if cfg != nil && cfg.StaypointMinDurationMinutes != nil {
		return time.Duration(*cfg.StaypointMinDurationMinutes) * time.Minute
	}
	return DefaultStaypointMinDuration
}

func tripMinDistance(cfg *config.TimelineConfig) float64 {
	if cfg != nil && cfg.TripMinDistanceMeters != nil {
		return float64(*cfg.TripMinDistanceMeters)
	}
	return DefaultTripMinDistance
}

func tripMinDuration(cfg *config.TimelineConfig) time.Duration {
	if cfg != nil && cfg.TripMinDurationMinutes != nil {
		return time.Duration(*cfg.TripMinDurationMinutes) * time.Minute
	}
	return DefaultTripMinDuration
}

var (
	_ StreamFinalizer = (*FinalizationService)(nil)
	_ GapDetector     = (*DataGapService)(nil)
)
