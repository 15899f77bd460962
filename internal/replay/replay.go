// Package replay feeds recorded samples through the stream processor.
package replay

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jengzang/records-timeline-go/internal/config"
	"github.com/jengzang/records-timeline-go/internal/models"
	"github.com/jengzang/records-timeline-go/internal/timeline"
)

var header = []string{"timestamp", "lat", "lon", "speed", "accuracy"}

// ReadPoints parses timestamp,lat,lon,speed,accuracy rows. The header row is
// optional; timestamps are RFC3339 or unix seconds.
func ReadPoints(r io.Reader) ([]models.GPSPoint, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(header)
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	var points []models.GPSPoint
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		if line == 1 && strings.EqualFold(record[0], header[0]) {
			continue
		}

		point, err := parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", line, err)
		}
		points = append(points, point)
	}
	return points, nil
}

func parseRecord(record []string) (models.GPSPoint, error) {
	ts, err := parseTimestamp(record[0])
	if err != nil {
		return models.GPSPoint{}, err
	}

	values := make([]float64, 4)
	for i, field := range record[1:] {
		if field == "" {
			continue
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return models.GPSPoint{}, fmt.Errorf("invalid %s %q: %w", header[i+1], field, err)
		}
		values[i] = v
	}

	point := models.GPSPoint{
		Timestamp: ts,
		Latitude:  values[0],
		Longitude: values[1],
		Speed:     values[2],
		Accuracy:  values[3],
	}
	if err := point.Validate(); err != nil {
		return models.GPSPoint{}, err
	}
	return point, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return ts.UTC(), nil
}

// eventLine is one JSON line of replay output
type eventLine struct {
	Type  models.EventType     `json:"type"`
	Start time.Time            `json:"start"`
	End   time.Time            `json:"end"`
	Event models.TimelineEvent `json:"event"`
}

// Run processes points for userID, flushes the tail and writes every event as a JSON line.
// It returns the number of events written.
func Run(processor *timeline.StreamProcessor, userID string, points []models.GPSPoint, cfg *config.TimelineConfig, w io.Writer) (int, error) {
	enc := json.NewEncoder(w)
	state := models.NewUserState(userID)
	written := 0

	emit := func(events []models.TimelineEvent) error {
		for _, e := range events {
			if err := enc.Encode(eventLine{Type: e.Type(), Start: e.Start(), End: e.End(), Event: e}); err != nil {
				return fmt.Errorf("failed to write event: %w", err)
			}
			written++
		}
		return nil
	}

	for i, point := range points {
		events, err := processor.ProcessPoint(point, state, cfg)
		if err != nil {
			return written, fmt.Errorf("point %d: %w", i, err)
		}
		if err := emit(events); err != nil {
			return written, err
		}
	}

	events, err := processor.Flush(state, cfg)
	if err != nil {
		return written, err
	}
	return written, emit(events)
}
