package replay

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/records-timeline-go/internal/config"
	"github.com/jengzang/records-timeline-go/internal/models"
	"github.com/jengzang/records-timeline-go/internal/timeline"
)

func TestReadPoints(t *testing.T) {
	src := `timestamp,lat,lon,speed,accuracy
# first sample
2024-01-01T08:00:00Z,40.7128,-74.0060,0.5,12
1704096060, 40.7129, -74.0061, , 8
`
	points, err := ReadPoints(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.Equal(t, time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC), points[0].Timestamp)
	assert.Equal(t, 0.5, points[0].Speed)
	assert.Equal(t, time.Date(2024, 1, 1, 8, 1, 0, 0, time.UTC), points[1].Timestamp)
	assert.Equal(t, 40.7129, points[1].Latitude)
	assert.Equal(t, 0.0, points[1].Speed)
	assert.Equal(t, 8.0, points[1].Accuracy)
}

func TestReadPoints_Invalid(t *testing.T) {
	_, err := ReadPoints(strings.NewReader("yesterday,1,2,0,0\n"))
	assert.ErrorContains(t, err, "invalid timestamp")

	_, err = ReadPoints(strings.NewReader("2024-01-01T08:00:00Z,north,2,0,0\n"))
	assert.ErrorContains(t, err, "invalid lat")

	_, err = ReadPoints(strings.NewReader("2024-01-01T08:00:00Z,1,2\n"))
	assert.Error(t, err)

	for _, row := range []string{
		"2024-01-01T08:00:00Z,NaN,NaN,0,5",
		"2024-01-01T08:00:00Z,200,2,0,5",
		"2024-01-01T08:00:00Z,1,500,0,5",
		"2024-01-01T08:00:00Z,1,2,-1,5",
		"2024-01-01T08:00:00Z,1,2,Inf,5",
	} {
		_, err := ReadPoints(strings.NewReader(row + "\n"))
		assert.ErrorIs(t, err, models.ErrInvalidPoint, row)
	}
}

func TestRun(t *testing.T) {
	var csv strings.Builder
	start := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i <= 10; i++ {
		fmt.Fprintf(&csv, "%s,40.7128,-74.0060,0,10\n", start.Add(time.Duration(i)*time.Minute).Format(time.RFC3339))
	}
	// back after a twelve hour silence, two kilometres away
	for i := 0; i <= 10; i++ {
		fmt.Fprintf(&csv, "%s,40.7308,-74.0060,0,10\n", start.Add(12*time.Hour+time.Duration(i)*time.Minute).Format(time.RFC3339))
	}

	points, err := ReadPoints(strings.NewReader(csv.String()))
	require.NoError(t, err)

	processor := timeline.NewStreamProcessor(timeline.NewDataGapService(), timeline.NewFinalizationService(nil), nil)
	var out bytes.Buffer
	written, err := Run(processor, "user-1", points, &config.TimelineConfig{}, &out)
	require.NoError(t, err)
	assert.Equal(t, 3, written)

	var types []string
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		var line struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		types = append(types, line.Type)
	}
	assert.Equal(t, []string{"STAY", "DATA_GAP", "STAY"}, types)
}
