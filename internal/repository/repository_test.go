package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/records-timeline-go/internal/database"
	"github.com/jengzang/records-timeline-go/internal/models"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(database.Config{Path: database.MemoryPath})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sample(ts string, lat, lon float64) models.GPSPoint {
	parsed, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		panic(err)
	}
	return models.GPSPoint{Timestamp: parsed, Latitude: lat, Longitude: lon, Speed: 0.4, Accuracy: 12}
}

func TestUserStateRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewUserStateRepository(openTestDB(t))

	_, err := repo.Get(ctx, "user-1")
	assert.ErrorIs(t, err, ErrStateNotFound)

	fresh, err := repo.GetOrNew(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.ModeUnknown, fresh.CurrentMode)

	state := models.NewUserState("user-1")
	state.ReplaceActivePoints([]models.GPSPoint{
		sample("2024-01-01T08:00:00Z", 40.7128, -74.0060),
		sample("2024-01-01T08:05:00Z", 40.7129, -74.0061),
	}, models.ModeConfirmedStay)
	state.SetLastProcessedPoint(state.ActivePoints[1])
	require.NoError(t, repo.Save(ctx, state))

	loaded, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.ModeConfirmedStay, loaded.CurrentMode)
	require.Len(t, loaded.ActivePoints, 2)
	assert.True(t, state.ActivePoints[0].Timestamp.Equal(loaded.ActivePoints[0].Timestamp))
	assert.Equal(t, 40.7129, loaded.ActivePoints[1].Latitude)
	require.NotNil(t, loaded.LastProcessedPoint)
	assert.True(t, state.LastProcessedPoint.Timestamp.Equal(loaded.LastProcessedPoint.Timestamp))

	state.Reset()
	require.NoError(t, repo.Save(ctx, state))

	loaded, err = repo.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.ModeUnknown, loaded.CurrentMode)
	assert.Empty(t, loaded.ActivePoints)
	assert.NotNil(t, loaded.LastProcessedPoint)
}

func TestTimelineEventRepository_InsertAndQuery(t *testing.T) {
	ctx := context.Background()
	repo := NewTimelineEventRepository(openTestDB(t))

	start := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	events := []models.TimelineEvent{
		&models.Stay{StartTime: start, Duration: 30 * time.Minute, Latitude: 40.7128, Longitude: -74.0060, PointCount: 12, Geohash: "dr5regw"},
		&models.DataGap{StartTime: start.Add(30 * time.Minute), EndTime: start.Add(12 * time.Hour)},
	}

	records, err := repo.InsertEvents(ctx, "user-1", events)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.NotEqual(t, records[0].ID, records[1].ID)

	_, err = repo.InsertEvents(ctx, "user-2", []models.TimelineEvent{
		&models.DataGap{StartTime: start, EndTime: start.Add(4 * time.Hour)},
	})
	require.NoError(t, err)

	got, total, err := repo.GetEvents(ctx, models.TimelineFilter{UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, got, 2)
	assert.Equal(t, models.EventTypeStay, got[0].Type)
	assert.Equal(t, start, got[0].StartTime)
	assert.Equal(t, start.Add(30*time.Minute), got[0].EndTime)
	assert.Equal(t, models.EventTypeDataGap, got[1].Type)

	var stay models.Stay
	require.NoError(t, json.Unmarshal(got[0].Payload, &stay))
	assert.Equal(t, 12, stay.PointCount)

	gaps, total, err := repo.GetEvents(ctx, models.TimelineFilter{UserID: "user-1", Type: "data_gap"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, gaps, 1)

	cell, _, err := repo.GetEvents(ctx, models.TimelineFilter{UserID: "user-1", Geohash: "DR5RE"})
	require.NoError(t, err)
	require.Len(t, cell, 1)
	assert.Equal(t, "dr5regw", cell[0].Geohash)

	late, _, err := repo.GetEvents(ctx, models.TimelineFilter{UserID: "user-1", StartTime: start.Add(time.Hour).Unix()})
	require.NoError(t, err)
	require.Len(t, late, 1)
	assert.Equal(t, models.EventTypeDataGap, late[0].Type)

	paged, total, err := repo.GetEvents(ctx, models.TimelineFilter{UserID: "user-1", Page: 2, PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, paged, 1)
	assert.Equal(t, models.EventTypeDataGap, paged[0].Type)
}

func TestTimelineEventRepository_ListPlaces(t *testing.T) {
	ctx := context.Background()
	repo := NewTimelineEventRepository(openTestDB(t))

	day := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	office := func(start time.Time, lat float64, cell string) *models.Stay {
		return &models.Stay{StartTime: start, Duration: time.Hour, Latitude: lat, Longitude: -74.0060, PointCount: 30, Geohash: cell}
	}
	_, err := repo.InsertEvents(ctx, "user-1", []models.TimelineEvent{
		office(day, 40.7128, "dr5regw"),
		&models.Trip{StartTime: day.Add(time.Hour), Duration: 20 * time.Minute, DistanceMeters: 900, PointCount: 20},
		&models.Stay{StartTime: day.Add(2 * time.Hour), Duration: 30 * time.Minute, Latitude: 40.7500, Longitude: -73.9900, PointCount: 10, Geohash: "dr5ru7c"},
		office(day.Add(24*time.Hour), 40.7130, "dr5regy"),
		office(day.Add(48*time.Hour), 40.7132, "dr5regw"),
	})
	require.NoError(t, err)
	_, err = repo.InsertEvents(ctx, "user-2", []models.TimelineEvent{office(day, 40.7128, "dr5regw")})
	require.NoError(t, err)

	places, err := repo.ListPlaces(ctx, models.PlaceFilter{UserID: "user-1"})
	require.NoError(t, err)
	require.Len(t, places, 2)

	top := places[0]
	assert.Equal(t, "dr5reg", top.Geohash)
	assert.Equal(t, int64(3), top.VisitCount)
	assert.Equal(t, 3*3600.0, top.TotalDurationSeconds)
	assert.Equal(t, day, top.FirstVisit)
	assert.Equal(t, day.Add(48*time.Hour), top.LastVisit)
	assert.InDelta(t, 40.7130, top.Latitude, 1e-9)
	assert.InDelta(t, -74.0060, top.Longitude, 1e-9)

	assert.Equal(t, "dr5ru7", places[1].Geohash)
	assert.Equal(t, int64(1), places[1].VisitCount)

	fine, err := repo.ListPlaces(ctx, models.PlaceFilter{UserID: "user-1", Precision: 7, Limit: 1})
	require.NoError(t, err)
	require.Len(t, fine, 1)
	assert.Equal(t, "dr5regw", fine[0].Geohash)
	assert.Equal(t, int64(2), fine[0].VisitCount)

	recent, err := repo.ListPlaces(ctx, models.PlaceFilter{UserID: "user-1", StartTime: day.Add(20 * time.Hour).Unix()})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, int64(2), recent[0].VisitCount)
}

func TestRepositories_WithTxRollback(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	states := NewUserStateRepository(db)

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, states.WithTx(tx).Save(ctx, models.NewUserState("user-1")))
	require.NoError(t, tx.Rollback())

	_, err = states.Get(ctx, "user-1")
	assert.ErrorIs(t, err, ErrStateNotFound)
}
