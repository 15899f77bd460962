package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jengzang/records-timeline-go/internal/models"
)

// ErrStateNotFound is returned when no state has been stored for a user
var ErrStateNotFound = errors.New("user state not found")

// UserStateRepository persists the per-user processing state
type UserStateRepository struct {
	db Querier
}

// NewUserStateRepository creates a new user state repository
func NewUserStateRepository(db Querier) *UserStateRepository {
	return &UserStateRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *UserStateRepository) WithTx(tx *sql.Tx) *UserStateRepository {
	return &UserStateRepository{db: tx}
}

// Get loads the state of a user
func (r *UserStateRepository) Get(ctx context.Context, userID string) (*models.UserState, error) {
	query := `SELECT current_mode, active_points_json, last_point_json
		FROM user_states WHERE user_id = ?`

	var (
		mode       string
		activeJSON string
		lastJSON   sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&mode, &activeJSON, &lastJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user state: %w", err)
	}

	state := models.NewUserState(userID)
	state.CurrentMode = models.ProcessorMode(mode)
	if !state.CurrentMode.Valid() {
		return nil, fmt.Errorf("invalid stored mode %q for user %s", mode, userID)
	}

	if err := json.Unmarshal([]byte(activeJSON), &state.ActivePoints); err != nil {
		return nil, fmt.Errorf("failed to decode active points: %w", err)
	}

	if lastJSON.Valid && lastJSON.String != "" {
		var last models.GPSPoint
		if err := json.Unmarshal([]byte(lastJSON.String), &last); err != nil {
			return nil, fmt.Errorf("failed to decode last processed point: %w", err)
		}
		state.LastProcessedPoint = &last
	}

	return state, nil
}

// GetOrNew loads the state of a user, or returns a fresh one
func (r *UserStateRepository) GetOrNew(ctx context.Context, userID string) (*models.UserState, error) {
	state, err := r.Get(ctx, userID)
	if errors.Is(err, ErrStateNotFound) {
		return models.NewUserState(userID), nil
	}
	return state, err
}

// Save upserts the state of a user
func (r *UserStateRepository) Save(ctx context.Context, state *models.UserState) error {
	points := state.ActivePoints
	if points == nil {
		points = []models.GPSPoint{}
	}
	activeJSON, err := json.Marshal(points)
	if err != nil {
		return fmt.Errorf("failed to encode active points: %w", err)
	}

	var lastJSON sql.NullString
	if state.LastProcessedPoint != nil {
		b, err := json.Marshal(state.LastProcessedPoint)
		if err != nil {
			return fmt.Errorf("failed to encode last processed point: %w", err)
		}
		lastJSON = sql.NullString{String: string(b), Valid: true}
	}

	query := `INSERT INTO user_states (user_id, current_mode, active_points_json, last_point_json, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			current_mode = excluded.current_mode,
			active_points_json = excluded.active_points_json,
			last_point_json = excluded.last_point_json,
			updated_at = excluded.updated_at`

	_, err = r.db.ExecContext(ctx, query,
		state.UserID, string(state.CurrentMode), string(activeJSON), lastJSON, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save user state: %w", err)
	}
	return nil
}
