package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/profithive/profithive-go/internal/models"
)

// ErrNotFound indicates no stored forecast matches the query.
var ErrNotFound = errors.New("forecast not found")

// DatabasePool defines the pool operations the repositories need. Both the
// real pgx pool and pgxmock satisfy it.
type DatabasePool interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// ForecastRepository persists generated forecasts for later retrieval and
// accuracy review.
type ForecastRepository struct {
	pool DatabasePool
}

func NewForecastRepository(pool DatabasePool) *ForecastRepository {
	return &ForecastRepository{pool: pool}
}

// Save stores one generated forecast. Days and explanations are persisted as
// JSONB documents; the scalar columns exist for querying and retention.
func (r *ForecastRepository) Save(ctx context.Context, forecast *models.ForecastResponse) error {
	days, err := json.Marshal(forecast.Days)
	if err != nil {
		return fmt.Errorf("failed to marshal forecast days: %w", err)
	}
	explanations, err := json.Marshal(forecast.Explanations)
	if err != nil {
		return fmt.Errorf("failed to marshal forecast explanations: %w", err)
	}

	query := `
		INSERT INTO forecasts (id, series_id, engine, days, explanations, overall_confidence, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.pool.Exec(ctx, query,
		forecast.ID,
		forecast.SeriesID,
		string(forecast.Engine),
		days,
		explanations,
		forecast.OverallConfidence,
		forecast.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save forecast: %w", err)
	}
	return nil
}

// GetLatest returns the most recently generated forecast for a series.
func (r *ForecastRepository) GetLatest(ctx context.Context, seriesID string) (*models.ForecastResponse, error) {
	query := `
		SELECT id, series_id, engine, days, explanations, overall_confidence, generated_at
		FROM forecasts
		WHERE series_id = $1
		ORDER BY generated_at DESC
		LIMIT 1
	`

	var (
		forecast     models.ForecastResponse
		engine       string
		days         []byte
		explanations []byte
	)
	err := r.pool.QueryRow(ctx, query, seriesID).Scan(
		&forecast.ID,
		&forecast.SeriesID,
		&engine,
		&days,
		&explanations,
		&forecast.OverallConfidence,
		&forecast.GeneratedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: series %s", ErrNotFound, seriesID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest forecast: %w", err)
	}

	forecast.Engine = models.ForecastEngine(engine)
	if err := json.Unmarshal(days, &forecast.Days); err != nil {
		return nil, fmt.Errorf("failed to unmarshal forecast days: %w", err)
	}
	if err := json.Unmarshal(explanations, &forecast.Explanations); err != nil {
		return nil, fmt.Errorf("failed to unmarshal forecast explanations: %w", err)
	}
	return &forecast, nil
}

// DeleteOlderThan removes forecasts generated before the cutoff and reports
// how many rows were dropped.
func (r *ForecastRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM forecasts WHERE generated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old forecasts: %w", err)
	}
	return tag.RowsAffected(), nil
}
