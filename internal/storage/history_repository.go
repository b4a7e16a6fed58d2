package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/profithive/profithive-go/internal/models"
)

// HistoryRepository persists observed daily demand per series. Forecast
// requests may omit history and have the server load it from here.
type HistoryRepository struct {
	pool DatabasePool
}

func NewHistoryRepository(pool DatabasePool) *HistoryRepository {
	return &HistoryRepository{pool: pool}
}

// UpsertDay records one observed day, replacing any earlier figure for the
// same series and date. Revisions of recent days are normal as late sales
// settle.
func (r *HistoryRepository) UpsertDay(ctx context.Context, seriesID string, record models.HistoricalRecord) error {
	query := `
		INSERT INTO demand_history (series_id, day, revenue, customers)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (series_id, day)
		DO UPDATE SET revenue = EXCLUDED.revenue, customers = EXCLUDED.customers
	`
	_, err := r.pool.Exec(ctx, query, seriesID, record.Date, record.Revenue, record.Customers)
	if err != nil {
		return fmt.Errorf("failed to upsert demand history: %w", err)
	}
	return nil
}

// GetSeries loads the observed history for a series on or after the cutoff,
// sorted ascending by day.
func (r *HistoryRepository) GetSeries(ctx context.Context, seriesID string, since time.Time) ([]models.HistoricalRecord, error) {
	query := `
		SELECT day, revenue, customers
		FROM demand_history
		WHERE series_id = $1 AND day >= $2
		ORDER BY day ASC
	`
	rows, err := r.pool.Query(ctx, query, seriesID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query demand history: %w", err)
	}
	defer rows.Close()

	var records []models.HistoricalRecord
	for rows.Next() {
		var rec models.HistoricalRecord
		var revenue decimal.Decimal
		if err := rows.Scan(&rec.Date, &revenue, &rec.Customers); err != nil {
			return nil, fmt.Errorf("failed to scan demand history row: %w", err)
		}
		rec.Revenue = revenue
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read demand history rows: %w", err)
	}
	return records, nil
}
