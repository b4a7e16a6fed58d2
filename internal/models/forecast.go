package models

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// ForecastEngine identifies which engine produced a forecast.
type ForecastEngine string

const (
	EngineProphet  ForecastEngine = "prophet"
	EngineEnsemble ForecastEngine = "ensemble"
)

// HistoricalRecord is one observed day of demand for a retail location.
type HistoricalRecord struct {
	Date      time.Time       `json:"date"`
	Revenue   decimal.Decimal `json:"revenue"`
	Customers int             `json:"customers"`
}

// NormalizeHistory returns records deduplicated by calendar day and sorted
// ascending. The last record wins on duplicate dates.
func NormalizeHistory(records []HistoricalRecord) []HistoricalRecord {
	byDay := make(map[string]HistoricalRecord, len(records))
	for _, r := range records {
		byDay[r.Date.Format("2006-01-02")] = r
	}

	out := make([]HistoricalRecord, 0, len(byDay))
	for _, r := range byDay {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// ForecastRequest is the input to the forecast pipeline for one series.
type ForecastRequest struct {
	SeriesID    string             `json:"series_id"`
	History     []HistoricalRecord `json:"history"`
	HorizonDays int                `json:"horizon_days"`
	Regressors  Regressors         `json:"regressors"`
}

// ForecastDay is a single predicted day.
type ForecastDay struct {
	Date               time.Time       `json:"date"`
	PredictedRevenue   decimal.Decimal `json:"predicted_revenue"`
	LowerBound         decimal.Decimal `json:"lower_bound"`
	UpperBound         decimal.Decimal `json:"upper_bound"`
	PredictedCustomers int             `json:"predicted_customers"`
	Confidence         float64         `json:"confidence"`
}

// ForecastResponse is the unified output regardless of which engine ran.
type ForecastResponse struct {
	ID                string              `json:"id"`
	SeriesID          string              `json:"series_id"`
	Engine            ForecastEngine      `json:"engine"`
	Days              []ForecastDay       `json:"days"`
	OverallConfidence float64             `json:"overall_confidence"`
	Explanations      []SignalExplanation `json:"explanations"`
	GeneratedAt       time.Time           `json:"generated_at"`
}

// SignalExplanation is a human-readable account of how one external signal
// influenced the forecast.
type SignalExplanation struct {
	Signal      SignalKind `json:"signal"`
	ImpactScore int        `json:"impact_score"`
	Outlook     string     `json:"outlook"` // "favorable", "neutral", "unfavorable"
	Narrative   string     `json:"narrative"`
	Synthetic   bool       `json:"synthetic"`
}

// CacheEntry is a cached prophet result. Owned exclusively by the process
// orchestrator; persisted so it survives restarts.
type CacheEntry struct {
	Key        string        `json:"key"`
	Days       []ForecastDay `json:"days"`
	Confidence float64       `json:"confidence"`
	CreatedAt  time.Time     `json:"created_at"`
	ExpiresAt  time.Time     `json:"expires_at"`
}

// Expired reports whether the entry is stale at the given instant.
func (e CacheEntry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}
