package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/profithive/profithive-go/internal/forecast"
	"github.com/profithive/profithive-go/internal/models"
	"github.com/profithive/profithive-go/internal/storage"
)

// historyLookbackDays bounds how much stored history is loaded when the
// request does not carry its own.
const historyLookbackDays = 120

// ForecastGenerator runs the forecast pipeline for one request.
type ForecastGenerator interface {
	GenerateForecast(ctx context.Context, req *models.ForecastRequest) (*models.ForecastResponse, error)
}

// ForecastStore persists generated forecasts.
type ForecastStore interface {
	Save(ctx context.Context, forecast *models.ForecastResponse) error
	GetLatest(ctx context.Context, seriesID string) (*models.ForecastResponse, error)
}

// HistoryStore reads and writes observed demand history.
type HistoryStore interface {
	UpsertDay(ctx context.Context, seriesID string, record models.HistoricalRecord) error
	GetSeries(ctx context.Context, seriesID string, since time.Time) ([]models.HistoricalRecord, error)
}

// ForecastHandler serves forecast generation and retrieval.
type ForecastHandler struct {
	generator ForecastGenerator
	forecasts ForecastStore
	history   HistoryStore
	logger    *logrus.Logger
}

func NewForecastHandler(generator ForecastGenerator, forecasts ForecastStore, history HistoryStore, logger *logrus.Logger) *ForecastHandler {
	return &ForecastHandler{
		generator: generator,
		forecasts: forecasts,
		history:   history,
		logger:    logger,
	}
}

// historyRecordPayload is the wire form of one observed day.
type historyRecordPayload struct {
	Date      string          `json:"date" binding:"required"`
	Revenue   decimal.Decimal `json:"revenue"`
	Customers int             `json:"customers"`
}

type generateForecastRequest struct {
	SeriesID    string                 `json:"series_id" binding:"required"`
	HorizonDays int                    `json:"horizon_days" binding:"required"`
	History     []historyRecordPayload `json:"history"`
}

// GenerateForecast handles POST /api/v1/forecasts. History may come inline
// with the request; when absent it is loaded from storage.
func (h *ForecastHandler) GenerateForecast(c *gin.Context) {
	var payload generateForecastRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	history, err := h.resolveHistory(c.Request.Context(), &payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req := &models.ForecastRequest{
		SeriesID:    payload.SeriesID,
		History:     history,
		HorizonDays: payload.HorizonDays,
	}

	response, err := h.generator.GenerateForecast(c.Request.Context(), req)
	if err != nil {
		h.respondForecastError(c, payload.SeriesID, err)
		return
	}

	if h.forecasts != nil {
		if saveErr := h.forecasts.Save(c.Request.Context(), response); saveErr != nil {
			h.logger.WithError(saveErr).WithField("series_id", payload.SeriesID).
				Warn("Failed to persist generated forecast")
		}
	}

	c.JSON(http.StatusOK, response)
}

// GetLatestForecast handles GET /api/v1/forecasts/:seriesID/latest.
func (h *ForecastHandler) GetLatestForecast(c *gin.Context) {
	seriesID := c.Param("seriesID")
	response, err := h.forecasts.GetLatest(c.Request.Context(), seriesID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No forecast found for series"})
			return
		}
		h.logger.WithError(err).WithField("series_id", seriesID).Error("Failed to load latest forecast")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load forecast"})
		return
	}
	c.JSON(http.StatusOK, response)
}

type recordHistoryRequest struct {
	Records []historyRecordPayload `json:"records" binding:"required"`
}

// RecordHistory handles POST /api/v1/history/:seriesID, upserting observed
// demand days.
func (h *ForecastHandler) RecordHistory(c *gin.Context) {
	seriesID := c.Param("seriesID")

	var payload recordHistoryRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if len(payload.Records) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one record is required"})
		return
	}

	records, err := parseHistory(payload.Records)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	for _, rec := range records {
		if err := h.history.UpsertDay(c.Request.Context(), seriesID, rec); err != nil {
			h.logger.WithError(err).WithField("series_id", seriesID).Error("Failed to record history")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record history"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"recorded": len(records)})
}

func (h *ForecastHandler) resolveHistory(ctx context.Context, payload *generateForecastRequest) ([]models.HistoricalRecord, error) {
	if len(payload.History) > 0 {
		return parseHistory(payload.History)
	}
	if h.history == nil {
		return nil, errors.New("history is required")
	}
	since := time.Now().AddDate(0, 0, -historyLookbackDays)
	records, err := h.history.GetSeries(ctx, payload.SeriesID, since)
	if err != nil {
		h.logger.WithError(err).WithField("series_id", payload.SeriesID).Error("Failed to load stored history")
		return nil, errors.New("failed to load stored history")
	}
	return records, nil
}

func (h *ForecastHandler) respondForecastError(c *gin.Context, seriesID string, err error) {
	switch {
	case errors.Is(err, forecast.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, forecast.ErrInsufficientData):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		h.logger.WithError(err).WithField("series_id", seriesID).Error("Forecast generation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Forecast generation failed"})
	}
}

func parseHistory(payload []historyRecordPayload) ([]models.HistoricalRecord, error) {
	records := make([]models.HistoricalRecord, 0, len(payload))
	for _, p := range payload {
		date, err := time.Parse("2006-01-02", p.Date)
		if err != nil {
			return nil, errors.New("invalid history date, expected YYYY-MM-DD: " + p.Date)
		}
		records = append(records, models.HistoricalRecord{
			Date:      date,
			Revenue:   p.Revenue,
			Customers: p.Customers,
		})
	}
	return records, nil
}
