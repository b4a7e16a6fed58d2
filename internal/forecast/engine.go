package forecast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/profithive/profithive-go/internal/models"
	"github.com/profithive/profithive-go/internal/signals"
)

// SignalSource provides the joined external signal set for a forecast.
type SignalSource interface {
	FetchAll(ctx context.Context) *models.SignalSet
}

// DegradationNotifier is told when a forecast had to fall back to the local
// engine. Implementations must not block the forecast path.
type DegradationNotifier interface {
	NotifyDegraded(ctx context.Context, seriesID string, reason error)
}

// Engine is the top-level forecast pipeline. Engine selection is a fixed
// progression: serve from cache if possible, otherwise run the Prophet
// subprocess, otherwise fall back to the local ensemble. Every request that
// carries enough history gets an answer.
type Engine struct {
	orchestrator *Orchestrator
	ensemble     *Ensemble
	source       SignalSource
	notifier     DegradationNotifier
	logger       *logrus.Logger
	now          func() time.Time
}

func NewEngine(orchestrator *Orchestrator, ensemble *Ensemble, source SignalSource, logger *logrus.Logger) *Engine {
	return &Engine{
		orchestrator: orchestrator,
		ensemble:     ensemble,
		source:       source,
		logger:       logger,
		now:          time.Now,
	}
}

// SetNotifier attaches an optional degradation notifier.
func (e *Engine) SetNotifier(n DegradationNotifier) { e.notifier = n }

// GenerateForecast runs the full pipeline for one series: signal gathering,
// history normalization, engine selection, and result fusion.
func (e *Engine) GenerateForecast(ctx context.Context, req *models.ForecastRequest) (*models.ForecastResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: request is nil", ErrInvalidInput)
	}
	if req.SeriesID == "" {
		return nil, fmt.Errorf("%w: series id is required", ErrInvalidInput)
	}
	if req.HorizonDays < 1 || req.HorizonDays > maxHorizonDays {
		return nil, fmt.Errorf("%w: horizon must be 1-%d days, got %d", ErrInvalidInput, maxHorizonDays, req.HorizonDays)
	}

	normalized := *req
	normalized.History = models.NormalizeHistory(req.History)

	signalSet := e.source.FetchAll(ctx)
	normalized.Regressors = signals.Normalize(signalSet)

	result, err := e.orchestrator.Forecast(ctx, &normalized)
	if err == nil {
		return fuse(normalized.SeriesID, models.EngineProphet, result.Days, signalSet, e.now()), nil
	}
	if errors.Is(err, ErrInvalidInput) {
		return nil, err
	}

	e.logger.WithFields(logrus.Fields{
		"series_id": normalized.SeriesID,
		"error":     err.Error(),
	}).Warn("Prophet unavailable, falling back to ensemble engine")

	days, _, ensErr := e.ensemble.Forecast(normalized.History, normalized.Regressors, normalized.HorizonDays)
	if ensErr != nil {
		if errors.Is(ensErr, ErrInsufficientData) {
			return nil, ensErr
		}
		return nil, fmt.Errorf("ensemble fallback failed: %w", ensErr)
	}

	if e.notifier != nil && !errors.Is(err, ErrInsufficientData) {
		e.notifier.NotifyDegraded(ctx, normalized.SeriesID, err)
	}

	return fuse(normalized.SeriesID, models.EngineEnsemble, days, signalSet, e.now()), nil
}
