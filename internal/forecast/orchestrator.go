package forecast

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/profithive/profithive-go/internal/cache"
	"github.com/profithive/profithive-go/internal/config"
	"github.com/profithive/profithive-go/internal/models"
	"github.com/profithive/profithive-go/internal/prophet"
)

// Orchestrator owns the Prophet prediction lifecycle: cache lookup,
// precondition validation, bounded retries against the subprocess, and cache
// write-back. It is the only component that reads or writes the forecast
// cache.
type Orchestrator struct {
	cfg     config.ProphetConfig
	invoker prophet.Invoker
	store   cache.Store
	logger  *logrus.Logger
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

// Result is a Prophet prediction, whether freshly computed or served from
// cache.
type Result struct {
	Days       []models.ForecastDay
	Confidence float64
	FromCache  bool
}

func NewOrchestrator(cfg config.ProphetConfig, invoker prophet.Invoker, store cache.Store, logger *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		invoker: invoker,
		store:   store,
		logger:  logger,
		now:     time.Now,
		sleep:   sleepContext,
	}
}

// sleepContext waits out the backoff but returns early when the caller gives
// up, so a cancelled request never sits through a retry delay.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Forecast produces a Prophet prediction for the request. History must
// already be normalized (sorted, one record per day). Invalid input is
// reported immediately and never retried; timeouts and subprocess failures
// are retried up to the configured attempt budget with exponential backoff.
func (o *Orchestrator) Forecast(ctx context.Context, req *models.ForecastRequest) (*Result, error) {
	if err := o.validate(req); err != nil {
		return nil, err
	}

	key := o.cacheKey(req)
	if cached := o.lookupCache(ctx, key); cached != nil {
		o.logger.WithFields(logrus.Fields{
			"series_id": req.SeriesID,
			"cache_key": key,
		}).Info("Serving prophet forecast from cache")
		return &Result{Days: cached.Days, Confidence: cached.Confidence, FromCache: true}, nil
	}

	wireReq := prophet.BuildRequest(req.SeriesID, req.History, req.Regressors, req.HorizonDays)

	var lastErr error
	for attempt := 1; attempt <= o.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			backoff := o.cfg.RetryBase() * time.Duration(1<<(attempt-2))
			o.logger.WithFields(logrus.Fields{
				"series_id":  req.SeriesID,
				"attempt":    attempt,
				"backoff_ms": backoff.Milliseconds(),
			}).Warn("Retrying prophet subprocess")
			if err := o.sleep(ctx, backoff); err != nil {
				break
			}
		}

		resp, err := o.invoke(ctx, wireReq)
		if err == nil {
			result := o.assemble(req, resp)
			o.writeCache(ctx, key, result)
			return result, nil
		}

		lastErr = err
		if errors.Is(err, ErrInvalidInput) {
			return nil, err
		}
		o.logger.WithFields(logrus.Fields{
			"series_id": req.SeriesID,
			"attempt":   attempt,
			"error":     err.Error(),
		}).Warn("Prophet attempt failed")

		if ctx.Err() != nil {
			break
		}
	}

	return nil, fmt.Errorf("prophet failed after %d attempts: %w", o.cfg.MaxAttempts, lastErr)
}

func (o *Orchestrator) validate(req *models.ForecastRequest) error {
	if req.SeriesID == "" {
		return fmt.Errorf("%w: series id is required", ErrInvalidInput)
	}
	if req.HorizonDays < 1 || req.HorizonDays > maxHorizonDays {
		return fmt.Errorf("%w: horizon must be 1-%d days, got %d", ErrInvalidInput, maxHorizonDays, req.HorizonDays)
	}
	if len(req.History) < o.cfg.MinHistory {
		return fmt.Errorf("%w: prophet needs %d records, got %d", ErrInsufficientData, o.cfg.MinHistory, len(req.History))
	}
	return nil
}

// invoke runs one subprocess attempt under its own hard deadline and maps
// transport-level failures onto the forecast error taxonomy.
func (o *Orchestrator) invoke(ctx context.Context, wireReq *prophet.Request) (*prophet.Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, o.cfg.Timeout())
	defer cancel()

	resp, err := o.invoker.Invoke(attemptCtx, wireReq)
	if err == nil {
		return resp, nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var procErr *prophet.ProcessError
	if errors.As(err, &procErr) {
		return nil, fmt.Errorf("%w: %v", ErrSubprocessFailure, err)
	}
	return nil, fmt.Errorf("%w: %v", ErrSubprocessFailure, err)
}

// assemble converts the wire response into forecast days. Confidence arrives
// as a [0,1] fraction and is reported on the 0-100 scale.
func (o *Orchestrator) assemble(req *models.ForecastRequest, resp *prophet.Response) *Result {
	ticket := avgTicket(req.History)
	confidence := resp.Confidence * 100
	lastDay := req.History[len(req.History)-1].Date

	days := make([]models.ForecastDay, 0, len(resp.Predictions))
	for i, p := range resp.Predictions {
		date, err := time.Parse("2006-01-02", p.DS)
		if err != nil {
			// Validated upstream; fall back to sequential dates if a
			// single stamp is unparseable.
			date = lastDay.AddDate(0, 0, i+1)
		}
		lower := math.Max(p.YHatLower, 0)
		value := math.Max(p.YHat, 0)
		days = append(days, models.ForecastDay{
			Date:               date,
			PredictedRevenue:   decimal.NewFromFloat(value).Round(2),
			LowerBound:         decimal.NewFromFloat(lower).Round(2),
			UpperBound:         decimal.NewFromFloat(math.Max(p.YHatUpper, value)).Round(2),
			PredictedCustomers: predictCustomers(value, ticket),
			Confidence:         confidence,
		})
	}
	return &Result{Days: days, Confidence: confidence}
}

// cacheKey hashes the request identity: series id, horizon, and the trailing
// window of history. Older points do not influence the prediction enough to
// justify a cache miss when they change.
func (o *Orchestrator) cacheKey(req *models.ForecastRequest) string {
	h := sha256.New()
	h.Write([]byte(req.SeriesID))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(req.HorizonDays)))
	h.Write([]byte{0})

	history := req.History
	if len(history) > o.cfg.CacheKeyPoints {
		history = history[len(history)-o.cfg.CacheKeyPoints:]
	}
	for _, rec := range history {
		h.Write([]byte(rec.Date.Format("2006-01-02")))
		h.Write([]byte(rec.Revenue.String()))
		h.Write([]byte(strconv.Itoa(rec.Customers)))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// lookupCache returns a live entry or nil. Cache I/O failures degrade to a
// miss; they are never allowed to fail the forecast.
func (o *Orchestrator) lookupCache(ctx context.Context, key string) *models.CacheEntry {
	entry, err := o.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			o.logger.WithError(cacheFailure(err)).WithField("cache_key", key).Warn("Forecast cache read failed")
		}
		return nil
	}
	if entry.Expired(o.now()) {
		if err := o.store.Evict(ctx, key); err != nil {
			o.logger.WithError(cacheFailure(err)).WithField("cache_key", key).Warn("Failed to evict expired cache entry")
		}
		return nil
	}
	return entry
}

func (o *Orchestrator) writeCache(ctx context.Context, key string, result *Result) {
	now := o.now()
	entry := &models.CacheEntry{
		Key:        key,
		Days:       result.Days,
		Confidence: result.Confidence,
		CreatedAt:  now,
		ExpiresAt:  now.Add(o.cfg.CacheTTL()),
	}
	if err := o.store.Put(ctx, entry); err != nil {
		o.logger.WithError(cacheFailure(err)).WithField("cache_key", key).Warn("Forecast cache write failed")
	}
}

// cacheFailure tags a store error with the cache taxonomy member so log
// consumers can classify it.
func cacheFailure(err error) error {
	return fmt.Errorf("%w: %v", ErrCacheIO, err)
}
