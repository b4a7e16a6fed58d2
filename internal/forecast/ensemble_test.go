package forecast

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profithive/profithive-go/internal/config"
	"github.com/profithive/profithive-go/internal/models"
	"github.com/profithive/profithive-go/internal/prophet"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testEnsembleConfig() config.EnsembleConfig {
	return config.EnsembleConfig{
		ShortWindow:         7,
		MediumWindow:        21,
		LongWindow:          60,
		VolWindow:           30,
		MinHistory:          7,
		WeatherBandLow:      0.7,
		WeatherBandHigh:     1.3,
		TransitBandLow:      0.8,
		TransitBandHigh:     1.2,
		FootTrafficBandLow:  0.75,
		FootTrafficBandHigh: 1.25,
		DailyDecay:          0.995,
		DayOfWeekWeights:    []float64{0.85, 1.05, 1.1, 1.1, 1.1, 1.0, 0.8},
		BaseConfidence:      75,
		FallbackMinConf:     60,
		FallbackMaxConf:     95,
		VolatilityPenalty:   0.3,
	}
}

func testProphetConfig() config.ProphetConfig {
	return config.ProphetConfig{
		PythonBin:      "python3",
		ScriptPath:     "prophet_service.py",
		TimeoutMs:      1000,
		MaxAttempts:    3,
		RetryBaseMs:    1,
		CacheTTLMs:     600000,
		MinHistory:     10,
		CacheKeyPoints: 30,
	}
}

// trendingHistory builds n days of history ending 2026-03-31, with revenue
// walking from base by step per day.
func trendingHistory(n int, base, step float64) []models.HistoricalRecord {
	end := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	records := make([]models.HistoricalRecord, 0, n)
	for i := 0; i < n; i++ {
		revenue := base + step*float64(i)
		records = append(records, models.HistoricalRecord{
			Date:      end.AddDate(0, 0, i-n+1),
			Revenue:   decimal.NewFromFloat(revenue),
			Customers: int(revenue / 12),
		})
	}
	return records
}

// stubInvoker plays canned responses and counts invocations.
type stubInvoker struct {
	calls int
	resp  *prophet.Response
	err   error
}

func (s *stubInvoker) Invoke(_ context.Context, req *prophet.Request) (*prophet.Response, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.resp != nil {
		return s.resp, nil
	}
	return prophetResponse(req.PredictPeriods, 0.82), nil
}

func prophetResponse(periods int, confidence float64) *prophet.Response {
	resp := &prophet.Response{Confidence: confidence}
	day := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < periods; i++ {
		resp.Predictions = append(resp.Predictions, prophet.PredictionPoint{
			DS:        day.AddDate(0, 0, i).Format("2006-01-02"),
			YHat:      2000 + float64(i)*5,
			YHatLower: 1800 + float64(i)*5,
			YHatUpper: 2200 + float64(i)*5,
		})
	}
	return resp
}

func TestEnsemble_InsufficientHistory(t *testing.T) {
	e := NewEnsemble(testEnsembleConfig(), quietLogger())

	_, _, err := e.Forecast(trendingHistory(5, 1000, 10), models.NeutralRegressors(), 14)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestEnsemble_UpwardTrendGrows(t *testing.T) {
	e := NewEnsemble(testEnsembleConfig(), quietLogger())
	history := trendingHistory(30, 1000, 25)

	days, confidence, err := e.Forecast(history, models.NeutralRegressors(), 14)
	require.NoError(t, err)
	require.Len(t, days, 14)

	// A consistently rising series keeps rising across the horizon.
	first, _ := days[0].PredictedRevenue.Float64()
	last, _ := days[13].PredictedRevenue.Float64()
	assert.Greater(t, last, first)

	for _, d := range days {
		assert.True(t, d.PredictedRevenue.IsPositive(), "day %s revenue must be positive", d.Date)
	}
	assert.GreaterOrEqual(t, confidence, 60.0)
	assert.LessOrEqual(t, confidence, 95.0)
}

func TestEnsemble_BoundsInvariant(t *testing.T) {
	e := NewEnsemble(testEnsembleConfig(), quietLogger())

	// Alternate high/low days so volatility is real.
	history := trendingHistory(30, 1000, 0)
	for i := range history {
		if i%2 == 0 {
			history[i].Revenue = history[i].Revenue.Mul(decimal.NewFromFloat(1.4))
		}
	}

	days, _, err := e.Forecast(history, models.NeutralRegressors(), 7)
	require.NoError(t, err)
	for _, d := range days {
		assert.True(t, d.LowerBound.LessThanOrEqual(d.PredictedRevenue),
			"lower bound must not exceed prediction on %s", d.Date)
		assert.True(t, d.PredictedRevenue.LessThanOrEqual(d.UpperBound),
			"prediction must not exceed upper bound on %s", d.Date)
	}
}

func TestEnsemble_RegressorsShiftDemand(t *testing.T) {
	e := NewEnsemble(testEnsembleConfig(), quietLogger())
	history := trendingHistory(30, 1000, 0)

	good, _, err := e.Forecast(history, models.Regressors{Weather: 1, Transit: 1, FootTraffic: 1}, 7)
	require.NoError(t, err)
	bad, _, err := e.Forecast(history, models.Regressors{Weather: 0, Transit: 0, FootTraffic: 0}, 7)
	require.NoError(t, err)

	for i := range good {
		g, _ := good[i].PredictedRevenue.Float64()
		b, _ := bad[i].PredictedRevenue.Float64()
		assert.Greater(t, g, b, "day %d: favorable signals must predict more demand", i+1)
	}
}

func TestEnsemble_NeutralRegressorsLandMidBand(t *testing.T) {
	cfg := testEnsembleConfig()
	assert.InDelta(t, 1.0, bandMultiplier(0.5, cfg.WeatherBandLow, cfg.WeatherBandHigh), 1e-9)
	assert.InDelta(t, 1.0, bandMultiplier(0.5, cfg.TransitBandLow, cfg.TransitBandHigh), 1e-9)
	assert.InDelta(t, 1.0, bandMultiplier(0.5, cfg.FootTrafficBandLow, cfg.FootTrafficBandHigh), 1e-9)

	// Out-of-range scores clamp to the band edges.
	assert.InDelta(t, cfg.WeatherBandLow, bandMultiplier(-2, cfg.WeatherBandLow, cfg.WeatherBandHigh), 1e-9)
	assert.InDelta(t, cfg.WeatherBandHigh, bandMultiplier(3, cfg.WeatherBandLow, cfg.WeatherBandHigh), 1e-9)
}

func TestEnsemble_ConfidenceClampedOnVolatileSeries(t *testing.T) {
	e := NewEnsemble(testEnsembleConfig(), quietLogger())

	history := trendingHistory(30, 1000, 0)
	for i := range history {
		if i%2 == 0 {
			history[i].Revenue = decimal.NewFromInt(100)
		} else {
			history[i].Revenue = decimal.NewFromInt(3000)
		}
	}

	_, confidence, err := e.Forecast(history, models.NeutralRegressors(), 7)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, confidence, 60.0)
	assert.LessOrEqual(t, confidence, 95.0)
}

func TestEnsemble_ConfidenceDecaysAcrossHorizon(t *testing.T) {
	e := NewEnsemble(testEnsembleConfig(), quietLogger())
	history := trendingHistory(30, 1200, 5)

	days, _, err := e.Forecast(history, models.NeutralRegressors(), 60)
	require.NoError(t, err)
	require.Len(t, days, 60)

	// Each day is trusted at most as much as the one before it.
	for i := 1; i < len(days); i++ {
		assert.LessOrEqual(t, days[i].Confidence, days[i-1].Confidence,
			"confidence must not rise from day %d to day %d", i, i+1)
	}
	assert.Less(t, days[len(days)-1].Confidence, days[0].Confidence)
	for _, d := range days {
		assert.GreaterOrEqual(t, d.Confidence, 60.0)
		assert.LessOrEqual(t, d.Confidence, 95.0)
	}
}

func TestEnsemble_TrendRatesFromMovingAverages(t *testing.T) {
	e := NewEnsemble(testEnsembleConfig(), quietLogger())

	series := make([]float64, 30)
	for i := range series {
		series[i] = 1000 + 25*float64(i)
	}
	snap := e.analyze(series)

	// 7-day SMA 1650 vs full-series (shrunken long window) SMA 1362.5.
	assert.InDelta(t, 21.100917, snap.momentum, 1e-6)
	// Latest week averages 1650 against 1475 the week before.
	assert.InDelta(t, 11.864407, snap.acceleration, 1e-6)

	// Under two weeks of data there is no week-over-week comparison.
	short := e.analyze(series[:13])
	assert.Zero(t, short.acceleration)
}

func TestEnsemble_PredictsCustomersFromTicketSize(t *testing.T) {
	e := NewEnsemble(testEnsembleConfig(), quietLogger())
	history := trendingHistory(30, 1200, 0)

	days, _, err := e.Forecast(history, models.NeutralRegressors(), 3)
	require.NoError(t, err)
	for _, d := range days {
		assert.Greater(t, d.PredictedCustomers, 0)
	}
}

func TestCoefficientOfVariation(t *testing.T) {
	assert.Zero(t, coefficientOfVariation([]float64{100}))
	assert.Zero(t, coefficientOfVariation([]float64{100, 100, 100}))
	assert.Greater(t, coefficientOfVariation([]float64{50, 150, 50, 150}), 0.3)
}
