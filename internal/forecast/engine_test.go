package forecast

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profithive/profithive-go/internal/models"
	"github.com/profithive/profithive-go/internal/prophet"
)

// stubSignals returns a fixed healthy signal set.
type stubSignals struct {
	set *models.SignalSet
}

func (s *stubSignals) FetchAll(context.Context) *models.SignalSet { return s.set }

func healthySignals() *models.SignalSet {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	return &models.SignalSet{
		Weather:     &models.WeatherSignal{TemperatureC: 28, Condition: "sunny", ImpactScore: 85, FetchedAt: now},
		Transit:     &models.TransitSignal{BusAvailability: 80, RideService: 85, CongestionLevel: 30, RealData: true, ImpactScore: 78, FetchedAt: now},
		FootTraffic: &models.FootTrafficSignal{Level: 35, ImpactScore: 35, IsFallback: true, FetchedAt: now},
	}
}

// recordingNotifier captures degradation alerts.
type recordingNotifier struct {
	seriesIDs []string
	reasons   []error
}

func (r *recordingNotifier) NotifyDegraded(_ context.Context, seriesID string, reason error) {
	r.seriesIDs = append(r.seriesIDs, seriesID)
	r.reasons = append(r.reasons, reason)
}

func newTestEngine(t *testing.T, invoker prophet.Invoker) *Engine {
	t.Helper()
	logger := quietLogger()
	orchestrator := newTestOrchestrator(t, invoker)
	ensemble := NewEnsemble(testEnsembleConfig(), logger)
	return NewEngine(orchestrator, ensemble, &stubSignals{set: healthySignals()}, logger)
}

func TestEngine_ProphetPath(t *testing.T) {
	inv := &stubInvoker{}
	engine := newTestEngine(t, inv)

	resp, err := engine.GenerateForecast(context.Background(), validRequest(30))
	require.NoError(t, err)

	assert.Equal(t, models.EngineProphet, resp.Engine)
	assert.Equal(t, "shop-42", resp.SeriesID)
	assert.NotEmpty(t, resp.ID)
	assert.Len(t, resp.Days, 14)
	assert.InDelta(t, 82.0, resp.OverallConfidence, 1e-9)
	assert.Equal(t, 1, inv.calls)

	require.Len(t, resp.Explanations, 3)
	bySignal := map[models.SignalKind]models.SignalExplanation{}
	for _, ex := range resp.Explanations {
		bySignal[ex.Signal] = ex
	}
	assert.Equal(t, "favorable", bySignal[models.SignalWeather].Outlook)
	assert.Equal(t, "favorable", bySignal[models.SignalTransit].Outlook)
	assert.Equal(t, "unfavorable", bySignal[models.SignalFootTraffic].Outlook)
	assert.True(t, bySignal[models.SignalFootTraffic].Synthetic)
	assert.False(t, bySignal[models.SignalWeather].Synthetic)
}

func TestEngine_FallsBackToEnsembleAfterRepeatedTimeouts(t *testing.T) {
	inv := &stubInvoker{err: context.DeadlineExceeded}
	engine := newTestEngine(t, inv)
	notifier := &recordingNotifier{}
	engine.SetNotifier(notifier)

	resp, err := engine.GenerateForecast(context.Background(), validRequest(30))
	require.NoError(t, err, "fallback engine must answer when the subprocess cannot")

	assert.Equal(t, models.EngineEnsemble, resp.Engine)
	assert.Equal(t, 3, inv.calls, "subprocess gets its full attempt budget before fallback")
	assert.Len(t, resp.Days, 14)
	assert.GreaterOrEqual(t, resp.OverallConfidence, 60.0)
	assert.LessOrEqual(t, resp.OverallConfidence, 95.0)

	require.Len(t, notifier.seriesIDs, 1)
	assert.Equal(t, "shop-42", notifier.seriesIDs[0])
	assert.ErrorIs(t, notifier.reasons[0], ErrTimeout)
}

func TestEngine_SubprocessCrashFallsBack(t *testing.T) {
	inv := &stubInvoker{err: &prophet.ProcessError{ExitCode: 2, Diagnostic: "import error"}}
	engine := newTestEngine(t, inv)

	resp, err := engine.GenerateForecast(context.Background(), validRequest(30))
	require.NoError(t, err)
	assert.Equal(t, models.EngineEnsemble, resp.Engine)
}

func TestEngine_TooLittleHistoryForAnyEngine(t *testing.T) {
	inv := &stubInvoker{}
	engine := newTestEngine(t, inv)
	notifier := &recordingNotifier{}
	engine.SetNotifier(notifier)

	req := validRequest(5)
	_, err := engine.GenerateForecast(context.Background(), req)
	assert.ErrorIs(t, err, ErrInsufficientData)
	assert.Zero(t, inv.calls, "short history must be rejected before any subprocess attempt")
	assert.Empty(t, notifier.seriesIDs, "insufficient data is a caller problem, not degradation")
}

func TestEngine_MidSizeHistoryUsesEnsembleOnly(t *testing.T) {
	// 8 records: below the subprocess minimum, above the ensemble minimum.
	inv := &stubInvoker{}
	engine := newTestEngine(t, inv)

	resp, err := engine.GenerateForecast(context.Background(), validRequest(8))
	require.NoError(t, err)
	assert.Equal(t, models.EngineEnsemble, resp.Engine)
	assert.Zero(t, inv.calls)
}

func TestEngine_InvalidInputNotRetriedOrFallenBack(t *testing.T) {
	inv := &stubInvoker{}
	engine := newTestEngine(t, inv)

	req := validRequest(30)
	req.HorizonDays = -1
	_, err := engine.GenerateForecast(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Zero(t, inv.calls)

	_, err = engine.GenerateForecast(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestEngine_HorizonCappedAtOneYear(t *testing.T) {
	inv := &stubInvoker{}
	engine := newTestEngine(t, inv)

	req := validRequest(30)
	req.HorizonDays = 10000
	_, err := engine.GenerateForecast(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Zero(t, inv.calls, "an absurd horizon must never reach the subprocess")

	req.HorizonDays = maxHorizonDays
	resp, err := engine.GenerateForecast(context.Background(), req)
	require.NoError(t, err, "a full-year horizon is the largest allowed")
	assert.Len(t, resp.Days, maxHorizonDays)
}

func TestEngine_DeduplicatesHistoryBeforeForecasting(t *testing.T) {
	inv := &stubInvoker{}
	engine := newTestEngine(t, inv)

	req := validRequest(30)
	// Duplicate the last day; normalization collapses it so the cache key
	// and the wire request see one record per day.
	req.History = append(req.History, req.History[len(req.History)-1])

	resp, err := engine.GenerateForecast(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.EngineProphet, resp.Engine)

	clean := validRequest(30)
	resp2, err := engine.GenerateForecast(context.Background(), clean)
	require.NoError(t, err)
	assert.Equal(t, 1, inv.calls, "duplicate-bearing and clean requests share one cache entry")
	assert.Equal(t, resp.OverallConfidence, resp2.OverallConfidence)
}

func TestMeanConfidence(t *testing.T) {
	assert.Zero(t, meanConfidence(nil))
	days := []models.ForecastDay{{Confidence: 70}, {Confidence: 90}}
	assert.InDelta(t, 80, meanConfidence(days), 1e-9)
}

func TestOutlookThresholds(t *testing.T) {
	assert.Equal(t, "favorable", outlook(75))
	assert.Equal(t, "neutral", outlook(74))
	assert.Equal(t, "neutral", outlook(41))
	assert.Equal(t, "unfavorable", outlook(40))
}
