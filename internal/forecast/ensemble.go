package forecast

import (
	"fmt"
	"math"
	"time"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/profithive/profithive-go/internal/config"
	"github.com/profithive/profithive-go/internal/models"
)

// Ensemble is the local statistical fallback engine. It blends moving-average
// trend, weekly seasonality, and external signal multipliers into a forecast
// that needs no external process, so it can always answer when Prophet cannot.
type Ensemble struct {
	cfg    config.EnsembleConfig
	logger *logrus.Logger
}

func NewEnsemble(cfg config.EnsembleConfig, logger *logrus.Logger) *Ensemble {
	return &Ensemble{cfg: cfg, logger: logger}
}

// trendSnapshot captures the moving-average structure of a revenue series.
// Momentum, acceleration, and volatility are percentages.
type trendSnapshot struct {
	shortSMA     float64
	mediumSMA    float64
	longSMA      float64
	momentum     float64 // (short MA - long MA) / long MA, in percent
	acceleration float64 // recent week vs the week before, in percent
	volatility   float64 // coefficient of variation over the vol window, in percent
}

// Forecast predicts horizonDays of demand from normalized history and the
// current regressor snapshot. History must be sorted ascending with at most
// one record per day. The returned confidence is the day-one value; later
// days decay from it.
func (e *Ensemble) Forecast(history []models.HistoricalRecord, regressors models.Regressors, horizonDays int) ([]models.ForecastDay, float64, error) {
	if len(history) < e.cfg.MinHistory {
		return nil, 0, fmt.Errorf("%w: have %d records, need %d", ErrInsufficientData, len(history), e.cfg.MinHistory)
	}
	if horizonDays < 1 || horizonDays > maxHorizonDays {
		return nil, 0, fmt.Errorf("%w: horizon must be 1-%d days, got %d", ErrInvalidInput, maxHorizonDays, horizonDays)
	}

	revenues := make([]float64, len(history))
	for i, rec := range history {
		revenues[i], _ = rec.Revenue.Float64()
	}

	snap := e.analyze(revenues)
	ticket := avgTicket(history)
	baseConfidence := e.confidence(snap, len(history))

	weatherMult := bandMultiplier(regressors.Weather, e.cfg.WeatherBandLow, e.cfg.WeatherBandHigh)
	transitMult := bandMultiplier(regressors.Transit, e.cfg.TransitBandLow, e.cfg.TransitBandHigh)
	footMult := bandMultiplier(regressors.FootTraffic, e.cfg.FootTrafficBandLow, e.cfg.FootTrafficBandHigh)
	signalMult := weatherMult * transitMult * footMult

	// Momentum is measured across the long window, the week-over-week
	// acceleration across the short one; each contributes its per-day share
	// to the trend term.
	perDayTrend := (snap.momentum/100)/float64(e.cfg.LongWindow) +
		0.5*(snap.acceleration/100)/float64(e.cfg.ShortWindow)

	// Uncertainty band widens with observed volatility but never collapses
	// to a point estimate.
	band := math.Min(math.Max(snap.volatility/100*1.5, 0.05), 0.5)

	lastDay := history[len(history)-1].Date
	days := make([]models.ForecastDay, 0, horizonDays)
	for d := 1; d <= horizonDays; d++ {
		date := lastDay.AddDate(0, 0, d)
		decay := math.Pow(e.cfg.DailyDecay, float64(d))

		trendTerm := snap.shortSMA * perDayTrend * float64(d)
		patternTerm := snap.shortSMA * (e.dayOfWeekWeight(date.Weekday()) - 1)
		value := (snap.shortSMA + trendTerm + patternTerm) * decay * signalMult
		if value < 0 {
			value = 0
		}

		// Far-future days are trusted less than tomorrow.
		dayConfidence := e.clampConfidence(baseConfidence * decay)

		predicted := decimal.NewFromFloat(value).Round(2)
		days = append(days, models.ForecastDay{
			Date:               date,
			PredictedRevenue:   predicted,
			LowerBound:         decimal.NewFromFloat(value * (1 - band)).Round(2),
			UpperBound:         decimal.NewFromFloat(value * (1 + band)).Round(2),
			PredictedCustomers: predictCustomers(value, ticket),
			Confidence:         dayConfidence,
		})
	}

	e.logger.WithFields(logrus.Fields{
		"history_points": len(history),
		"horizon_days":   horizonDays,
		"momentum_pct":   snap.momentum,
		"volatility_pct": snap.volatility,
		"signal_mult":    signalMult,
		"confidence":     baseConfidence,
	}).Debug("Ensemble forecast computed")

	return days, baseConfidence, nil
}

// analyze computes the moving-average snapshot. Windows longer than the
// series shrink to its length so short histories still produce a trend.
func (e *Ensemble) analyze(revenues []float64) trendSnapshot {
	snap := trendSnapshot{
		shortSMA:   lastSMA(revenues, e.cfg.ShortWindow),
		mediumSMA:  lastSMA(revenues, e.cfg.MediumWindow),
		longSMA:    lastSMA(revenues, e.cfg.LongWindow),
		volatility: coefficientOfVariation(tail(revenues, e.cfg.VolWindow)) * 100,
	}
	if snap.longSMA > 0 {
		snap.momentum = (snap.shortSMA - snap.longSMA) / snap.longSMA * 100
	}
	// Acceleration compares the most recent week against the week before it;
	// with under two weeks of data there is nothing to compare.
	if len(revenues) >= 2*e.cfg.ShortWindow {
		recent := mean(revenues[len(revenues)-e.cfg.ShortWindow:])
		previous := mean(revenues[len(revenues)-2*e.cfg.ShortWindow : len(revenues)-e.cfg.ShortWindow])
		if previous > 0 {
			snap.acceleration = (recent - previous) / previous * 100
		}
	}
	return snap
}

// confidence starts from the configured base, pays a volatility penalty, and
// adjusts for data quality: short histories are penalized, long ones earn a
// bonus, and agreement across the three moving-average windows adds a little
// more. Always clamped to the fallback band.
func (e *Ensemble) confidence(snap trendSnapshot, historyLen int) float64 {
	conf := e.cfg.BaseConfidence
	conf -= e.cfg.VolatilityPenalty * snap.volatility
	switch {
	case historyLen < 2*e.cfg.ShortWindow:
		conf -= 10
	case historyLen >= e.cfg.LongWindow:
		conf += 5
	}
	aligned := (snap.shortSMA >= snap.mediumSMA && snap.mediumSMA >= snap.longSMA) ||
		(snap.shortSMA <= snap.mediumSMA && snap.mediumSMA <= snap.longSMA)
	if aligned {
		conf += 2
	}
	return e.clampConfidence(conf)
}

func (e *Ensemble) clampConfidence(conf float64) float64 {
	return math.Min(math.Max(conf, e.cfg.FallbackMinConf), e.cfg.FallbackMaxConf)
}

func (e *Ensemble) dayOfWeekWeight(day time.Weekday) float64 {
	if len(e.cfg.DayOfWeekWeights) != 7 {
		return 1
	}
	return e.cfg.DayOfWeekWeights[int(day)]
}

// lastSMA returns the most recent simple moving average over the given
// period, shrinking the period to the series length when needed.
func lastSMA(values []float64, period int) float64 {
	if len(values) == 0 {
		return 0
	}
	if period > len(values) {
		period = len(values)
	}
	smaIndicator := trend.NewSmaWithPeriod[float64](period)
	result := helper.ChanToSlice(smaIndicator.Compute(helper.SliceToChan(values)))
	if len(result) == 0 {
		return 0
	}
	return result[len(result)-1]
}

func tail(values []float64, n int) []float64 {
	if len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func coefficientOfVariation(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	if m == 0 {
		return 0
	}
	var variance float64
	for _, v := range values {
		variance += (v - m) * (v - m)
	}
	variance /= float64(len(values))
	return math.Sqrt(variance) / math.Abs(m)
}

// bandMultiplier maps a [0,1] regressor onto a demand multiplier band, with
// 0.5 landing exactly on the band midpoint (neutral).
func bandMultiplier(score, low, high float64) float64 {
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return low + score*(high-low)
}

// avgTicket estimates revenue per customer from history, defaulting to a
// conservative figure when customer counts are absent.
func avgTicket(history []models.HistoricalRecord) float64 {
	var revenue float64
	var customers int
	for _, rec := range history {
		r, _ := rec.Revenue.Float64()
		revenue += r
		customers += rec.Customers
	}
	if customers == 0 || revenue == 0 {
		return 0
	}
	return revenue / float64(customers)
}

func predictCustomers(revenue, ticket float64) int {
	if ticket <= 0 {
		return 0
	}
	return int(math.Round(revenue / ticket))
}
