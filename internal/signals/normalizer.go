package signals

import "github.com/profithive/profithive-go/internal/models"

// Normalize converts a signal set into model-ready regressors. Pure function
// of its input: never errors, clamps out-of-range readings, and substitutes
// 0.5 (neutral) for absent snapshots.
func Normalize(set *models.SignalSet) models.Regressors {
	if set == nil {
		return models.NeutralRegressors()
	}
	return models.Regressors{
		Weather:     NormalizeWeather(set.Weather),
		Transit:     NormalizeTransit(set.Transit),
		FootTraffic: NormalizeFootTraffic(set.FootTraffic),
	}
}

// NormalizeWeather blends temperature proximity to the ideal band with the
// condition category (sunny > cloudy > rainy).
func NormalizeWeather(s *models.WeatherSignal) float64 {
	if s == nil {
		return 0.5
	}
	return clampUnit(0.55*tempProximity(s.TemperatureC) + 0.45*conditionScore(s.Condition))
}

// NormalizeTransit uses the measured availability/congestion combination
// when real ridership data is present, otherwise the provider's coarser
// accessibility score.
func NormalizeTransit(s *models.TransitSignal) float64 {
	if s == nil {
		return 0.5
	}
	if !s.RealData {
		return clampUnit(float64(s.ImpactScore) / 100)
	}
	availability := clampUnit((s.BusAvailability + s.RideService) / 200)
	inverseCongestion := clampUnit(1 - s.CongestionLevel/100)
	return clampUnit(0.6*availability + 0.4*inverseCongestion)
}

// NormalizeFootTraffic maps the raw 0-100 level onto [0,1].
func NormalizeFootTraffic(s *models.FootTrafficSignal) float64 {
	if s == nil {
		return 0.5
	}
	return clampUnit(float64(s.Level) / 100)
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
