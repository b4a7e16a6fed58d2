package signals

import (
	"context"
	"strings"
	"time"

	"github.com/profithive/profithive-go/internal/config"
	"github.com/profithive/profithive-go/internal/models"
)

// Ideal shopping-weather band for the location; readings inside it score
// full temperature marks.
const (
	idealTempLowC  = 24.0
	idealTempHighC = 32.0
)

// HTTPWeatherProvider reads current conditions from the weather sidecar.
type HTTPWeatherProvider struct {
	http *httpClient
}

func NewHTTPWeatherProvider(cfg config.SignalProviderConfig) *HTTPWeatherProvider {
	return &HTTPWeatherProvider{http: newHTTPClient(cfg)}
}

type weatherPayload struct {
	TemperatureC float64 `json:"temperature_c"`
	Condition    string  `json:"condition"`
	Humidity     float64 `json:"humidity"`
}

func (p *HTTPWeatherProvider) Fetch(ctx context.Context) (*models.WeatherSignal, error) {
	var payload weatherPayload
	if err := p.http.getJSON(ctx, "/api/weather/current", &payload); err != nil {
		return nil, err
	}

	signal := &models.WeatherSignal{
		TemperatureC: payload.TemperatureC,
		Condition:    normalizeCondition(payload.Condition),
		Humidity:     payload.Humidity,
		IsFallback:   false,
		FetchedAt:    time.Now(),
	}
	signal.ImpactScore = weatherImpactScore(signal)
	return signal, nil
}

// weatherImpactScore condenses a reading into the 0-100 impact scale used by
// explanations: temperature proximity to the ideal band dominates, condition
// category adjusts.
func weatherImpactScore(s *models.WeatherSignal) int {
	temp := tempProximity(s.TemperatureC)
	cond := conditionScore(s.Condition)
	return clampScore((0.55*temp + 0.45*cond) * 100)
}

// tempProximity scores [0,1]: 1.0 inside the ideal band, decaying linearly
// over 15 degrees outside it.
func tempProximity(tempC float64) float64 {
	var dist float64
	switch {
	case tempC < idealTempLowC:
		dist = idealTempLowC - tempC
	case tempC > idealTempHighC:
		dist = tempC - idealTempHighC
	}
	score := 1 - dist/15
	if score < 0 {
		return 0
	}
	return score
}

func conditionScore(condition string) float64 {
	switch condition {
	case "sunny":
		return 1.0
	case "cloudy":
		return 0.65
	case "rainy":
		return 0.3
	default:
		return 0.5
	}
}

func normalizeCondition(raw string) string {
	c := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(c, "rain"), strings.Contains(c, "storm"), strings.Contains(c, "thunder"):
		return "rainy"
	case strings.Contains(c, "cloud"), strings.Contains(c, "overcast"), strings.Contains(c, "haz"):
		return "cloudy"
	case strings.Contains(c, "sun"), strings.Contains(c, "clear"):
		return "sunny"
	default:
		return c
	}
}

// FallbackWeather is the synthetic reading used when the provider is
// unreachable. Tropical-climate defaults keep the regressor near neutral.
func FallbackWeather(now time.Time) *models.WeatherSignal {
	signal := &models.WeatherSignal{
		TemperatureC: 29,
		Condition:    "cloudy",
		Humidity:     78,
		IsFallback:   true,
		FetchedAt:    now,
	}
	signal.ImpactScore = weatherImpactScore(signal)
	return signal
}
