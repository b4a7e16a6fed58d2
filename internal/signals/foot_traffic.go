package signals

import (
	"context"
	"time"

	"github.com/profithive/profithive-go/internal/config"
	"github.com/profithive/profithive-go/internal/models"
)

// HTTPFootTrafficProvider reads the pedestrian counter sidecar.
type HTTPFootTrafficProvider struct {
	http *httpClient
}

func NewHTTPFootTrafficProvider(cfg config.SignalProviderConfig) *HTTPFootTrafficProvider {
	return &HTTPFootTrafficProvider{http: newHTTPClient(cfg)}
}

type footTrafficPayload struct {
	Level int `json:"level"`
}

func (p *HTTPFootTrafficProvider) Fetch(ctx context.Context) (*models.FootTrafficSignal, error) {
	var payload footTrafficPayload
	if err := p.http.getJSON(ctx, "/api/foot-traffic/current", &payload); err != nil {
		return nil, err
	}

	level := clampScore(float64(payload.Level))
	return &models.FootTrafficSignal{
		Level:       level,
		ImpactScore: level,
		IsFallback:  false,
		FetchedAt:   time.Now(),
	}, nil
}

// FallbackFootTraffic synthesizes a reading from the time of day: office
// lunch and evening peaks, quiet nights.
func FallbackFootTraffic(now time.Time) *models.FootTrafficSignal {
	level := 45
	switch hour := now.Hour(); {
	case hour >= 12 && hour <= 14:
		level = 70
	case hour >= 17 && hour <= 20:
		level = 65
	case hour >= 22 || hour <= 6:
		level = 15
	}

	return &models.FootTrafficSignal{
		Level:       level,
		ImpactScore: level,
		IsFallback:  true,
		FetchedAt:   now,
	}
}
