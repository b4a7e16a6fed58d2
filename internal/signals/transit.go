package signals

import (
	"context"
	"time"

	"github.com/profithive/profithive-go/internal/config"
	"github.com/profithive/profithive-go/internal/models"
)

// Peak commute hours observed in the local ridership data.
var transitPeakHours = map[int]bool{
	7: true, 8: true, 9: true,
	12: true, 13: true,
	17: true, 18: true, 19: true,
}

// HTTPTransitProvider reads ridership-derived transit conditions from the
// transport data sidecar.
type HTTPTransitProvider struct {
	http *httpClient
}

func NewHTTPTransitProvider(cfg config.SignalProviderConfig) *HTTPTransitProvider {
	return &HTTPTransitProvider{http: newHTTPClient(cfg)}
}

type transitPayload struct {
	BusAvailability float64 `json:"bus_availability"`
	RideService     float64 `json:"train_frequency"` // sidecar's historical field name
	CongestionLevel float64 `json:"congestion_level"`
	PeakHour        bool    `json:"peak_hour"`
	RealData        bool    `json:"real_data"`
}

func (p *HTTPTransitProvider) Fetch(ctx context.Context) (*models.TransitSignal, error) {
	var payload transitPayload
	if err := p.http.getJSON(ctx, "/api/transport/current", &payload); err != nil {
		return nil, err
	}

	signal := &models.TransitSignal{
		BusAvailability: payload.BusAvailability,
		RideService:     payload.RideService,
		CongestionLevel: payload.CongestionLevel,
		PeakHour:        payload.PeakHour,
		RealData:        payload.RealData,
		IsFallback:      false,
		FetchedAt:       time.Now(),
	}
	signal.ImpactScore = transitImpactScore(signal)
	return signal, nil
}

// transitImpactScore weights service availability against congestion:
// 60% positive service level, 40% inverse congestion, plus a small bonus
// when the reading comes from measured ridership rather than defaults.
func transitImpactScore(s *models.TransitSignal) int {
	positive := (s.BusAvailability + s.RideService) / 2
	score := positive*0.6 + (100-s.CongestionLevel)*0.4
	if s.RealData {
		score += 5
	}
	return clampScore(score)
}

// IsTransitPeakHour reports whether the hour falls in a commute peak.
func IsTransitPeakHour(hour int) bool {
	return transitPeakHours[hour]
}

// FallbackTransit is the synthetic reading used when the sidecar is
// unreachable: peak-aware service levels, weekend congestion discounted.
func FallbackTransit(now time.Time) *models.TransitSignal {
	peak := IsTransitPeakHour(now.Hour())

	signal := &models.TransitSignal{
		BusAvailability: 75,
		RideService:     80,
		CongestionLevel: 35,
		PeakHour:        peak,
		RealData:        false,
		IsFallback:      true,
		FetchedAt:       now,
	}
	if peak {
		signal.BusAvailability = 85
		signal.RideService = 90
		signal.CongestionLevel = 55
	}
	if wd := now.Weekday(); wd == time.Saturday || wd == time.Sunday {
		signal.CongestionLevel *= 0.8
	}
	signal.ImpactScore = transitImpactScore(signal)
	return signal
}
