package models

import "time"

// SignalKind identifies an external signal source.
type SignalKind string

const (
	SignalWeather     SignalKind = "weather"
	SignalTransit     SignalKind = "transit"
	SignalFootTraffic SignalKind = "foot_traffic"
)

// WeatherSignal is a provider reading of current weather conditions.
type WeatherSignal struct {
	TemperatureC float64   `json:"temperature_c"`
	Condition    string    `json:"condition"` // "sunny", "cloudy", "rainy"
	Humidity     float64   `json:"humidity"`
	ImpactScore  int       `json:"impact_score"` // 0-100
	IsFallback   bool      `json:"is_fallback"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// TransitSignal is a provider reading of local transit conditions.
type TransitSignal struct {
	BusAvailability float64   `json:"bus_availability"` // 0-100
	RideService     float64   `json:"ride_service"`     // 0-100
	CongestionLevel float64   `json:"congestion_level"` // 0-100
	PeakHour        bool      `json:"peak_hour"`
	RealData        bool      `json:"real_data"`
	ImpactScore     int       `json:"impact_score"` // 0-100
	IsFallback      bool      `json:"is_fallback"`
	FetchedAt       time.Time `json:"fetched_at"`
}

// FootTrafficSignal is a provider reading of pedestrian volume near the
// location.
type FootTrafficSignal struct {
	Level       int       `json:"level"`        // 0-100
	ImpactScore int       `json:"impact_score"` // 0-100
	IsFallback  bool      `json:"is_fallback"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// SignalSet is the join result of the three concurrent signal fetches. A nil
// field means the provider was not consulted at all; fallback readings are
// non-nil with IsFallback set.
type SignalSet struct {
	Weather     *WeatherSignal     `json:"weather,omitempty"`
	Transit     *TransitSignal     `json:"transit,omitempty"`
	FootTraffic *FootTrafficSignal `json:"foot_traffic,omitempty"`
}

// Regressors are normalized [0,1] model inputs derived from a SignalSet.
// Created fresh per forecast request and never mutated afterwards.
type Regressors struct {
	Weather     float64 `json:"weather_score"`
	Transit     float64 `json:"transport_score"`
	FootTraffic float64 `json:"foot_traffic_score"`
}

// NeutralRegressors is the regressor set used when no signal data exists.
func NeutralRegressors() Regressors {
	return Regressors{Weather: 0.5, Transit: 0.5, FootTraffic: 0.5}
}
