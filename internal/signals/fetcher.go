package signals

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/profithive/profithive-go/internal/config"
	"github.com/profithive/profithive-go/internal/models"
)

// Fetcher gathers the three external signals for one forecast request. The
// fetches run concurrently and join before returning; a failure in any
// source is replaced by its typed fallback reading and never aborts the
// others.
type Fetcher struct {
	weather     WeatherProvider
	transit     TransitProvider
	footTraffic FootTrafficProvider

	weatherBreaker     *CircuitBreaker
	transitBreaker     *CircuitBreaker
	footTrafficBreaker *CircuitBreaker

	timeout time.Duration
	logger  *logrus.Logger
	now     func() time.Time
}

func NewFetcher(cfg config.SignalsConfig, logger *logrus.Logger) *Fetcher {
	breakerCfg := DefaultBreakerConfig()
	return &Fetcher{
		weather:            NewHTTPWeatherProvider(cfg.Weather),
		transit:            NewHTTPTransitProvider(cfg.Transit),
		footTraffic:        NewHTTPFootTrafficProvider(cfg.FootTraffic),
		weatherBreaker:     NewCircuitBreaker("weather", breakerCfg, logger),
		transitBreaker:     NewCircuitBreaker("transit", breakerCfg, logger),
		footTrafficBreaker: NewCircuitBreaker("foot_traffic", breakerCfg, logger),
		timeout:            cfg.FetchTimeout(),
		logger:             logger,
		now:                time.Now,
	}
}

// NewFetcherWithProviders wires explicit providers; used by tests and by
// callers that substitute one source.
func NewFetcherWithProviders(w WeatherProvider, t TransitProvider, f FootTrafficProvider, timeout time.Duration, logger *logrus.Logger) *Fetcher {
	breakerCfg := DefaultBreakerConfig()
	return &Fetcher{
		weather:            w,
		transit:            t,
		footTraffic:        f,
		weatherBreaker:     NewCircuitBreaker("weather", breakerCfg, logger),
		transitBreaker:     NewCircuitBreaker("transit", breakerCfg, logger),
		footTrafficBreaker: NewCircuitBreaker("foot_traffic", breakerCfg, logger),
		timeout:            timeout,
		logger:             logger,
		now:                time.Now,
	}
}

// FetchAll fans out to the three providers and joins. Every field of the
// returned set is non-nil; degraded sources carry IsFallback readings.
func (f *Fetcher) FetchAll(ctx context.Context) *models.SignalSet {
	set := &models.SignalSet{}
	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		set.Weather = f.fetchWeather(ctx)
	}()
	go func() {
		defer wg.Done()
		set.Transit = f.fetchTransit(ctx)
	}()
	go func() {
		defer wg.Done()
		set.FootTraffic = f.fetchFootTraffic(ctx)
	}()

	wg.Wait()
	return set
}

func (f *Fetcher) fetchWeather(ctx context.Context) *models.WeatherSignal {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	var signal *models.WeatherSignal
	err := f.weatherBreaker.Execute(ctx, func(ctx context.Context) error {
		var fetchErr error
		signal, fetchErr = f.weather.Fetch(ctx)
		return fetchErr
	})
	if err != nil {
		f.logger.WithFields(logrus.Fields{"signal": "weather", "error": err.Error()}).
			Warn("Weather fetch failed, using fallback reading")
		return FallbackWeather(f.now())
	}
	return signal
}

func (f *Fetcher) fetchTransit(ctx context.Context) *models.TransitSignal {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	var signal *models.TransitSignal
	err := f.transitBreaker.Execute(ctx, func(ctx context.Context) error {
		var fetchErr error
		signal, fetchErr = f.transit.Fetch(ctx)
		return fetchErr
	})
	if err != nil {
		f.logger.WithFields(logrus.Fields{"signal": "transit", "error": err.Error()}).
			Warn("Transit fetch failed, using fallback reading")
		return FallbackTransit(f.now())
	}
	return signal
}

func (f *Fetcher) fetchFootTraffic(ctx context.Context) *models.FootTrafficSignal {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	var signal *models.FootTrafficSignal
	err := f.footTrafficBreaker.Execute(ctx, func(ctx context.Context) error {
		var fetchErr error
		signal, fetchErr = f.footTraffic.Fetch(ctx)
		return fetchErr
	})
	if err != nil {
		f.logger.WithFields(logrus.Fields{"signal": "foot_traffic", "error": err.Error()}).
			Warn("Foot traffic fetch failed, using fallback reading")
		return FallbackFootTraffic(f.now())
	}
	return signal
}
