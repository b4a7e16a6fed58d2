package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string           `mapstructure:"environment"`
	LogLevel    string           `mapstructure:"log_level"`
	Server      ServerConfig     `mapstructure:"server"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Redis       RedisConfig      `mapstructure:"redis"`
	Prophet     ProphetConfig    `mapstructure:"prophet"`
	Ensemble    EnsembleConfig   `mapstructure:"ensemble"`
	Signals     SignalsConfig    `mapstructure:"signals"`
	Cache       CacheConfig      `mapstructure:"cache"`
	Telegram    TelegramConfig   `mapstructure:"telegram"`
	Monitoring  MonitoringConfig `mapstructure:"monitoring"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	DBName       string `mapstructure:"dbname"`
	SSLMode      string `mapstructure:"sslmode"`
	DatabaseURL  string `mapstructure:"database_url"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ProphetConfig controls the external Prophet subprocess invocation.
type ProphetConfig struct {
	PythonBin      string `mapstructure:"python_bin"`
	ScriptPath     string `mapstructure:"script_path"`
	TimeoutMs      int    `mapstructure:"timeout_ms"`
	MaxAttempts    int    `mapstructure:"max_attempts"`
	RetryBaseMs    int    `mapstructure:"retry_base_ms"`
	CacheTTLMs     int    `mapstructure:"cache_ttl_ms"`
	MinHistory     int    `mapstructure:"min_history"`
	CacheKeyPoints int    `mapstructure:"cache_key_points"`
	WorkDir        string `mapstructure:"work_dir"`
}

func (p ProphetConfig) Timeout() time.Duration { return time.Duration(p.TimeoutMs) * time.Millisecond }

func (p ProphetConfig) RetryBase() time.Duration {
	return time.Duration(p.RetryBaseMs) * time.Millisecond
}

func (p ProphetConfig) CacheTTL() time.Duration {
	return time.Duration(p.CacheTTLMs) * time.Millisecond
}

// EnsembleConfig holds the tunables of the local statistical engine. The
// multiplier bands and day-of-week weights are empirically tuned defaults,
// not validated ground truth; keep them overridable.
type EnsembleConfig struct {
	ShortWindow  int `mapstructure:"short_window"`
	MediumWindow int `mapstructure:"medium_window"`
	LongWindow   int `mapstructure:"long_window"`
	VolWindow    int `mapstructure:"vol_window"`
	MinHistory   int `mapstructure:"min_history"`

	WeatherBandLow      float64 `mapstructure:"weather_band_low"`
	WeatherBandHigh     float64 `mapstructure:"weather_band_high"`
	TransitBandLow      float64 `mapstructure:"transit_band_low"`
	TransitBandHigh     float64 `mapstructure:"transit_band_high"`
	FootTrafficBandLow  float64 `mapstructure:"foot_traffic_band_low"`
	FootTrafficBandHigh float64 `mapstructure:"foot_traffic_band_high"`

	DailyDecay        float64   `mapstructure:"daily_decay"`
	DayOfWeekWeights  []float64 `mapstructure:"day_of_week_weights"`
	BaseConfidence    float64   `mapstructure:"base_confidence"`
	FallbackMinConf   float64   `mapstructure:"fallback_min_confidence"`
	FallbackMaxConf   float64   `mapstructure:"fallback_max_confidence"`
	VolatilityPenalty float64   `mapstructure:"volatility_penalty"`
}

type SignalsConfig struct {
	FetchTimeoutMs int                  `mapstructure:"fetch_timeout_ms"`
	Weather        SignalProviderConfig `mapstructure:"weather"`
	Transit        SignalProviderConfig `mapstructure:"transit"`
	FootTraffic    SignalProviderConfig `mapstructure:"foot_traffic"`
}

type SignalProviderConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	TimeoutMs int    `mapstructure:"timeout_ms"`
}

func (s SignalsConfig) FetchTimeout() time.Duration {
	return time.Duration(s.FetchTimeoutMs) * time.Millisecond
}

type CacheConfig struct {
	Backend string `mapstructure:"backend"` // "file" or "redis"
	Dir     string `mapstructure:"dir"`
}

type TelegramConfig struct {
	BotToken    string `mapstructure:"bot_token"`
	AlertChatID int64  `mapstructure:"alert_chat_id"`
}

type MonitoringConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	IntervalSeconds int  `mapstructure:"interval_seconds"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// Set default values
	setDefaults()

	// Enable environment variable support
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind TELEGRAM_BOT_TOKEN environment variable: %w", err)
	}

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Environment = strings.ToLower(config.Environment)

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	if c.Prophet.MaxAttempts < 1 {
		return fmt.Errorf("prophet.max_attempts must be at least 1, got %d", c.Prophet.MaxAttempts)
	}
	if c.Prophet.TimeoutMs <= 0 {
		return fmt.Errorf("prophet.timeout_ms must be positive, got %d", c.Prophet.TimeoutMs)
	}
	if c.Ensemble.MinHistory < 1 {
		return fmt.Errorf("ensemble.min_history must be at least 1, got %d", c.Ensemble.MinHistory)
	}
	if len(c.Ensemble.DayOfWeekWeights) != 0 && len(c.Ensemble.DayOfWeekWeights) != 7 {
		return fmt.Errorf("ensemble.day_of_week_weights must have exactly 7 entries, got %d", len(c.Ensemble.DayOfWeekWeights))
	}
	if c.Cache.Backend != "file" && c.Cache.Backend != "redis" {
		return fmt.Errorf("cache.backend must be \"file\" or \"redis\", got %q", c.Cache.Backend)
	}
	return nil
}

func setDefaults() {
	// Environment
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Database
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "profithive")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.database_url", "")
	viper.SetDefault("database.max_open_conns", 25)

	// Redis
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Prophet subprocess
	viper.SetDefault("prophet.python_bin", "python3")
	viper.SetDefault("prophet.script_path", "backend/python/prophet_service.py")
	viper.SetDefault("prophet.timeout_ms", 120000)
	viper.SetDefault("prophet.max_attempts", 3)
	viper.SetDefault("prophet.retry_base_ms", 500)
	viper.SetDefault("prophet.cache_ttl_ms", 600000)
	viper.SetDefault("prophet.min_history", 10)
	viper.SetDefault("prophet.cache_key_points", 30)
	viper.SetDefault("prophet.work_dir", "")

	// Ensemble engine
	viper.SetDefault("ensemble.short_window", 7)
	viper.SetDefault("ensemble.medium_window", 21)
	viper.SetDefault("ensemble.long_window", 60)
	viper.SetDefault("ensemble.vol_window", 30)
	viper.SetDefault("ensemble.min_history", 7)
	viper.SetDefault("ensemble.weather_band_low", 0.7)
	viper.SetDefault("ensemble.weather_band_high", 1.3)
	viper.SetDefault("ensemble.transit_band_low", 0.8)
	viper.SetDefault("ensemble.transit_band_high", 1.2)
	viper.SetDefault("ensemble.foot_traffic_band_low", 0.75)
	viper.SetDefault("ensemble.foot_traffic_band_high", 1.25)
	viper.SetDefault("ensemble.daily_decay", 0.995)
	// Weekday peaks for tech-worker retail: Mon..Fri above par, weekend below.
	viper.SetDefault("ensemble.day_of_week_weights", []float64{0.85, 1.05, 1.1, 1.1, 1.1, 1.0, 0.8})
	viper.SetDefault("ensemble.base_confidence", 75.0)
	viper.SetDefault("ensemble.fallback_min_confidence", 60.0)
	viper.SetDefault("ensemble.fallback_max_confidence", 95.0)
	viper.SetDefault("ensemble.volatility_penalty", 0.3)

	// External signals
	viper.SetDefault("signals.fetch_timeout_ms", 8000)
	viper.SetDefault("signals.weather.base_url", "http://localhost:5000")
	viper.SetDefault("signals.weather.timeout_ms", 8000)
	viper.SetDefault("signals.transit.base_url", "http://localhost:5001")
	viper.SetDefault("signals.transit.timeout_ms", 8000)
	viper.SetDefault("signals.foot_traffic.base_url", "http://localhost:5002")
	viper.SetDefault("signals.foot_traffic.timeout_ms", 5000)

	// Forecast cache
	viper.SetDefault("cache.backend", "file")
	viper.SetDefault("cache.dir", "data/forecast_cache")

	// Telegram
	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.alert_chat_id", 0)

	// Monitoring
	viper.SetDefault("monitoring.enabled", true)
	viper.SetDefault("monitoring.interval_seconds", 300)
}
