// Package config reads the dashboard and simulator settings from the
// environment, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/LeonardoBeccarini/agrisense/internal/sources/thingspeak"
	"github.com/LeonardoBeccarini/agrisense/internal/thresholds"
)

const (
	SourceThingSpeak = "thingspeak"
	SourceMQTT       = "mqtt"
)

type Config struct {
	HTTPPort        string
	GRPCPort        string
	RefreshInterval time.Duration
	FetchTimeout    time.Duration

	Log        LogConfig
	Evaluation EvaluationConfig
	Sensor     SensorConfig
	Weather    WeatherConfig
	MQTT       MQTTConfig
	Breaker    BreakerConfig
}

type LogConfig struct {
	Level  string
	Format string
}

type EvaluationConfig struct {
	CropProfile string
	// FallbackProfile is used when CropProfile is unknown; empty disables.
	FallbackProfile string
	WindowSize      int
	AnomalyK        float64
	TrendEpsilon    float64
	AlertOnMissing  bool
	ThresholdsPath  string
}

type SensorConfig struct {
	Source     string // thingspeak | mqtt
	BaseURL    string
	ChannelID  string
	ReadAPIKey string
	FieldMap   thingspeak.FieldMap
	Latitude   float64
	Longitude  float64
	// FeedCapacity and DeviceID apply to the mqtt source.
	FeedCapacity int
	DeviceID     string
}

type WeatherConfig struct {
	BaseURL      string
	APIKey       string
	ForecastDays int
}

type MQTTConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	ClientID string
}

type BreakerConfig struct {
	MaxFailures int
	OpenTimeout time.Duration
	Retries     int
}

// LoadDotEnv loads the given .env files (default ".env") without overriding
// variables already set. A missing file is not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads the configuration from the environment. A variable that is set
// but does not parse is an error, never a silent default.
func Load() (*Config, error) {
	var e env
	cfg := &Config{
		HTTPPort:        getenv("HTTP_PORT", "8080"),
		GRPCPort:        getenv("GRPC_PORT", "9090"),
		RefreshInterval: time.Duration(e.intVal("REFRESH_INTERVAL_SEC", 300)) * time.Second,
		FetchTimeout:    time.Duration(e.intVal("FETCH_TIMEOUT_MS", 10000)) * time.Millisecond,
		Log: LogConfig{
			Level:  getenv("LOG_LEVEL", "info"),
			Format: getenv("LOG_FORMAT", "json"),
		},
		Evaluation: EvaluationConfig{
			CropProfile:     strings.ToLower(getenv("CROP_PROFILE", thresholds.DefaultProfile)),
			FallbackProfile: strings.ToLower(getenv("FALLBACK_PROFILE", thresholds.DefaultProfile)),
			WindowSize:      e.intVal("WINDOW_SIZE", 100),
			AnomalyK:        e.floatVal("ANOMALY_K", 2),
			TrendEpsilon:    e.floatVal("TREND_EPSILON", 0.01),
			AlertOnMissing:  e.boolVal("ALERT_ON_MISSING", false),
			ThresholdsPath:  getenv("THRESHOLDS_PATH", ""),
		},
		Sensor: SensorConfig{
			Source:       strings.ToLower(getenv("SENSOR_SOURCE", SourceThingSpeak)),
			BaseURL:      getenv("THINGSPEAK_BASE_URL", thingspeak.DefaultBaseURL),
			ChannelID:    getenv("THINGSPEAK_CHANNEL_ID", "2957131"),
			ReadAPIKey:   getenv("THINGSPEAK_READ_API_KEY", ""),
			Latitude:     e.floatVal("FIELD_LAT", 6.6018),
			Longitude:    e.floatVal("FIELD_LON", 3.3515),
			FeedCapacity: e.intVal("MQTT_FEED_CAPACITY", 500),
			DeviceID:     getenv("MQTT_FEED_DEVICE", ""),
		},
		Weather: WeatherConfig{
			BaseURL:      getenv("OPENWEATHERMAP_BASE_URL", "https://api.openweathermap.org/data/2.5"),
			APIKey:       getenv("OPENWEATHERMAP_API_KEY", ""),
			ForecastDays: e.intVal("FORECAST_DAYS", 5),
		},
		MQTT: MQTTConfig{
			Enabled:  e.boolVal("MQTT_ENABLED", true),
			Host:     getenv("MQTT_HOST", "localhost"),
			Port:     e.intVal("MQTT_PORT", 1883),
			User:     getenv("MQTT_USER", "guest"),
			Password: getenv("MQTT_PASSWORD", "guest"),
			ClientID: getenv("MQTT_CLIENT_ID", "agrisense-dashboard"),
		},
		Breaker: BreakerConfig{
			MaxFailures: e.intVal("CB_MAX_FAILURES", 5),
			OpenTimeout: time.Duration(e.intVal("CB_OPEN_MS", 30000)) * time.Millisecond,
			Retries:     e.intVal("FETCH_RETRIES", 2),
		},
	}

	fm := thingspeak.DefaultFieldMap()
	if raw := strings.TrimSpace(os.Getenv("FIELD_MAP")); raw != "" {
		parsed, err := thingspeak.ParseFieldMap(raw)
		if err != nil {
			return nil, fmt.Errorf("FIELD_MAP: %w", err)
		}
		fm = parsed
	}
	cfg.Sensor.FieldMap = fm

	if err := errors.Join(e.errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Evaluation.WindowSize <= 0:
		return fmt.Errorf("WINDOW_SIZE must be positive, got %d", c.Evaluation.WindowSize)
	case c.Evaluation.AnomalyK <= 0:
		return fmt.Errorf("ANOMALY_K must be positive, got %g", c.Evaluation.AnomalyK)
	case c.Evaluation.TrendEpsilon <= 0:
		return fmt.Errorf("TREND_EPSILON must be positive, got %g", c.Evaluation.TrendEpsilon)
	case c.RefreshInterval <= 0:
		return fmt.Errorf("REFRESH_INTERVAL_SEC must be positive")
	}
	switch c.Sensor.Source {
	case SourceThingSpeak:
		if c.Sensor.ChannelID == "" {
			return errors.New("THINGSPEAK_CHANNEL_ID is required for the thingspeak source")
		}
	case SourceMQTT:
		if !c.MQTT.Enabled {
			return errors.New("SENSOR_SOURCE=mqtt needs MQTT_ENABLED")
		}
	default:
		return fmt.Errorf("SENSOR_SOURCE %q: want %s or %s", c.Sensor.Source, SourceThingSpeak, SourceMQTT)
	}
	return nil
}

// Thresholds loads the table from ThresholdsPath, or the built-in profiles
// when no path is set.
func (c *Config) Thresholds() (thresholds.Table, error) {
	if c.Evaluation.ThresholdsPath == "" {
		return thresholds.Default(), nil
	}
	return thresholds.Load(c.Evaluation.ThresholdsPath)
}

func getenv(k, d string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return d
}

// env collects parse errors so Load reports every malformed variable at once.
type env struct {
	errs []error
}

func (e *env) lookup(k string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(k))
	return v, v != ""
}

func (e *env) intVal(k string, d int) int {
	v, ok := e.lookup(k)
	if !ok {
		return d
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not an integer", k, v))
		return d
	}
	return n
}

func (e *env) floatVal(k string, d float64) float64 {
	v, ok := e.lookup(k)
	if !ok {
		return d
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not a number", k, v))
		return d
	}
	return f
}

func (e *env) boolVal(k string, d bool) bool {
	v, ok := e.lookup(k)
	if !ok {
		return d
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not a boolean", k, v))
		return d
	}
	return b
}
