// Package openweather fetches current conditions and the 3-hourly forecast
// from the OpenWeatherMap 2.5 API.
package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/agrisense/internal/model/entities"
	"github.com/LeonardoBeccarini/agrisense/internal/sources"
	"github.com/LeonardoBeccarini/agrisense/pkg/resilience"
)

const (
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5"
	slotsPerDay    = 8 // 3-hourly forecast
)

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// ForecastDays bounds the forecast kept on the snapshot.
	ForecastDays int
}

type Client struct {
	http  *resty.Client
	cfg   Config
	guard *resilience.Guard
	log   *zap.Logger
}

func NewClient(cfg Config, guard *resilience.Guard, log *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openweather: api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.ForecastDays <= 0 {
		cfg.ForecastDays = 5
	}
	if guard == nil {
		guard = resilience.NewGuard(resilience.Settings{Name: "openweather"})
	}
	h := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetQueryParams(map[string]string{"appid": cfg.APIKey, "units": "metric"})
	return &Client{http: h, cfg: cfg, guard: guard, log: log}, nil
}

type owmWeather struct {
	Description string `json:"description"`
}

type owmMain struct {
	Temp     float64 `json:"temp"`
	TempMin  float64 `json:"temp_min"`
	TempMax  float64 `json:"temp_max"`
	Humidity float64 `json:"humidity"`
	Pressure float64 `json:"pressure"`
}

type owmWind struct {
	Speed float64 `json:"speed"`
	Deg   float64 `json:"deg"`
}

type owmClouds struct {
	All float64 `json:"all"`
}

type owmRain struct {
	OneHour   float64 `json:"1h"`
	ThreeHour float64 `json:"3h"`
}

type currentResponse struct {
	Coord struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	Weather    []owmWeather `json:"weather"`
	Main       owmMain      `json:"main"`
	Visibility float64      `json:"visibility"` // metres
	Wind       owmWind      `json:"wind"`
	Clouds     owmClouds    `json:"clouds"`
	Rain       *owmRain     `json:"rain"`
	Dt         int64        `json:"dt"`
}

type forecastResponse struct {
	List []struct {
		Dt      int64        `json:"dt"`
		Main    owmMain      `json:"main"`
		Weather []owmWeather `json:"weather"`
		Wind    owmWind      `json:"wind"`
		Clouds  owmClouds    `json:"clouds"`
		Rain    *owmRain     `json:"rain"`
	} `json:"list"`
}

// Snapshot combines current conditions and forecast. A forecast failure
// degrades to a current-only snapshot; a current failure wraps
// sources.ErrDataUnavailable.
func (c *Client) Snapshot(ctx context.Context, lat, lon float64) (*entities.WeatherSnapshot, error) {
	snap, err := c.Current(ctx, lat, lon)
	if err != nil {
		return nil, err
	}
	forecast, err := c.Forecast(ctx, lat, lon)
	if err != nil {
		c.log.Warn("forecast unavailable, using current conditions only", zap.Error(err))
	}
	snap.Forecast = forecast
	snap.RainNext24h = RainNext24h(forecast)
	if et0, ok := ET0Next24h(forecast); ok {
		snap.ET0 = et0
	}
	return snap, nil
}

func (c *Client) Current(ctx context.Context, lat, lon float64) (*entities.WeatherSnapshot, error) {
	var body currentResponse
	if err := c.get(ctx, "/weather", lat, lon, &body); err != nil {
		return nil, sources.Unavailable("openweather current", err)
	}
	snap := &entities.WeatherSnapshot{
		Latitude:    lat,
		Longitude:   lon,
		Temperature: body.Main.Temp,
		Humidity:    body.Main.Humidity,
		Pressure:    body.Main.Pressure,
		WindSpeed:   body.Wind.Speed,
		WindDeg:     body.Wind.Deg,
		Cloudiness:  body.Clouds.All,
		Visibility:  body.Visibility / 1000,
		Description: description(body.Weather),
		Timestamp:   time.Unix(body.Dt, 0).UTC(),
	}
	if body.Rain != nil {
		snap.Rain1h = body.Rain.OneHour
	}
	// replaced by the forecast estimate when one is available
	snap.ET0 = Hargreaves(body.Main.TempMin, body.Main.TempMax)
	return snap, nil
}

func (c *Client) Forecast(ctx context.Context, lat, lon float64) ([]entities.ForecastPoint, error) {
	var body forecastResponse
	if err := c.get(ctx, "/forecast", lat, lon, &body); err != nil {
		return nil, sources.Unavailable("openweather forecast", err)
	}
	limit := c.cfg.ForecastDays * slotsPerDay
	out := make([]entities.ForecastPoint, 0, min(len(body.List), limit))
	for i, item := range body.List {
		if i >= limit {
			break
		}
		p := entities.ForecastPoint{
			Time:        time.Unix(item.Dt, 0).UTC(),
			Temperature: item.Main.Temp,
			TempMin:     item.Main.TempMin,
			TempMax:     item.Main.TempMax,
			Humidity:    item.Main.Humidity,
			WindSpeed:   item.Wind.Speed,
			Cloudiness:  item.Clouds.All,
			Description: description(item.Weather),
		}
		if item.Rain != nil {
			p.RainMM = item.Rain.ThreeHour
		}
		out = append(out, p)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, lat, lon float64, into any) error {
	return c.guard.Do(ctx, func(ctx context.Context) error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParam("lat", strconv.FormatFloat(lat, 'f', -1, 64)).
			SetQueryParam("lon", strconv.FormatFloat(lon, 'f', -1, 64)).
			Get(path)
		if err != nil {
			return err
		}
		if resp.IsError() {
			body := resp.String()
			if len(body) > 256 {
				body = body[:256]
			}
			err := fmt.Errorf("%s: status %d: %s", path, resp.StatusCode(), body)
			if resp.StatusCode() < 500 && resp.StatusCode() != http.StatusTooManyRequests {
				return resilience.Permanent(err)
			}
			return err
		}
		if err := json.Unmarshal(resp.Body(), into); err != nil {
			return resilience.Permanent(fmt.Errorf("%s: decode: %w", path, err))
		}
		return nil
	})
}

func description(ws []owmWeather) string {
	if len(ws) == 0 {
		return ""
	}
	return ws[0].Description
}
