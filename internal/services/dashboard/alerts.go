package dashboard

import (
	"fmt"
	"math"
	"time"

	"github.com/LeonardoBeccarini/agrisense/internal/evaluator"
	"github.com/LeonardoBeccarini/agrisense/internal/model/entities"
)

const (
	windWarningMS    = 10.0
	windCriticalMS   = 20.0
	heavyRainMMh     = 10.0
	airSoilGapC      = 15.0
	completenessWarn = 0.8
	completenessCrit = 0.5
	reportingGap     = 2 * time.Hour
)

// SystemAlerts raises the alerts no field band covers: window completeness
// and freshness, wind, rain and air/soil temperature gap, and a probe that
// stopped reporting. It is pure. An empty window raises nothing since the
// snapshot already carries data_unavailable.
func SystemAlerts(res *evaluator.Result, weather *entities.WeatherSnapshot, fresh Freshness, now time.Time) []entities.Alert {
	out := []entities.Alert{}
	if res == nil || res.Latest == nil {
		return out
	}
	out = append(out, dataQualityAlerts(res.Quality, fresh, now)...)
	if weather != nil {
		out = append(out, weatherAlerts(weather, res.Latest, now)...)
	}
	if gap := now.Sub(res.Latest.Timestamp); gap > reportingGap {
		out = append(out, entities.Alert{
			Kind:      entities.AlertSystem,
			Tier:      entities.TierWarning,
			Value:     ptr(math.Round(gap.Minutes())),
			Timestamp: now,
			Message:   fmt.Sprintf("probe has not reported for %s", gap.Truncate(time.Minute)),
			Action:    "Check probe power and network connectivity",
		})
	}
	return out
}

func dataQualityAlerts(q evaluator.Quality, fresh Freshness, now time.Time) []entities.Alert {
	var out []entities.Alert
	pct := q.Completeness * 100
	switch {
	case q.Completeness < completenessCrit:
		out = append(out, entities.Alert{
			Kind:      entities.AlertDataQuality,
			Tier:      entities.TierCritical,
			Value:     ptr(pct),
			Timestamp: now,
			Message:   fmt.Sprintf("only %.0f%% of expected sensor values reported", pct),
			Action:    "Check sensor connections and power supply",
		})
	case q.Completeness < completenessWarn:
		out = append(out, entities.Alert{
			Kind:      entities.AlertDataQuality,
			Tier:      entities.TierWarning,
			Value:     ptr(pct),
			Timestamp: now,
			Message:   fmt.Sprintf("%.0f%% sensor completeness", pct),
			Action:    "Verify all sensors are functioning",
		})
	}

	switch fresh {
	case FreshnessPoor, FreshnessStale:
		out = append(out, entities.Alert{
			Kind:      entities.AlertDataQuality,
			Tier:      entities.TierCritical,
			Timestamp: now,
			Message:   "sensor data is more than 1 hour old",
			Action:    "Check probe connectivity and sensor operation",
		})
	case FreshnessFair:
		out = append(out, entities.Alert{
			Kind:      entities.AlertDataQuality,
			Tier:      entities.TierWarning,
			Timestamp: now,
			Message:   "sensor data may be outdated",
			Action:    "Verify real-time data transmission",
		})
	}
	return out
}

func weatherAlerts(w *entities.WeatherSnapshot, latest *entities.Reading, now time.Time) []entities.Alert {
	var out []entities.Alert
	switch {
	case w.WindSpeed > windCriticalMS:
		out = append(out, entities.Alert{
			Kind:      entities.AlertWeather,
			Tier:      entities.TierCritical,
			Value:     ptr(w.WindSpeed),
			Timestamp: now,
			Message:   fmt.Sprintf("wind at %.1f m/s, avoid spraying", w.WindSpeed),
			Action:    "Postpone pesticide and fertilizer applications, secure equipment",
		})
	case w.WindSpeed > windWarningMS:
		out = append(out, entities.Alert{
			Kind:      entities.AlertWeather,
			Tier:      entities.TierWarning,
			Value:     ptr(w.WindSpeed),
			Timestamp: now,
			Message:   fmt.Sprintf("wind at %.1f m/s may affect spraying", w.WindSpeed),
			Action:    "Use caution with spray applications",
		})
	}

	if w.Rain1h > heavyRainMMh {
		out = append(out, entities.Alert{
			Kind:      entities.AlertWeather,
			Tier:      entities.TierInfo,
			Value:     ptr(w.Rain1h),
			Timestamp: now,
			Message:   fmt.Sprintf("heavy rainfall at %.1f mm/h", w.Rain1h),
			Action:    "Skip irrigation, monitor for flooding",
		})
	}

	if soil, ok := latest.Value(entities.FieldTemperature); ok {
		if gap := math.Abs(w.Temperature - soil); gap > airSoilGapC {
			out = append(out, entities.Alert{
				Kind:      entities.AlertWeather,
				Field:     entities.FieldTemperature,
				Tier:      entities.TierInfo,
				Value:     ptr(gap),
				Timestamp: now,
				Message:   fmt.Sprintf("air (%.1f°C) and soil (%.1f°C) temperatures differ by %.1f°C", w.Temperature, soil, gap),
				Action:    "Monitor for rapid temperature changes",
			})
		}
	}
	return out
}

func ptr(v float64) *float64 { return &v }
