package recommend

import "github.com/LeonardoBeccarini/agrisense/internal/model/entities"

// WeatherState is the qualitative reading of a weather snapshot the decision
// tables are keyed on.
type WeatherState string

const (
	WeatherRainExpected WeatherState = "rain_expected"
	WeatherHot          WeatherState = "hot"
	WeatherCold         WeatherState = "cold"
	WeatherWindy        WeatherState = "windy"
	WeatherCalm         WeatherState = "calm"
	WeatherUnknown      WeatherState = "unknown"
)

const (
	rainExpectedMM = 5.0  // forecast rain over the next 24h
	hotC           = 35.0 // air temperature
	coldC          = 5.0
	windyKmh       = 20.0 // spray drift becomes dangerous
)

// ClassifyWeather maps a snapshot to a single state. When several apply the
// first in the order rain, hot, cold, windy wins.
func ClassifyWeather(w *entities.WeatherSnapshot) WeatherState {
	if w == nil {
		return WeatherUnknown
	}
	switch {
	case w.RainNext24h > rainExpectedMM || w.Rain1h > rainExpectedMM:
		return WeatherRainExpected
	case w.Temperature > hotC:
		return WeatherHot
	case w.Temperature < coldC:
		return WeatherCold
	case w.WindSpeed*3.6 > windyKmh:
		return WeatherWindy
	default:
		return WeatherCalm
	}
}
