package openweather

import (
	"math"

	"github.com/LeonardoBeccarini/agrisense/internal/model/entities"
)

// raSimplified is the constant extraterrestrial-radiation term that turns the
// Hargreaves result into mm/day.
const raSimplified = 0.408

// Hargreaves is the simplified Hargreaves reference evapotranspiration.
func Hargreaves(tmin, tmax float64) float64 {
	tmean := (tmin + tmax) / 2.0
	return 0.0023 * (tmean + 17.8) * math.Sqrt(math.Max(tmax-tmin, 0)) * raSimplified
}

// RainNext24h sums the rain of the first day of forecast slots.
func RainNext24h(forecast []entities.ForecastPoint) float64 {
	total := 0.0
	for i, p := range forecast {
		if i >= slotsPerDay {
			break
		}
		total += p.RainMM
	}
	return total
}

// ET0Next24h applies Hargreaves to the min/max temperature of the next 24h
// of forecast.
func ET0Next24h(forecast []entities.ForecastPoint) (float64, bool) {
	if len(forecast) == 0 {
		return 0, false
	}
	tmin, tmax := math.Inf(1), math.Inf(-1)
	for i, p := range forecast {
		if i >= slotsPerDay {
			break
		}
		tmin = math.Min(tmin, p.TempMin)
		tmax = math.Max(tmax, p.TempMax)
	}
	return Hargreaves(tmin, tmax), true
}
