package entities

import "time"

// ForecastPoint is one 3-hourly forecast slot.
type ForecastPoint struct {
	Time        time.Time `json:"time"`
	Temperature float64   `json:"temperature"`
	TempMin     float64   `json:"temp_min"`
	TempMax     float64   `json:"temp_max"`
	Humidity    float64   `json:"humidity"`
	WindSpeed   float64   `json:"wind_speed"` // m/s
	Cloudiness  float64   `json:"cloudiness"`
	RainMM      float64   `json:"rain_mm"` // mm over the 3h slot
	Description string    `json:"description"`
}

// WeatherSnapshot holds current conditions for the field coordinate plus the
// forecast-derived aggregates the recommendation tables look at.
type WeatherSnapshot struct {
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	Pressure    float64   `json:"pressure"`
	WindSpeed   float64   `json:"wind_speed"` // m/s
	WindDeg     float64   `json:"wind_deg"`
	Cloudiness  float64   `json:"cloudiness"`
	Visibility  float64   `json:"visibility_km"`
	Rain1h      float64   `json:"rain_1h_mm"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`

	Forecast    []ForecastPoint `json:"forecast,omitempty"`
	RainNext24h float64         `json:"rain_next_24h_mm"`
	ET0         float64         `json:"et0_mm"` // reference evapotranspiration for the next 24h
}
