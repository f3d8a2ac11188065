package thresholds

import "github.com/LeonardoBeccarini/agrisense/internal/model/entities"

// DefaultProfile is used when no CROP_PROFILE is configured.
const DefaultProfile = "general"

func band(critLow, optLow, optHigh, critHigh float64) *entities.ThresholdBand {
	return &entities.ThresholdBand{
		CriticalLow:  critLow,
		OptimalLow:   optLow,
		OptimalHigh:  optHigh,
		CriticalHigh: critHigh,
	}
}

// Default returns the built-in crop profiles. The "general" profile follows
// the field agronomy defaults; the crop ones narrow pH, moisture and
// temperature to the crop's usual window.
func Default() Table {
	t := Table{
		"general": {
			Name:         "General field crop",
			Temperature:  band(10, 20, 30, 40),
			Humidity:     band(20, 40, 70, 90),
			PH:           band(4.5, 6.0, 7.5, 9.0),
			Nitrogen:     band(5, 20, 50, 100),
			Phosphorus:   band(5, 15, 40, 80),
			Potassium:    band(5, 20, 50, 100),
			Conductivity: band(0, 0, 250, 600),
			TDS:          band(0, 0, 160, 400),
		},
		"maize": {
			Name:         "Maize",
			Temperature:  band(10, 18, 32, 40),
			Humidity:     band(25, 50, 75, 90),
			PH:           band(5.0, 5.8, 7.0, 8.5),
			Nitrogen:     band(10, 25, 60, 120),
			Phosphorus:   band(5, 15, 40, 80),
			Potassium:    band(8, 20, 50, 100),
			Conductivity: band(0, 0, 250, 600),
			TDS:          band(0, 0, 160, 400),
		},
		"tomato": {
			Name:         "Tomato",
			Temperature:  band(10, 20, 28, 35),
			Humidity:     band(30, 60, 80, 95),
			PH:           band(5.0, 6.0, 6.8, 8.0),
			Nitrogen:     band(8, 20, 50, 100),
			Phosphorus:   band(8, 20, 50, 90),
			Potassium:    band(10, 25, 60, 120),
			Conductivity: band(0, 0, 300, 700),
			TDS:          band(0, 0, 200, 450),
		},
		"rice": {
			Name:         "Rice (paddy)",
			Temperature:  band(12, 20, 35, 42),
			Humidity:     band(50, 70, 100, 100),
			PH:           band(4.5, 5.5, 7.0, 8.5),
			Nitrogen:     band(5, 20, 50, 100),
			Phosphorus:   band(5, 10, 40, 80),
			Potassium:    band(5, 15, 50, 100),
			Conductivity: band(0, 0, 200, 500),
			TDS:          band(0, 0, 130, 330),
		},
	}
	for id, p := range t {
		p.ID = id
		t[id] = p
	}
	return t
}
