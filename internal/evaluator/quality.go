package evaluator

import "github.com/LeonardoBeccarini/agrisense/internal/model/entities"

// plausibleRange is the absolute physical range of a field. Values outside
// it are not errors: the reading is flagged implausible and the quality
// score drops.
type plausibleRange struct{ Min, Max float64 }

var plausible = map[entities.Field]plausibleRange{
	entities.FieldTemperature:  {-20, 70},
	entities.FieldHumidity:     {0, 100},
	entities.FieldPH:           {0, 14},
	entities.FieldNitrogen:     {0, 200},
	entities.FieldPhosphorus:   {0, 200},
	entities.FieldPotassium:    {0, 200},
	entities.FieldConductivity: {0, 5000},
	entities.FieldTDS:          {0, 3000},
}

// Plausible reports whether v is physically possible for f.
func Plausible(f entities.Field, v float64) bool {
	r, ok := plausible[f]
	if !ok {
		return true
	}
	return v >= r.Min && v <= r.Max
}

// Quality details the quality score of a window.
type Quality struct {
	Score            float64 `json:"score"`
	Completeness     float64 `json:"completeness"`
	ImplausibleRatio float64 `json:"implausible_ratio"`
	ReadingCount     int     `json:"reading_count"`
	ImplausibleCount int     `json:"implausible_count"`
}

// assessQuality computes completeness x (1 - implausibleRatio), clamped to [0,1].
func assessQuality(readings []entities.Reading) Quality {
	q := Quality{ReadingCount: len(readings)}
	if len(readings) == 0 {
		return q
	}

	expected := len(readings) * len(entities.AllFields)
	present := 0
	for _, r := range readings {
		present += r.PresentCount()
		if !readingPlausible(r) {
			q.ImplausibleCount++
		}
	}
	q.Completeness = float64(present) / float64(expected)
	q.ImplausibleRatio = float64(q.ImplausibleCount) / float64(len(readings))
	q.Score = clamp01(q.Completeness * (1 - q.ImplausibleRatio))
	return q
}

func readingPlausible(r entities.Reading) bool {
	for _, f := range entities.AllFields {
		if v, ok := r.Value(f); ok && !Plausible(f, v) {
			return false
		}
	}
	return true
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
