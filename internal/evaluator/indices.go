package evaluator

import (
	"math"

	"github.com/LeonardoBeccarini/agrisense/internal/model/entities"
)

// Indices are agronomic scores on a 0..100 scale derived from the latest
// reading. A nil index means its inputs were not reported.
type Indices struct {
	Fertility   *float64 `json:"fertility_index,omitempty"`
	SoilHealth  *float64 `json:"soil_health_score,omitempty"`
	WaterStress *float64 `json:"water_stress_index,omitempty"`
}

const (
	refNitrogen   = 50.0
	refPhosphorus = 40.0
	refPotassium  = 50.0
	optimalPH     = 6.8
	ecComfortMax  = 200.0
	optimalMoist  = 60.0
	heatOnset     = 30.0
)

func computeIndices(r entities.Reading) Indices {
	var idx Indices

	n, okN := r.Value(entities.FieldNitrogen)
	p, okP := r.Value(entities.FieldPhosphorus)
	k, okK := r.Value(entities.FieldPotassium)
	if okN && okP && okK && n > 0 && p > 0 && k > 0 {
		v := (math.Min(n/refNitrogen*100, 100) +
			math.Min(p/refPhosphorus*100, 100) +
			math.Min(k/refPotassium*100, 100)) / 3
		idx.Fertility = &v
	}

	ph, okPH := r.Value(entities.FieldPH)
	ec, okEC := r.Value(entities.FieldConductivity)
	if okPH && okEC {
		phScore := math.Max(0, math.Min(100, 100-math.Abs(ph-optimalPH)*20))
		ecScore := 100.0
		if ec >= ecComfortMax {
			ecScore = math.Max(0, 100-(ec-ecComfortMax)/10)
		}
		v := (phScore + ecScore) / 2
		idx.SoilHealth = &v
	}

	temp, okT := r.Value(entities.FieldTemperature)
	hum, okH := r.Value(entities.FieldHumidity)
	if okT && okH {
		tempFactor := math.Max(0, (temp-heatOnset)/10)
		humFactor := math.Abs(hum-optimalMoist) / 30
		v := math.Min(100, (tempFactor+humFactor)*50)
		idx.WaterStress = &v
	}
	return idx
}
