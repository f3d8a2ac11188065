// Package recommend turns an evaluation result and a weather snapshot into
// one advisory per category. It only advises; nothing here drives hardware.
package recommend

import (
	"fmt"
	"strings"

	"github.com/LeonardoBeccarini/agrisense/internal/evaluator"
	"github.com/LeonardoBeccarini/agrisense/internal/model/entities"
)

type Category string

const (
	CategoryIrrigation    Category = "irrigation"
	CategoryFertilization Category = "fertilization"
	CategoryTiming        Category = "timing"
	CategoryRisk          Category = "risk"
)

// Categories in presentation order.
var Categories = []Category{CategoryIrrigation, CategoryFertilization, CategoryTiming, CategoryRisk}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
	PriorityNone   Priority = "none"
)

const InsufficientData = "Insufficient data"

// lowQuality is the score under which the risk advisory warns about the
// sensors themselves rather than the field.
const lowQuality = 0.5

type Advice struct {
	Category Category `json:"category"`
	Priority Priority `json:"priority"`
	Action   string   `json:"action"`
	Reason   string   `json:"reason"`
	Timing   string   `json:"timing,omitempty"`
}

type Recommendations struct {
	Weather       WeatherState `json:"weather_state"`
	Irrigation    Advice       `json:"irrigation"`
	Fertilization Advice       `json:"fertilization"`
	Timing        Advice       `json:"timing"`
	Risk          Advice       `json:"risk"`
}

// All returns the advisories in Categories order.
func (r Recommendations) All() []Advice {
	return []Advice{r.Irrigation, r.Fertilization, r.Timing, r.Risk}
}

// Actions maps each category to its action line.
func (r Recommendations) Actions() map[string]string {
	out := make(map[string]string, len(Categories))
	for _, a := range r.All() {
		out[string(a.Category)] = a.Action
	}
	return out
}

// Recommend is pure. A nil result or a nil weather snapshot yields the
// insufficient-data advisory in the categories that need it.
func Recommend(result *evaluator.Result, weather *entities.WeatherSnapshot) Recommendations {
	state := ClassifyWeather(weather)
	return Recommendations{
		Weather:       state,
		Irrigation:    irrigate(result, state),
		Fertilization: fertilize(result, state),
		Timing:        schedule(weather, state),
		Risk:          assessRisk(result, state),
	}
}

func insufficient(c Category, reason string) Advice {
	return Advice{Category: c, Priority: PriorityNone, Action: InsufficientData, Reason: reason}
}

func irrigate(result *evaluator.Result, state WeatherState) Advice {
	moisture, ok := latestValue(result, entities.FieldHumidity)
	if !ok {
		return insufficient(CategoryIrrigation, "no soil moisture reading")
	}
	s := sideOf(result, entities.FieldHumidity)
	a, ok := irrigation[s].pick(state)
	if !ok {
		return insufficient(CategoryIrrigation, "no rule for soil moisture "+string(s.Tier))
	}
	a.Category = CategoryIrrigation
	a.Reason = fmt.Sprintf("soil moisture %.1f%% (%s), weather %s", moisture, describe(s), state)
	return a
}

func fertilize(result *evaluator.Result, state WeatherState) Advice {
	if result == nil || result.Latest == nil || !anyPresent(result.Latest, fertilizationFields) {
		return insufficient(CategoryFertilization, "no nutrient or soil chemistry reading")
	}

	field, s := strongest(result, fertilizationFields)
	if s == normal {
		a := fertilizationNormal
		a.Category = CategoryFertilization
		a.Reason = "nutrients and soil chemistry within the optimal range"
		return a
	}
	a, ok := fertilization[nutrientKey{field, s}]
	if !ok {
		a = Advice{Priority: PriorityMedium, Action: fmt.Sprintf("Investigate %s", field), Timing: "Next field visit"}
	}
	a.Category = CategoryFertilization
	v, _ := result.Latest.Value(field)
	a.Reason = fmt.Sprintf("%s %.2f (%s)", field, v, describe(s))
	if state == WeatherRainExpected && s.Direction == entities.DirectionLow {
		a.Timing = "After the forecast rain, to avoid leaching"
	}
	return a
}

func schedule(weather *entities.WeatherSnapshot, state WeatherState) Advice {
	a, ok := timing[state]
	if !ok {
		return insufficient(CategoryTiming, "no weather data")
	}
	a.Category = CategoryTiming
	a.Reason = fmt.Sprintf("air %.1f°C, wind %.1f km/h, rain next 24h %.1f mm",
		weather.Temperature, weather.WindSpeed*3.6, weather.RainNext24h)
	return a
}

func assessRisk(result *evaluator.Result, state WeatherState) Advice {
	if result == nil {
		return insufficient(CategoryRisk, "no evaluation")
	}
	if result.Latest == nil {
		return insufficient(CategoryRisk, "no sensor readings in the window")
	}

	field, s := strongest(result, entities.AllFields)
	a, _ := risk[s].pick(state)
	a.Category = CategoryRisk

	if s == normal {
		if anomalies := result.Anomalies(); len(anomalies) > 0 {
			a.Priority = PriorityMedium
			a.Action = "Sensor anomaly, verify readings"
			a.Timing = "Next field visit"
			a.Reason = "anomalous values on " + joinFields(anomalies)
			return a
		}
		if result.QualityScore < lowQuality {
			a.Priority = PriorityMedium
			a.Action = "Low data quality, check the sensors"
			a.Timing = "Next field visit"
			a.Reason = fmt.Sprintf("quality score %.2f", result.QualityScore)
			return a
		}
		a.Reason = fmt.Sprintf("all reported fields in range, weather %s", state)
		return a
	}
	a.Reason = fmt.Sprintf("%s is %s, %d field(s) out of range, weather %s",
		field, describe(s), outOfRange(result), state)
	return a
}

func latestValue(result *evaluator.Result, f entities.Field) (float64, bool) {
	if result == nil || result.Latest == nil {
		return 0, false
	}
	return result.Latest.Value(f)
}

func sideOf(result *evaluator.Result, f entities.Field) side {
	a, ok := result.AlertFor(f)
	if !ok {
		return normal
	}
	return side{a.Tier, a.Direction}
}

// strongest returns the first field, in the given order, carrying the most
// severe alert.
func strongest(result *evaluator.Result, fields []entities.Field) (entities.Field, side) {
	var best entities.Field
	bestSide := normal
	for _, f := range fields {
		s := sideOf(result, f)
		if s.Tier.Rank() > bestSide.Tier.Rank() {
			best, bestSide = f, s
		}
	}
	return best, bestSide
}

func anyPresent(r *entities.Reading, fields []entities.Field) bool {
	for _, f := range fields {
		if _, ok := r.Value(f); ok {
			return true
		}
	}
	return false
}

func outOfRange(result *evaluator.Result) int {
	n := 0
	for _, a := range result.Alerts {
		if a.Tier != entities.TierInfo {
			n++
		}
	}
	return n
}

func describe(s side) string {
	if s.Direction == entities.DirectionNone {
		return string(s.Tier)
	}
	return string(s.Tier) + " " + string(s.Direction)
}

func joinFields(fs []entities.Field) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = string(f)
	}
	return strings.Join(parts, ", ")
}
