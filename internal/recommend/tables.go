package recommend

import "github.com/LeonardoBeccarini/agrisense/internal/model/entities"

type side struct {
	Tier      entities.Tier
	Direction entities.Direction
}

var (
	normal       = side{entities.TierNormal, entities.DirectionNone}
	warningLow   = side{entities.TierWarning, entities.DirectionLow}
	warningHigh  = side{entities.TierWarning, entities.DirectionHigh}
	criticalLow  = side{entities.TierCritical, entities.DirectionLow}
	criticalHigh = side{entities.TierCritical, entities.DirectionHigh}
)

// anyWeather is the fallback column of a weather-keyed row.
const anyWeather WeatherState = "*"

type row map[WeatherState]Advice

func (r row) pick(s WeatherState) (Advice, bool) {
	if a, ok := r[s]; ok {
		return a, true
	}
	a, ok := r[anyWeather]
	return a, ok
}

// irrigation is keyed by the soil-moisture tier.
var irrigation = map[side]row{
	criticalLow: {
		WeatherRainExpected: {Priority: PriorityMedium, Action: "Light irrigation before expected rain", Timing: "Light watering in 2-3 hours, then monitor rainfall"},
		WeatherHot:          {Priority: PriorityHigh, Action: "Immediate deep irrigation required", Timing: "Within 1-2 hours, early morning or evening preferred"},
		anyWeather:          {Priority: PriorityHigh, Action: "Deep irrigation required", Timing: "Within 1-2 hours, early morning or evening preferred"},
	},
	warningLow: {
		WeatherRainExpected: {Priority: PriorityLow, Action: "Monitor soil conditions", Timing: "Check again after rainfall"},
		WeatherHot:          {Priority: PriorityHigh, Action: "Heat stress mitigation irrigation", Timing: "Immediate light irrigation, then evening watering"},
		anyWeather:          {Priority: PriorityMedium, Action: "Moderate irrigation recommended", Timing: "Next 4-6 hours, preferably early morning"},
	},
	normal: {
		WeatherRainExpected: {Priority: PriorityLow, Action: "Skip scheduled irrigation", Timing: "Resume after the forecast rain"},
		WeatherHot:          {Priority: PriorityMedium, Action: "Add a light evening irrigation", Timing: "Evening, after 6 PM"},
		anyWeather:          {Priority: PriorityLow, Action: "Maintain current irrigation schedule", Timing: "No change"},
	},
	warningHigh: {
		anyWeather: {Priority: PriorityLow, Action: "Reduce or skip irrigation", Timing: "Monitor drainage, avoid irrigation for 24-48 hours"},
	},
	criticalHigh: {
		WeatherRainExpected: {Priority: PriorityHigh, Action: "Stop irrigation and clear drainage channels", Timing: "Before the forecast rain"},
		anyWeather:          {Priority: PriorityHigh, Action: "Stop irrigation, waterlogging risk", Timing: "Avoid irrigation until moisture is back in range"},
	},
}

type nutrientKey struct {
	Field entities.Field
	side
}

// fertilization is keyed by the field with the strongest alert among the
// nutrient and soil chemistry fields.
var fertilization = map[nutrientKey]Advice{
	{entities.FieldNitrogen, criticalLow}:      {Priority: PriorityHigh, Action: "Emergency nitrogen application", Timing: "Apply high-nitrogen fertilizer within 24 hours"},
	{entities.FieldNitrogen, warningLow}:       {Priority: PriorityMedium, Action: "Nitrogen supplementation needed", Timing: "Apply nitrogen-rich fertilizer within 2-3 days"},
	{entities.FieldNitrogen, warningHigh}:      {Priority: PriorityMedium, Action: "Reduce nitrogen inputs", Timing: "Skip next nitrogen application, monitor growth"},
	{entities.FieldNitrogen, criticalHigh}:     {Priority: PriorityHigh, Action: "Stop nitrogen inputs", Timing: "No nitrogen until levels are back in range"},
	{entities.FieldPhosphorus, criticalLow}:    {Priority: PriorityHigh, Action: "Phosphorus fertilization critical", Timing: "Apply phosphorus fertilizer immediately"},
	{entities.FieldPhosphorus, warningLow}:     {Priority: PriorityMedium, Action: "Increase phosphorus application", Timing: "Next fertilization cycle"},
	{entities.FieldPhosphorus, warningHigh}:    {Priority: PriorityLow, Action: "Reduce phosphorus applications", Timing: "Skip phosphorus in next 2 applications"},
	{entities.FieldPhosphorus, criticalHigh}:   {Priority: PriorityMedium, Action: "Stop phosphorus applications, runoff risk", Timing: "Until levels are back in range"},
	{entities.FieldPotassium, criticalLow}:     {Priority: PriorityHigh, Action: "Potassium supplementation urgent", Timing: "Apply potassium fertilizer within 48 hours"},
	{entities.FieldPotassium, warningLow}:      {Priority: PriorityMedium, Action: "Increase potassium levels", Timing: "Next regular fertilization"},
	{entities.FieldPotassium, warningHigh}:     {Priority: PriorityLow, Action: "Reduce potassium applications", Timing: "Next fertilization cycle"},
	{entities.FieldPotassium, criticalHigh}:    {Priority: PriorityMedium, Action: "Stop potassium applications", Timing: "Until levels are back in range"},
	{entities.FieldPH, criticalLow}:            {Priority: PriorityHigh, Action: "Immediate soil pH correction with lime", Timing: "Apply agricultural lime before any other fertilizers"},
	{entities.FieldPH, warningLow}:             {Priority: PriorityMedium, Action: "Light lime application recommended", Timing: "Light lime application in next month"},
	{entities.FieldPH, warningHigh}:            {Priority: PriorityMedium, Action: "Lower soil pH with sulfur amendments", Timing: "Apply elemental sulfur, monitor pH weekly"},
	{entities.FieldPH, criticalHigh}:           {Priority: PriorityHigh, Action: "Lower soil pH before fertilizing", Timing: "Apply elemental sulfur now, re-test in one week"},
	{entities.FieldConductivity, warningHigh}:  {Priority: PriorityMedium, Action: "Monitor and reduce soil salinity", Timing: "Increase leaching irrigation over next week"},
	{entities.FieldConductivity, criticalHigh}: {Priority: PriorityHigh, Action: "Address soil salinity before fertilizing", Timing: "Increase leaching irrigation before next fertilizer application"},
	{entities.FieldTDS, warningHigh}:           {Priority: PriorityMedium, Action: "Check irrigation water for dissolved salts", Timing: "Before next irrigation"},
	{entities.FieldTDS, criticalHigh}:          {Priority: PriorityHigh, Action: "Switch irrigation water source, salt load too high", Timing: "Before next irrigation"},
}

var fertilizationFields = []entities.Field{
	entities.FieldNitrogen,
	entities.FieldPhosphorus,
	entities.FieldPotassium,
	entities.FieldPH,
	entities.FieldConductivity,
	entities.FieldTDS,
}

var fertilizationNormal = Advice{Priority: PriorityLow, Action: "No fertilization needed", Timing: "Re-check at next sampling"}

// timing is keyed by weather alone.
var timing = map[WeatherState]Advice{
	WeatherRainExpected: {Priority: PriorityMedium, Action: "Postpone spraying and fertilizer application", Timing: "After the rain, once the soil has drained"},
	WeatherHot:          {Priority: PriorityHigh, Action: "Avoid midday field operations", Timing: "Limit activities to early morning (5-8 AM) or evening (6-8 PM)"},
	WeatherCold:         {Priority: PriorityMedium, Action: "Delay outdoor activities", Timing: "Wait for temperatures above 8°C"},
	WeatherWindy:        {Priority: PriorityHigh, Action: "Cancel all spraying operations", Timing: "Wait for wind speeds below 15 km/h"},
	WeatherCalm:         {Priority: PriorityLow, Action: "Good conditions for spraying and field work", Timing: "Now"},
}

// risk is keyed by the strongest alert of the whole reading.
var risk = map[side]row{
	criticalLow: {
		WeatherCold: {Priority: PriorityHigh, Action: "Frost and crop damage risk, protect sensitive plants", Timing: "Immediately"},
		anyWeather:  {Priority: PriorityHigh, Action: "Critical field conditions, act on the flagged fields", Timing: "Immediately"},
	},
	criticalHigh: {
		WeatherHot:          {Priority: PriorityHigh, Action: "Severe heat stress, irrigate and shade", Timing: "Immediately"},
		WeatherRainExpected: {Priority: PriorityHigh, Action: "Waterlogging and nutrient runoff risk", Timing: "Before the forecast rain"},
		anyWeather:          {Priority: PriorityHigh, Action: "Critical field conditions, act on the flagged fields", Timing: "Immediately"},
	},
	warningLow: {
		WeatherHot: {Priority: PriorityMedium, Action: "Crop stress developing in the heat", Timing: "Within 24 hours"},
		anyWeather: {Priority: PriorityMedium, Action: "Field conditions drifting out of range", Timing: "Within 2-3 days"},
	},
	warningHigh: {
		WeatherRainExpected: {Priority: PriorityMedium, Action: "Fungal disease risk with rain on wet soil", Timing: "Before the forecast rain"},
		anyWeather:          {Priority: PriorityMedium, Action: "Field conditions drifting out of range", Timing: "Within 2-3 days"},
	},
	normal: {
		WeatherHot:   {Priority: PriorityMedium, Action: "Heat wave forecast, monitor crop stress", Timing: "Daily"},
		WeatherCold:  {Priority: PriorityMedium, Action: "Cold spell, monitor for frost", Timing: "Overnight"},
		WeatherWindy: {Priority: PriorityLow, Action: "Secure loose equipment, strong wind", Timing: "Today"},
		anyWeather:   {Priority: PriorityLow, Action: "No significant risk", Timing: "Continue routine monitoring"},
	},
}
