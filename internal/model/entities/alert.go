package entities

import "time"

// Tier is the severity of a field value against its band.
type Tier string

const (
	TierNormal   Tier = "normal"
	TierInfo     Tier = "info"
	TierWarning  Tier = "warning"
	TierCritical Tier = "critical"
)

// Rank orders tiers; higher is more severe.
func (t Tier) Rank() int {
	switch t {
	case TierInfo:
		return 1
	case TierWarning:
		return 2
	case TierCritical:
		return 3
	}
	return 0
}

// Direction tells on which side of the optimal range a value lies.
type Direction string

const (
	DirectionNone Direction = ""
	DirectionLow  Direction = "low"
	DirectionHigh Direction = "high"
)

// ThresholdBand is the per-field, per-crop band:
// CriticalLow <= OptimalLow <= OptimalHigh <= CriticalHigh.
type ThresholdBand struct {
	OptimalLow   float64 `json:"optimal_low"`
	OptimalHigh  float64 `json:"optimal_high"`
	CriticalLow  float64 `json:"critical_low"`
	CriticalHigh float64 `json:"critical_high"`
}

// Width of the optimal range.
func (b ThresholdBand) Width() float64 { return b.OptimalHigh - b.OptimalLow }

// Classify maps a value to its tier and side.
func (b ThresholdBand) Classify(v float64) (Tier, Direction) {
	switch {
	case v < b.CriticalLow:
		return TierCritical, DirectionLow
	case v > b.CriticalHigh:
		return TierCritical, DirectionHigh
	case v >= b.OptimalLow && v <= b.OptimalHigh:
		return TierNormal, DirectionNone
	case v < b.OptimalLow:
		return TierWarning, DirectionLow
	default:
		return TierWarning, DirectionHigh
	}
}

// AlertKind tells what raised an alert.
type AlertKind string

const (
	AlertField       AlertKind = "field"
	AlertWeather     AlertKind = "weather"
	AlertDataQuality AlertKind = "data_quality"
	AlertSystem      AlertKind = "system"
)

// Alert is emitted every time the latest reading breaches a band, or when the
// window, the weather or the probe link cross a fixed limit. Alerts are
// re-derived on every evaluation, there is no dedup or hysteresis.
type Alert struct {
	Kind      AlertKind     `json:"kind"`
	Field     Field         `json:"field,omitempty"`
	Tier      Tier          `json:"tier"`
	Direction Direction     `json:"direction,omitempty"`
	Value     *float64      `json:"value,omitempty"` // nil for missing-field info alerts
	Band      ThresholdBand `json:"band"`
	Timestamp time.Time     `json:"timestamp"`
	Message   string        `json:"message"`
	Action    string        `json:"action,omitempty"`
}
