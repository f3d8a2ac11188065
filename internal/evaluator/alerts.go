package evaluator

import (
	"fmt"

	"github.com/LeonardoBeccarini/agrisense/internal/model/entities"
	"github.com/LeonardoBeccarini/agrisense/internal/thresholds"
)

// tierLatest compares each present field of the latest reading against its
// band and returns one alert per non-normal field, in canonical order.
func tierLatest(latest entities.Reading, profile thresholds.Profile, alertOnMissing bool) []entities.Alert {
	alerts := []entities.Alert{}
	for _, f := range entities.AllFields {
		b, ok := profile.Band(f)
		if !ok {
			continue
		}
		v, present := latest.Value(f)
		if !present {
			if alertOnMissing {
				alerts = append(alerts, entities.Alert{
					Kind:      entities.AlertField,
					Field:     f,
					Tier:      entities.TierInfo,
					Band:      b,
					Timestamp: latest.Timestamp,
					Message:   fmt.Sprintf("%s not reported by the latest reading", f),
				})
			}
			continue
		}
		tier, dir := b.Classify(v)
		if tier == entities.TierNormal {
			continue
		}
		val := v
		alerts = append(alerts, entities.Alert{
			Kind:      entities.AlertField,
			Field:     f,
			Tier:      tier,
			Direction: dir,
			Value:     &val,
			Band:      b,
			Timestamp: latest.Timestamp,
			Message:   alertMessage(f, tier, dir, v, b),
		})
	}
	return alerts
}

func alertMessage(f entities.Field, tier entities.Tier, dir entities.Direction, v float64, b entities.ThresholdBand) string {
	return fmt.Sprintf("%s %s %s at %.2f%s (optimal %.2f-%.2f)",
		f, tier, dir, v, unitSuffix(f), b.OptimalLow, b.OptimalHigh)
}

func unitSuffix(f entities.Field) string {
	if u := f.Unit(); u != "" && u != "pH" {
		return " " + u
	}
	return ""
}
