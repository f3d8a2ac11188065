package model

import (
	"github.com/LeonardoBeccarini/agrisense/internal/model/entities"
	"github.com/LeonardoBeccarini/agrisense/internal/model/messages"
)

// Aliases so services can import a single package for the common types.

type (
	Field           = entities.Field
	Reading         = entities.Reading
	GPS             = entities.GPS
	ThresholdBand   = entities.ThresholdBand
	Alert           = entities.Alert
	Tier            = entities.Tier
	WeatherSnapshot = entities.WeatherSnapshot
	ForecastPoint   = entities.ForecastPoint
	SensorReading   = messages.SensorReading
	EvaluationEvent = messages.EvaluationEvent
)

const (
	TierNormal   = entities.TierNormal
	TierInfo     = entities.TierInfo
	TierWarning  = entities.TierWarning
	TierCritical = entities.TierCritical
)
