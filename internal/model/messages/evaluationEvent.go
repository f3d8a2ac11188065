package messages

import (
	"time"

	"github.com/LeonardoBeccarini/agrisense/internal/model/entities"
)

// EvaluationEvent is published by the dashboard service after every refresh
// cycle on dashboard/evaluation/{profile}.
type EvaluationEvent struct {
	CycleID         string                    `json:"cycle_id"`
	Profile         string                    `json:"profile"`
	QualityScore    float64                   `json:"quality_score"`
	Freshness       string                    `json:"freshness"`
	DataUnavailable bool                      `json:"data_unavailable"`
	Readings        int                       `json:"readings"`
	Alerts          []entities.Alert          `json:"alerts"`
	Trends          map[entities.Field]string `json:"trends"`
	Anomalies       []entities.Field          `json:"anomalies"`
	Advice          map[string]string         `json:"advice"` // category -> action
	Timestamp       time.Time                 `json:"timestamp"`
}
