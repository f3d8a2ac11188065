package dashboard

import (
	"time"

	"github.com/LeonardoBeccarini/agrisense/internal/evaluator"
	"github.com/LeonardoBeccarini/agrisense/internal/model/entities"
	"github.com/LeonardoBeccarini/agrisense/internal/model/messages"
	"github.com/LeonardoBeccarini/agrisense/internal/recommend"
)

// Snapshot is the outcome of one refresh cycle. Snapshots are immutable once
// stored; handlers read them without copying.
type Snapshot struct {
	CycleID          string    `json:"cycle_id"`
	Profile          string    `json:"profile"`
	RequestedProfile string    `json:"requested_profile"`
	FallbackUsed     bool      `json:"fallback_used"`
	GeneratedAt      time.Time `json:"generated_at"`
	DurationMS       int64     `json:"duration_ms"`

	DataUnavailable    bool   `json:"data_unavailable"`
	SourceError        string `json:"source_error,omitempty"`
	WeatherUnavailable bool   `json:"weather_unavailable"`

	Freshness  Freshness  `json:"freshness"`
	LatestAt   *time.Time `json:"latest_at,omitempty"`
	AgeMinutes *float64   `json:"age_minutes,omitempty"`

	Readings        []entities.Reading        `json:"readings"`
	Result          *evaluator.Result         `json:"evaluation"`
	Weather         *entities.WeatherSnapshot `json:"weather,omitempty"`
	Recommendations recommend.Recommendations `json:"recommendations"`
	SystemAlerts    []entities.Alert          `json:"system_alerts"`
}

// Alerts returns the field alerts of the evaluation followed by the system
// alerts of the cycle.
func (s *Snapshot) Alerts() []entities.Alert {
	out := []entities.Alert{}
	if s.Result != nil {
		out = append(out, s.Result.Alerts...)
	}
	return append(out, s.SystemAlerts...)
}

// Event builds the message published after the cycle.
func (s *Snapshot) Event() messages.EvaluationEvent {
	ev := messages.EvaluationEvent{
		CycleID:         s.CycleID,
		Profile:         s.Profile,
		Freshness:       string(s.Freshness),
		DataUnavailable: s.DataUnavailable,
		Readings:        len(s.Readings),
		Alerts:          s.Alerts(),
		Trends:          map[entities.Field]string{},
		Advice:          s.Recommendations.Actions(),
		Timestamp:       s.GeneratedAt,
	}
	if s.Result != nil {
		ev.QualityScore = s.Result.QualityScore
		ev.Anomalies = s.Result.Anomalies()
		for f, tr := range s.Result.Trends {
			if tr.Available {
				ev.Trends[f] = string(tr.Direction)
			}
		}
	}
	return ev
}
