// Package evaluator scores the quality of a window of sensor readings, derives
// per-field statistics and trends, and tiers the latest reading against the
// bands of the active crop profile.
//
// Evaluate is pure: no I/O, no clock, no randomness. Calling it twice with the
// same window and table yields equal results.
package evaluator

import (
	"github.com/LeonardoBeccarini/agrisense/internal/model/entities"
	"github.com/LeonardoBeccarini/agrisense/internal/thresholds"
)

const (
	DefaultAnomalyK     = 2.0
	DefaultTrendEpsilon = 0.01
)

// Options selects the crop profile and tunes the trend and anomaly tests.
// Zero AnomalyK or TrendEpsilon means the package default.
type Options struct {
	Profile string
	// AnomalyK is the number of standard deviations the latest value may
	// stray from the window mean before it is flagged.
	AnomalyK float64
	// TrendEpsilon is relative to the optimal-band width of each field.
	TrendEpsilon float64
	// AlertOnMissing emits an info alert for each expected field the latest
	// reading does not carry.
	AlertOnMissing bool
}

func (o Options) withDefaults() Options {
	if o.AnomalyK <= 0 {
		o.AnomalyK = DefaultAnomalyK
	}
	if o.TrendEpsilon <= 0 {
		o.TrendEpsilon = DefaultTrendEpsilon
	}
	return o
}

// Result is the output of one evaluation pass.
type Result struct {
	Profile      string                          `json:"profile"`
	QualityScore float64                         `json:"quality_score"`
	Quality      Quality                         `json:"quality"`
	Alerts       []entities.Alert                `json:"alerts"`
	Trends       map[entities.Field]TrendSummary `json:"trends"`
	Stats        map[entities.Field]FieldStats   `json:"stats"`
	Indices      Indices                         `json:"indices"`
	Latest       *entities.Reading               `json:"latest,omitempty"`
}

// StrongestTier returns the most severe tier among the alerts, or normal.
func (r *Result) StrongestTier(fields ...entities.Field) entities.Tier {
	if r == nil {
		return entities.TierNormal
	}
	best := entities.TierNormal
	for _, a := range r.Alerts {
		if len(fields) > 0 && !containsField(fields, a.Field) {
			continue
		}
		if a.Tier.Rank() > best.Rank() {
			best = a.Tier
		}
	}
	return best
}

// AlertFor returns the alert of a field, if any.
func (r *Result) AlertFor(f entities.Field) (entities.Alert, bool) {
	if r == nil {
		return entities.Alert{}, false
	}
	for _, a := range r.Alerts {
		if a.Field == f && a.Tier != entities.TierInfo {
			return a, true
		}
	}
	return entities.Alert{}, false
}

// Anomalies lists the fields flagged as anomalous, in canonical order.
func (r *Result) Anomalies() []entities.Field {
	if r == nil {
		return nil
	}
	var out []entities.Field
	for _, f := range entities.AllFields {
		if r.Trends[f].Anomaly {
			out = append(out, f)
		}
	}
	return out
}

// Evaluate runs the quality, statistics, trend and alert passes over the
// window (oldest first). The only error is a *thresholds.ConfigurationError
// for an unknown profile or a profile with a missing or out-of-order band.
func Evaluate(readings []entities.Reading, table thresholds.Table, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	profile, err := table.Lookup(opts.Profile)
	if err != nil {
		return nil, err
	}
	// Table is a plain map and may not have gone through Parse.
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	res := &Result{
		Profile: profile.ID,
		Alerts:  []entities.Alert{},
		Trends:  make(map[entities.Field]TrendSummary, len(entities.AllFields)),
		Stats:   make(map[entities.Field]FieldStats, len(entities.AllFields)),
	}

	res.Quality = assessQuality(readings)
	res.QualityScore = res.Quality.Score

	for _, f := range entities.AllFields {
		pts := series(readings, f)
		st := computeStats(pts)
		res.Stats[f] = st

		b, ok := profile.Band(f)
		if !ok {
			return nil, &thresholds.ConfigurationError{Profile: profile.ID, Field: string(f), Reason: "missing band"}
		}
		tr := computeTrend(pts, opts.TrendEpsilon*b.Width())
		tr.Anomaly = isAnomaly(pts, st, opts.AnomalyK)
		res.Trends[f] = tr
	}

	if n := len(readings); n > 0 {
		latest := copyReading(readings[n-1])
		res.Latest = &latest
		res.Alerts = tierLatest(latest, profile, opts.AlertOnMissing)
		res.Indices = computeIndices(latest)
	}
	return res, nil
}

// point is one non-null sample of a field; X is the index in the window.
type point struct {
	X float64
	Y float64
}

func series(readings []entities.Reading, f entities.Field) []point {
	pts := make([]point, 0, len(readings))
	for i, r := range readings {
		if v, ok := r.Value(f); ok {
			pts = append(pts, point{X: float64(i), Y: v})
		}
	}
	return pts
}

func copyReading(r entities.Reading) entities.Reading {
	out := r
	out.Values = make(map[entities.Field]float64, len(r.Values))
	for k, v := range r.Values {
		out.Values[k] = v
	}
	if r.GPS != nil {
		g := *r.GPS
		out.GPS = &g
	}
	return out
}

func containsField(fs []entities.Field, f entities.Field) bool {
	for _, x := range fs {
		if x == f {
			return true
		}
	}
	return false
}
