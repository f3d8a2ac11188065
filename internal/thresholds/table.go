// Package thresholds holds the per-crop threshold bands used to tier sensor
// values. Tables are validated at load, and the evaluator re-checks the
// profile it is handed.
package thresholds

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/LeonardoBeccarini/agrisense/internal/model/entities"
)

// Profile is the fixed set of bands for one crop. Every field must be set.
type Profile struct {
	ID           string                  `json:"-"`
	Name         string                  `json:"name"`
	Temperature  *entities.ThresholdBand `json:"temperature"`
	Humidity     *entities.ThresholdBand `json:"humidity"`
	PH           *entities.ThresholdBand `json:"ph"`
	Nitrogen     *entities.ThresholdBand `json:"nitrogen"`
	Phosphorus   *entities.ThresholdBand `json:"phosphorus"`
	Potassium    *entities.ThresholdBand `json:"potassium"`
	Conductivity *entities.ThresholdBand `json:"conductivity"`
	TDS          *entities.ThresholdBand `json:"tds"`
}

// Band returns the band of a field.
func (p Profile) Band(f entities.Field) (entities.ThresholdBand, bool) {
	var b *entities.ThresholdBand
	switch f {
	case entities.FieldTemperature:
		b = p.Temperature
	case entities.FieldHumidity:
		b = p.Humidity
	case entities.FieldPH:
		b = p.PH
	case entities.FieldNitrogen:
		b = p.Nitrogen
	case entities.FieldPhosphorus:
		b = p.Phosphorus
	case entities.FieldPotassium:
		b = p.Potassium
	case entities.FieldConductivity:
		b = p.Conductivity
	case entities.FieldTDS:
		b = p.TDS
	}
	if b == nil {
		return entities.ThresholdBand{}, false
	}
	return *b, true
}

// ValidateBand checks criticalLow <= optimalLow <= optimalHigh <= criticalHigh.
func ValidateBand(b entities.ThresholdBand) error {
	if !(b.CriticalLow <= b.OptimalLow && b.OptimalLow <= b.OptimalHigh && b.OptimalHigh <= b.CriticalHigh) {
		return fmt.Errorf("band out of order: critical_low=%g optimal_low=%g optimal_high=%g critical_high=%g",
			b.CriticalLow, b.OptimalLow, b.OptimalHigh, b.CriticalHigh)
	}
	return nil
}

// Validate checks that every field has a well-ordered band.
func (p Profile) Validate() error {
	for _, f := range entities.AllFields {
		b, ok := p.Band(f)
		if !ok {
			return &ConfigurationError{Profile: p.ID, Field: string(f), Reason: "missing band"}
		}
		if err := ValidateBand(b); err != nil {
			return &ConfigurationError{Profile: p.ID, Field: string(f), Reason: err.Error()}
		}
	}
	return nil
}

// Table maps crop-profile id to its bands.
type Table map[string]Profile

// Validate checks every profile and stamps profile ids.
func (t Table) Validate() error {
	if len(t) == 0 {
		return &ConfigurationError{Reason: "threshold table is empty"}
	}
	for id, p := range t {
		if strings.TrimSpace(id) == "" {
			return &ConfigurationError{Reason: "profile with empty id"}
		}
		p.ID = id
		if err := p.Validate(); err != nil {
			return err
		}
		t[id] = p
	}
	return nil
}

// Lookup returns the profile or a ConfigurationError for unknown ids.
func (t Table) Lookup(id string) (Profile, error) {
	p, ok := t[id]
	if !ok {
		return Profile{}, &ConfigurationError{Profile: id, Reason: "unknown crop profile"}
	}
	p.ID = id
	return p, nil
}

// IDs returns the profile ids, sorted.
func (t Table) IDs() []string {
	out := make([]string, 0, len(t))
	for id := range t {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Parse decodes and validates a JSON table: {"maize": {"name": ..., "ph": {...}, ...}, ...}.
func Parse(raw []byte) (Table, error) {
	var t Table
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("decode threshold table: %v", err)}
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Load reads and validates a threshold table file.
func Load(path string) (Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read threshold table: %w", err)
	}
	return Parse(raw)
}
