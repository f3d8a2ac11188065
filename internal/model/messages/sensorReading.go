package messages

import (
	"time"

	"github.com/LeonardoBeccarini/agrisense/internal/model/entities"
)

// SensorReading is the MQTT payload published by field probes (and the
// simulator) on sensor/readings/{device}. A nil value means the probe did
// not report that quantity.
type SensorReading struct {
	DeviceID  string                      `json:"device_id"`
	Latitude  *float64                    `json:"latitude,omitempty"`
	Longitude *float64                    `json:"longitude,omitempty"`
	Values    map[entities.Field]*float64 `json:"values"`
	Timestamp time.Time                   `json:"timestamp"`
}

// ToReading converts the payload to an immutable entities.Reading, dropping
// nulls and unknown field names.
func (s SensorReading) ToReading() entities.Reading {
	r := entities.Reading{
		Timestamp: s.Timestamp,
		Values:    make(map[entities.Field]float64, len(s.Values)),
	}
	if s.Latitude != nil && s.Longitude != nil {
		r.GPS = &entities.GPS{Latitude: *s.Latitude, Longitude: *s.Longitude}
	}
	for f, v := range s.Values {
		if v == nil || !f.Valid() {
			continue
		}
		r.Values[f] = *v
	}
	return r
}
