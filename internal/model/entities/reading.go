package entities

import "time"

// GPS is the position attached to a reading (per reading or per channel).
type GPS struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Reading is one timestamped multi-field sample. A field missing from
// Values means the source omitted it (null), which is not the same as 0.
type Reading struct {
	EntryID   int64             `json:"entry_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	GPS       *GPS              `json:"gps,omitempty"`
	Values    map[Field]float64 `json:"values"`
}

// Value returns the field value and whether it is present.
func (r Reading) Value(f Field) (float64, bool) {
	if r.Values == nil {
		return 0, false
	}
	v, ok := r.Values[f]
	return v, ok
}

// PresentCount counts the expected fields carried by the reading.
func (r Reading) PresentCount() int {
	n := 0
	for _, f := range AllFields {
		if _, ok := r.Values[f]; ok {
			n++
		}
	}
	return n
}
