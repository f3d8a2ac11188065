package entities

import (
	"fmt"
	"strings"
)

// Field names one of the eight quantities a field sensor reports.
type Field string

const (
	FieldTemperature  Field = "temperature"  // soil temperature [°C]
	FieldHumidity     Field = "humidity"     // soil moisture [%]
	FieldPH           Field = "ph"           // soil pH
	FieldNitrogen     Field = "nitrogen"     // N [ppm]
	FieldPhosphorus   Field = "phosphorus"   // P [ppm]
	FieldPotassium    Field = "potassium"    // K [ppm]
	FieldConductivity Field = "conductivity" // EC [µS/cm]
	FieldTDS          Field = "tds"          // total dissolved solids [ppm]
)

// AllFields is the canonical field order. Everything that produces ordered
// output (alerts, exports, logs) iterates this slice, never a map.
var AllFields = []Field{
	FieldTemperature,
	FieldHumidity,
	FieldPH,
	FieldNitrogen,
	FieldPhosphorus,
	FieldPotassium,
	FieldConductivity,
	FieldTDS,
}

// Unit returns the display unit of the field.
func (f Field) Unit() string {
	switch f {
	case FieldTemperature:
		return "°C"
	case FieldHumidity:
		return "%"
	case FieldPH:
		return "pH"
	case FieldConductivity:
		return "µS/cm"
	case FieldNitrogen, FieldPhosphorus, FieldPotassium, FieldTDS:
		return "ppm"
	}
	return ""
}

func (f Field) Valid() bool {
	for _, k := range AllFields {
		if k == f {
			return true
		}
	}
	return false
}

// ParseField accepts the canonical name case-insensitively plus the labels
// used on the ThingSpeak channel ("pH", "TDS", "Nitrogen", ...).
func ParseField(s string) (Field, error) {
	f := Field(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", fmt.Errorf("unknown sensor field %q", s)
	}
	return f, nil
}
