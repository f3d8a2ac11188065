package thingspeak

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/LeonardoBeccarini/agrisense/internal/model/entities"
)

// FieldMap binds each sensor field to the channel key carrying it
// ("field1".."field8"). Fields left out are never read.
type FieldMap map[entities.Field]string

// DefaultFieldMap is the layout of the soil probe channel.
func DefaultFieldMap() FieldMap {
	return FieldMap{
		entities.FieldTemperature:  "field1",
		entities.FieldHumidity:     "field2",
		entities.FieldPH:           "field3",
		entities.FieldNitrogen:     "field4",
		entities.FieldPhosphorus:   "field5",
		entities.FieldPotassium:    "field6",
		entities.FieldConductivity: "field7",
		entities.FieldTDS:          "field8",
	}
}

// ParseFieldMap reads "temperature=field1,humidity=field2,..." and validates
// the result.
func ParseFieldMap(s string) (FieldMap, error) {
	m := FieldMap{}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("field map entry %q: want field=channelKey", pair)
		}
		f, err := entities.ParseField(kv[0])
		if err != nil {
			return nil, fmt.Errorf("field map entry %q: %w", pair, err)
		}
		if _, dup := m[f]; dup {
			return nil, fmt.Errorf("field map: %s mapped twice", f)
		}
		m[f] = strings.ToLower(strings.TrimSpace(kv[1]))
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate rejects an empty map, unknown fields, malformed channel keys and
// two fields sharing a key.
func (m FieldMap) Validate() error {
	if len(m) == 0 {
		return fmt.Errorf("field map is empty")
	}
	owner := make(map[string]entities.Field, len(m))
	for _, f := range m.Fields() {
		if !f.Valid() {
			return fmt.Errorf("field map: unknown field %q", f)
		}
		key := m[f]
		if !validKey(key) {
			return fmt.Errorf("field map: %s has malformed channel key %q (want field1..field8)", f, key)
		}
		if other, ok := owner[key]; ok {
			return fmt.Errorf("field map: %s and %s both read %s", other, f, key)
		}
		owner[key] = f
	}
	return nil
}

// Fields returns the mapped fields in canonical order, unknown ones last.
func (m FieldMap) Fields() []entities.Field {
	out := make([]entities.Field, 0, len(m))
	for _, f := range entities.AllFields {
		if _, ok := m[f]; ok {
			out = append(out, f)
		}
	}
	var extra []entities.Field
	for f := range m {
		if !f.Valid() {
			extra = append(extra, f)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}

// String renders the map in the ParseFieldMap syntax.
func (m FieldMap) String() string {
	parts := make([]string, 0, len(m))
	for _, f := range m.Fields() {
		parts = append(parts, string(f)+"="+m[f])
	}
	return strings.Join(parts, ",")
}

func validKey(k string) bool {
	if !strings.HasPrefix(k, "field") {
		return false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(k, "field"))
	return err == nil && n >= 1 && n <= 8 && k == "field"+strconv.Itoa(n)
}
