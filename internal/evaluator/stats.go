package evaluator

import "math"

// FieldStats are the descriptive statistics of one field over the window.
// With fewer than two non-null values Available is false and the numbers are
// meaningless (they are left at zero, not computed).
type FieldStats struct {
	Available bool    `json:"available"`
	Count     int     `json:"count"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Mean      float64 `json:"mean"`
	StdDev    float64 `json:"stdev"` // population
}

func computeStats(pts []point) FieldStats {
	st := FieldStats{Count: len(pts)}
	if len(pts) < 2 {
		return st
	}
	st.Available = true
	st.Min, st.Max = math.Inf(1), math.Inf(-1)
	sum := 0.0
	for _, p := range pts {
		sum += p.Y
		st.Min = math.Min(st.Min, p.Y)
		st.Max = math.Max(st.Max, p.Y)
	}
	st.Mean = sum / float64(len(pts))

	ss := 0.0
	for _, p := range pts {
		d := p.Y - st.Mean
		ss += d * d
	}
	st.StdDev = math.Sqrt(ss / float64(len(pts)))
	return st
}
