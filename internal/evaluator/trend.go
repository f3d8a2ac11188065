package evaluator

import "math"

// Direction of a field over the window.
type Direction string

const (
	Rising  Direction = "rising"
	Falling Direction = "falling"
	Stable  Direction = "stable"
)

// TrendSummary is the slope-sign classification of a field plus the anomaly
// flag of its latest value.
type TrendSummary struct {
	Direction Direction `json:"direction"`
	Slope     float64   `json:"slope"`
	Available bool      `json:"available"`
	Anomaly   bool      `json:"anomaly"`
}

// computeTrend fits value = a + slope*index by least squares. Slopes within
// +-eps are reported stable so that sensor noise is not read as a trend.
func computeTrend(pts []point, eps float64) TrendSummary {
	tr := TrendSummary{Direction: Stable}
	if len(pts) < 2 {
		return tr
	}
	slope, ok := leastSquaresSlope(pts)
	if !ok {
		return tr
	}
	tr.Available = true
	tr.Slope = slope
	eps = math.Abs(eps)
	switch {
	case slope > eps:
		tr.Direction = Rising
	case slope < -eps:
		tr.Direction = Falling
	}
	return tr
}

func leastSquaresSlope(pts []point) (float64, bool) {
	n := float64(len(pts))
	var sx, sy float64
	for _, p := range pts {
		sx += p.X
		sy += p.Y
	}
	mx, my := sx/n, sy/n
	var num, den float64
	for _, p := range pts {
		dx := p.X - mx
		num += dx * (p.Y - my)
		den += dx * dx
	}
	if den == 0 {
		return 0, false
	}
	return num / den, true
}

// isAnomaly flags the latest non-null value when it lies more than k
// standard deviations from the window mean.
func isAnomaly(pts []point, st FieldStats, k float64) bool {
	if !st.Available || len(pts) == 0 {
		return false
	}
	return deviates(pts[len(pts)-1].Y, st.Mean, st.StdDev, k)
}

func deviates(v, mean, stdev, k float64) bool {
	return math.Abs(v-mean) > k*stdev
}
