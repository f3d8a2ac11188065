package dashboard

import "time"

// Freshness buckets the age of the newest reading in the window.
type Freshness string

const (
	FreshnessExcellent Freshness = "excellent"
	FreshnessGood      Freshness = "good"
	FreshnessFair      Freshness = "fair"
	FreshnessPoor      Freshness = "poor"
	FreshnessStale     Freshness = "stale"
	FreshnessNoData    Freshness = "no_data"
)

// ClassifyFreshness maps an age to its bucket. Ages from the future (probe
// clock skew) count as excellent.
func ClassifyFreshness(age time.Duration) Freshness {
	switch {
	case age < 5*time.Minute:
		return FreshnessExcellent
	case age < 15*time.Minute:
		return FreshnessGood
	case age < time.Hour:
		return FreshnessFair
	case age < 6*time.Hour:
		return FreshnessPoor
	default:
		return FreshnessStale
	}
}
