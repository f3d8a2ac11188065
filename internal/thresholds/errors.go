package thresholds

import "fmt"

// ConfigurationError reports an unknown crop profile or a malformed band. It
// is fatal for the evaluation pass that hits it; callers fall back to a
// default profile or skip the pass.
type ConfigurationError struct {
	Profile string
	Field   string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	switch {
	case e.Profile != "" && e.Field != "":
		return fmt.Sprintf("configuration error: profile %q field %q: %s", e.Profile, e.Field, e.Reason)
	case e.Profile != "":
		return fmt.Sprintf("configuration error: profile %q: %s", e.Profile, e.Reason)
	}
	return "configuration error: " + e.Reason
}
