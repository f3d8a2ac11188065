package messages

import "time"

// Simulator actions.
const (
	ActionIrrigate = "irrigate"
	ActionFault    = "fault"
	ActionReset    = "reset"
)

// SimulatorCommand drives a simulated probe on sensor/control/{device}:
// irrigate raises soil moisture for a while, fault makes the probe drop and
// garble fields, reset clears both.
type SimulatorCommand struct {
	DeviceID    string    `json:"device_id"`
	Action      string    `json:"action"`
	DurationSec int       `json:"duration_sec"`
	Timestamp   time.Time `json:"timestamp"`
}

func (c SimulatorCommand) Duration() time.Duration {
	return time.Duration(c.DurationSec) * time.Second
}
