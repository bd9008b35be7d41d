package power

import (
	"strings"

	"codeberg.org/mutker/sensornode/internal/errors"
)

// Mode is a power mode. The declaration order carries no "lower power"
// meaning; modes are only ever compared for equality.
type Mode int

const (
	Active Mode = iota
	Idle
	Sleep
	Stop
)

// Modes lists every mode in declaration order.
var Modes = []Mode{Active, Idle, Sleep, Stop}

func (m Mode) String() string {
	switch m {
	case Active:
		return "ACTIVE"
	case Idle:
		return "IDLE"
	case Sleep:
		return "SLEEP"
	case Stop:
		return "STOP"
	default:
		return "UNKNOWN"
	}
}

// ParseMode accepts a mode name in any case.
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "active":
		return Active, nil
	case "idle":
		return Idle, nil
	case "sleep":
		return Sleep, nil
	case "stop":
		return Stop, nil
	}

	return Active, errors.New().WithData(errors.ErrUnknownMode, name)
}
