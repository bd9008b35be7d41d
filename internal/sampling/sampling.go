// Package sampling maps power modes to sensor sampling intervals.
package sampling

import "codeberg.org/mutker/sensornode/internal/power"

// Disabled is the period returned for modes in which no sampling happens.
const Disabled uint32 = 0

// Periods holds the sampling interval in milliseconds for each power mode.
type Periods struct {
	Active uint32
	Idle   uint32
	Sleep  uint32
	Stop   uint32
}

// Default returns the standard table: 1s, 5s, 30s and disabled in Stop.
func Default() Periods {
	return Periods{
		Active: 1000,
		Idle:   5000,
		Sleep:  30000,
		Stop:   Disabled,
	}
}

// For returns the interval for mode. Disabled means "do not sample"; it is a
// sentinel, not an interval.
func (p Periods) For(mode power.Mode) uint32 {
	switch mode {
	case power.Active:
		return p.Active
	case power.Idle:
		return p.Idle
	case power.Sleep:
		return p.Sleep
	default:
		return p.Stop
	}
}

// EffectivePeriod resolves mode through the default table.
func EffectivePeriod(mode power.Mode) uint32 {
	return Default().For(mode)
}
