// Package indicator drives the node's status LED.
package indicator

import "sync/atomic"

type LED interface {
	Toggle()
	On() bool
}

// HostLED keeps the LED state in memory for hosts without a physical LED.
type HostLED struct {
	on      atomic.Bool
	toggles atomic.Uint64
}

func NewHostLED() *HostLED {
	return &HostLED{}
}

func (l *HostLED) Toggle() {
	for {
		old := l.on.Load()
		if l.on.CompareAndSwap(old, !old) {
			break
		}
	}
	l.toggles.Add(1)
}

func (l *HostLED) On() bool {
	return l.on.Load()
}

// Toggles returns how many times the LED changed state.
func (l *HostLED) Toggles() uint64 {
	return l.toggles.Load()
}
