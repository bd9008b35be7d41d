// Package clock provides the node's millisecond tick source.
//
// Ticks are uint32 and wrap silently; all elapsed-time math must go through
// Elapsed so a counter overflow never produces a missed or duplicated run.
package clock

import (
	"sync/atomic"
	"time"
)

// Clock returns the current tick in milliseconds.
type Clock interface {
	NowMs() uint32
}

// Elapsed returns the number of ticks from since to now, modulo 2^32.
func Elapsed(now, since uint32) uint32 {
	return now - since
}

// Host is a Clock backed by the monotonic system clock.
type Host struct {
	start  time.Time
	offset uint32
}

// NewHost returns a host clock that reads offset at construction time.
// A non-zero offset lets a node start close to the wrap point.
func NewHost(offset uint32) *Host {
	return &Host{
		start:  time.Now(),
		offset: offset,
	}
}

func (h *Host) NowMs() uint32 {
	//nolint:gosec // G115: truncation is the wraparound
	return h.offset + uint32(time.Since(h.start).Milliseconds())
}

// Manual is a Clock whose value only changes when told to.
type Manual struct {
	now atomic.Uint32
}

func NewManual(start uint32) *Manual {
	m := &Manual{}
	m.now.Store(start)
	return m
}

func (m *Manual) NowMs() uint32 {
	return m.now.Load()
}

func (m *Manual) Set(ms uint32) {
	m.now.Store(ms)
}

// Advance moves the clock forward by ms, wrapping on overflow.
func (m *Manual) Advance(ms uint32) uint32 {
	return m.now.Add(ms)
}
