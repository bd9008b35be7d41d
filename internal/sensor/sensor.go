// Package sensor defines the sensor capability and the power-aware sampling
// task built on it.
package sensor

import (
	"math"
	"sync"

	"codeberg.org/mutker/sensornode/internal/clock"
	"codeberg.org/mutker/sensornode/internal/errors"
)

// Sample is a single scalar measurement and the tick it was taken at.
type Sample struct {
	Value     float64
	Timestamp uint32
}

// Sensor is implemented by real and simulated sensors.
type Sensor interface {
	Init() error
	Read() (Sample, error)
}

const (
	simBaseC      = 25.0
	simAmplitudeC = 3.0
	simPeriodMs   = 2000.0
)

// SimTemp produces a smooth synthetic temperature around room temperature:
// 25°C + 3°C * sin(t / 2000ms), t measured from Init.
type SimTemp struct {
	clock clock.Clock

	mu        sync.Mutex
	start     uint32
	ready     bool
	reads     uint64
	failEvery uint64
}

// NewSimTemp returns a simulated sensor. When failEvery is non-zero every
// failEvery-th read fails, which exercises the read-failure path.
func NewSimTemp(clk clock.Clock, failEvery uint64) *SimTemp {
	return &SimTemp{
		clock:     clk,
		failEvery: failEvery,
	}
}

func (s *SimTemp) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.start = s.clock.NowMs()
	s.ready = true

	return nil
}

func (s *SimTemp) Read() (Sample, error) {
	errFactory := errors.New()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return Sample{}, errFactory.WithData(errors.ErrSensorRead, "sensor not initialized")
	}

	s.reads++
	if s.failEvery > 0 && s.reads%s.failEvery == 0 {
		return Sample{}, errFactory.WithData(errors.ErrSensorRead, "simulated read failure")
	}

	now := s.clock.NowMs()
	phase := float64(clock.Elapsed(now, s.start)) / simPeriodMs

	return Sample{
		Value:     simBaseC + simAmplitudeC*math.Sin(phase),
		Timestamp: now,
	}, nil
}
