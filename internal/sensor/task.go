package sensor

import (
	"codeberg.org/mutker/sensornode/internal/clock"
	"codeberg.org/mutker/sensornode/internal/errors"
	"codeberg.org/mutker/sensornode/internal/logger"
	"codeberg.org/mutker/sensornode/internal/power"
	"codeberg.org/mutker/sensornode/internal/sampling"
)

// ModeSource reports the power mode currently in effect.
type ModeSource interface {
	CurrentMode() power.Mode
}

// SampleTask decides, on every invocation, whether the current power mode
// calls for a new sample and reads the sensor if so. It keeps its own
// rate limit on top of the scheduler period.
//
// A failed read leaves the last-sample tick untouched, so the next
// invocation tries again instead of waiting a full sampling period.
type SampleTask struct {
	sensor  Sensor
	modes   ModeSource
	periods sampling.Periods
	clock   clock.Clock
	logger  logger.Logger

	lastSample uint32
	onSample   []func(Sample, power.Mode)
}

func NewSampleTask(
	s Sensor, modes ModeSource, periods sampling.Periods, clk clock.Clock, log logger.Logger,
) *SampleTask {
	return &SampleTask{
		sensor:  s,
		modes:   modes,
		periods: periods,
		clock:   clk,
		logger:  log,
	}
}

// OnSample registers fn to receive every successful sample.
func (t *SampleTask) OnSample(fn func(Sample, power.Mode)) {
	t.onSample = append(t.onSample, fn)
}

// LastSample returns the tick of the last successful read.
func (t *SampleTask) LastSample() uint32 {
	return t.lastSample
}

// Run is the scheduler action.
func (t *SampleTask) Run() {
	mode := t.modes.CurrentMode()
	period := t.periods.For(mode)

	if period == sampling.Disabled {
		t.logger.Debug().Msgf("SensorSample: sampling disabled in current power mode (%s)", mode)
		return
	}

	now := t.clock.NowMs()
	if clock.Elapsed(now, t.lastSample) < period {
		return
	}

	sample, err := t.sensor.Read()
	if err != nil {
		t.logger.WarnWithCode(asError(err)).Msgf("SensorSample: read failed (mode=%s)", mode)
		return
	}

	t.lastSample = now

	t.logger.Info().Msgf("SensorSample: value=%.2f C, timestamp=%d ms, mode=%s",
		sample.Value, sample.Timestamp, mode)

	for _, fn := range t.onSample {
		fn(sample, mode)
	}
}

func asError(err error) errors.Error {
	if e, ok := err.(errors.Error); ok && e.Code() == errors.ErrSensorRead {
		return e
	}
	return errors.New().Wrap(errors.ErrSensorRead, err)
}
