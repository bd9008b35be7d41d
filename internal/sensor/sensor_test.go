package sensor_test

import (
	"bytes"
	"fmt"
	"testing"

	"codeberg.org/mutker/sensornode/internal/clock"
	"codeberg.org/mutker/sensornode/internal/errors"
	"codeberg.org/mutker/sensornode/internal/logger"
	"codeberg.org/mutker/sensornode/internal/power"
	"codeberg.org/mutker/sensornode/internal/sampling"
	"codeberg.org/mutker/sensornode/internal/sensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedMode struct {
	mode power.Mode
}

func (f *fixedMode) CurrentMode() power.Mode {
	return f.mode
}

type scriptedSensor struct {
	clock *clock.Manual
	fail  []bool
	reads int
}

func (s *scriptedSensor) Init() error { return nil }

func (s *scriptedSensor) Read() (sensor.Sample, error) {
	i := s.reads
	s.reads++
	if i < len(s.fail) && s.fail[i] {
		return sensor.Sample{}, fmt.Errorf("bus error")
	}
	return sensor.Sample{Value: 21.5, Timestamp: s.clock.NowMs()}, nil
}

type fixture struct {
	clock  *clock.Manual
	modes  *fixedMode
	sensor *scriptedSensor
	task   *sensor.SampleTask
	out    *bytes.Buffer
	got    []sensor.Sample
}

func newFixture(mode power.Mode, fail ...bool) *fixture {
	f := &fixture{
		clock: clock.NewManual(0),
		modes: &fixedMode{mode: mode},
		out:   &bytes.Buffer{},
	}
	f.sensor = &scriptedSensor{clock: f.clock, fail: fail}
	log := logger.New(f.out, f.clock, logger.NewState(true, logger.DebugLevel))
	f.task = sensor.NewSampleTask(f.sensor, f.modes, sampling.Default(), f.clock, log)
	f.task.OnSample(func(s sensor.Sample, _ power.Mode) {
		f.got = append(f.got, s)
	})
	return f
}

func TestSampleTaskFollowsActivePeriod(t *testing.T) {
	f := newFixture(power.Active)

	f.clock.Set(999)
	f.task.Run()
	assert.Zero(t, f.sensor.reads)

	f.clock.Set(1000)
	f.task.Run()
	assert.Equal(t, 1, f.sensor.reads)
	assert.Equal(t, uint32(1000), f.task.LastSample())
	assert.Contains(t, f.out.String(), "[INF]")
	assert.Contains(t, f.out.String(), "SensorSample: value=21.50 C, timestamp=1000 ms, mode=ACTIVE")

	f.clock.Set(1500)
	f.task.Run()
	assert.Equal(t, 1, f.sensor.reads, "not yet due")

	f.clock.Set(2000)
	f.task.Run()
	assert.Equal(t, 2, f.sensor.reads)
	assert.Len(t, f.got, 2)
}

func TestSampleTaskModeChangeAppliesImmediately(t *testing.T) {
	f := newFixture(power.Active)

	f.clock.Set(1000)
	f.task.Run()
	require.Equal(t, 1, f.sensor.reads)

	f.modes.mode = power.Sleep
	f.clock.Set(2000)
	f.task.Run()
	assert.Equal(t, 1, f.sensor.reads, "sleep period is 30s")

	f.clock.Set(31000)
	f.task.Run()
	assert.Equal(t, 2, f.sensor.reads)
}

func TestSampleTaskDisabledInStop(t *testing.T) {
	f := newFixture(power.Stop)

	for ms := uint32(0); ms <= 100000; ms += 1000 {
		f.clock.Set(ms)
		f.task.Run()
	}

	assert.Zero(t, f.sensor.reads)
	assert.Contains(t, f.out.String(), "[DBG]")
	assert.Contains(t, f.out.String(), "sampling disabled in current power mode (STOP)")
}

func TestSampleTaskFailedReadRetriesNextInvocation(t *testing.T) {
	f := newFixture(power.Active, true, false)

	f.clock.Set(1000)
	f.task.Run()
	assert.Equal(t, 1, f.sensor.reads)
	assert.Zero(t, f.task.LastSample(), "failed read must not advance the sample tick")
	assert.Empty(t, f.got)
	assert.Contains(t, f.out.String(), "[WRN]")
	assert.Contains(t, f.out.String(), "error_code=sensor_read_failed")

	f.clock.Set(1001)
	f.task.Run()
	assert.Equal(t, 2, f.sensor.reads)
	assert.Equal(t, uint32(1001), f.task.LastSample())
	assert.Len(t, f.got, 1)
}

func TestSampleTaskAcrossClockWrap(t *testing.T) {
	f := newFixture(power.Active)

	f.clock.Set(^uint32(0) - 499)
	f.task.Run()
	require.Equal(t, 1, f.sensor.reads)

	f.clock.Set(499)
	f.task.Run()
	assert.Equal(t, 1, f.sensor.reads)

	f.clock.Set(500)
	f.task.Run()
	assert.Equal(t, 2, f.sensor.reads)
}

func TestSimTempRange(t *testing.T) {
	clk := clock.NewManual(10)
	s := sensor.NewSimTemp(clk, 0)
	require.NoError(t, s.Init())

	sample, err := s.Read()
	require.NoError(t, err)
	assert.InDelta(t, 25.0, sample.Value, 1e-9)
	assert.Equal(t, uint32(10), sample.Timestamp)

	for ms := uint32(0); ms < 20000; ms += 250 {
		clk.Advance(250)
		sample, err = s.Read()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, sample.Value, 22.0)
		assert.LessOrEqual(t, sample.Value, 28.0)
	}
}

func TestSimTempFailureInjection(t *testing.T) {
	s := sensor.NewSimTemp(clock.NewManual(0), 3)

	_, err := s.Read()
	require.Error(t, err, "read before init")

	require.NoError(t, s.Init())
	var failures int
	for i := 0; i < 9; i++ {
		if _, err := s.Read(); err != nil {
			failures++
			assert.True(t, errors.HasCode(err, errors.ErrSensorRead))
		}
	}
	assert.Equal(t, 3, failures)
}
