package scheduler_test

import (
	"fmt"
	"math"
	"testing"

	"codeberg.org/mutker/sensornode/internal/clock"
	"codeberg.org/mutker/sensornode/internal/errors"
	"codeberg.org/mutker/sensornode/internal/logger"
	"codeberg.org/mutker/sensornode/internal/scheduler"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	calls []string
}

func (r *recorder) task(name string, period uint32) *scheduler.Task {
	return &scheduler.Task{
		Name:   name,
		Period: period,
		Action: func() { r.calls = append(r.calls, name) },
	}
}

func newScheduler(start uint32) (*scheduler.Scheduler, *clock.Manual) {
	clk := clock.NewManual(start)
	s := scheduler.New(clk, logger.Nop())
	s.Init()
	return s, clk
}

func TestRunOnceDispatchesInRegistrationOrder(t *testing.T) {
	s, clk := newScheduler(0)
	rec := &recorder{}

	for _, name := range []string{"c", "a", "d", "b"} {
		require.NoError(t, s.Register(rec.task(name, 10)))
	}

	clk.Advance(10)
	s.RunOnce()

	if diff := cmp.Diff([]string{"c", "a", "d", "b"}, rec.calls); diff != "" {
		t.Errorf("dispatch order mismatch (-want +got):\n%s", diff)
	}
}

func TestRunOnceRunsEachDueTaskAtMostOnce(t *testing.T) {
	s, clk := newScheduler(0)
	rec := &recorder{}

	for i := 0; i < scheduler.Capacity; i++ {
		require.NoError(t, s.Register(rec.task(fmt.Sprintf("t%d", i), uint32(i))))
	}

	clk.Advance(1000)
	s.RunOnce()
	assert.Len(t, rec.calls, scheduler.Capacity)

	counts := map[string]int{}
	for _, c := range rec.calls {
		counts[c]++
	}
	for name, n := range counts {
		assert.Equal(t, 1, n, name)
	}
}

func TestRunOnceHonoursPeriods(t *testing.T) {
	s, clk := newScheduler(0)
	rec := &recorder{}

	require.NoError(t, s.Register(rec.task("fast", 20)))
	require.NoError(t, s.Register(rec.task("slow", 500)))

	for i := 0; i < 50; i++ {
		clk.Advance(10)
		s.RunOnce()
	}

	counts := map[string]int{}
	for _, c := range rec.calls {
		counts[c]++
	}
	assert.Equal(t, 25, counts["fast"])
	assert.Equal(t, 1, counts["slow"])
}

func TestRegisterStampsLastRun(t *testing.T) {
	s, clk := newScheduler(4000)
	rec := &recorder{}

	task := rec.task("sample", 1000)
	require.NoError(t, s.Register(task))
	assert.Equal(t, uint32(4000), task.LastRun)

	clk.Set(4999)
	s.RunOnce()
	assert.Empty(t, rec.calls)

	clk.Set(5000)
	s.RunOnce()
	assert.Equal(t, []string{"sample"}, rec.calls)
	assert.Equal(t, uint32(5000), task.LastRun)
}

func TestLastRunSetBeforeAction(t *testing.T) {
	s, clk := newScheduler(0)

	var seen uint32
	task := &scheduler.Task{Name: "probe", Period: 5}
	task.Action = func() {
		seen = task.LastRun
		clk.Advance(100)
	}
	require.NoError(t, s.Register(task))

	clk.Set(7)
	s.RunOnce()
	assert.Equal(t, uint32(7), seen)
	assert.Equal(t, uint32(7), task.LastRun)
}

func TestRegisterBeyondCapacity(t *testing.T) {
	s, _ := newScheduler(0)
	rec := &recorder{}

	for i := 0; i < scheduler.Capacity; i++ {
		require.NoError(t, s.Register(rec.task(fmt.Sprintf("t%d", i), 1)))
	}

	for i := 0; i < 3; i++ {
		err := s.Register(rec.task("overflow", 1))
		require.Error(t, err)
		assert.ErrorIs(t, err, scheduler.ErrRegistryFull)
		assert.Equal(t, scheduler.Capacity, s.Len())
	}
}

func TestRegisterInvalidDescriptor(t *testing.T) {
	s, _ := newScheduler(0)

	err := s.Register(nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidDescriptor))

	err = s.Register(&scheduler.Task{Name: "no-action", Period: 10})
	assert.ErrorIs(t, err, scheduler.ErrInvalidDescriptor)
	assert.Zero(t, s.Len())
}

func TestRunOnceAcrossClockWrap(t *testing.T) {
	s, clk := newScheduler(math.MaxUint32 - 5)
	rec := &recorder{}

	task := rec.task("wrap", 10)
	require.NoError(t, s.Register(task))

	clk.Set(3)
	s.RunOnce()
	assert.Empty(t, rec.calls, "9 ticks elapsed across the wrap")

	clk.Set(4)
	s.RunOnce()
	assert.Equal(t, []string{"wrap"}, rec.calls)

	clk.Set(13)
	s.RunOnce()
	assert.Len(t, rec.calls, 1)
}

func TestLastRunAtMaxAndNowZero(t *testing.T) {
	s, clk := newScheduler(math.MaxUint32)
	rec := &recorder{}

	require.NoError(t, s.Register(rec.task("one-tick", 1)))

	clk.Set(0)
	s.RunOnce()
	assert.Equal(t, []string{"one-tick"}, rec.calls)
}

func TestInitClearsRegistry(t *testing.T) {
	s, clk := newScheduler(0)
	rec := &recorder{}
	require.NoError(t, s.Register(rec.task("x", 1)))

	s.Init()
	assert.Zero(t, s.Len())

	clk.Advance(10)
	s.RunOnce()
	assert.Empty(t, rec.calls)
}

func TestTasksSnapshot(t *testing.T) {
	s, _ := newScheduler(12)
	rec := &recorder{}
	require.NoError(t, s.Register(rec.task("Heartbeat", 500)))
	require.NoError(t, s.Register(rec.task("CLI", 20)))

	want := []scheduler.Info{
		{Name: "Heartbeat", Period: 500, LastRun: 12},
		{Name: "CLI", Period: 20, LastRun: 12},
	}
	if diff := cmp.Diff(want, s.Tasks()); diff != "" {
		t.Errorf("tasks mismatch (-want +got):\n%s", diff)
	}
}
