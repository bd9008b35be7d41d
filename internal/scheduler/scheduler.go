// Package scheduler runs periodic tasks cooperatively from the host loop.
//
// RunOnce samples the clock once and invokes every due task in registration
// order. A task body runs to completion before the next one starts, so a
// task that blocks starves every other task.
package scheduler

import (
	"codeberg.org/mutker/sensornode/internal/clock"
	"codeberg.org/mutker/sensornode/internal/errors"
	"codeberg.org/mutker/sensornode/internal/logger"
)

// Capacity is the maximum number of registered tasks.
const Capacity = 8

var (
	ErrRegistryFull      = errors.New().New(errors.ErrRegistryFull)
	ErrInvalidDescriptor = errors.New().New(errors.ErrInvalidDescriptor)
)

// Task describes a periodic task. Period is fixed once registered; LastRun
// is owned by the scheduler.
type Task struct {
	Name    string
	Action  func()
	Period  uint32
	LastRun uint32
}

// Info is a read-only view of a registered task.
type Info struct {
	Name    string
	Period  uint32
	LastRun uint32
}

type Scheduler struct {
	tasks  []*Task
	clock  clock.Clock
	logger logger.Logger
}

func New(clk clock.Clock, log logger.Logger) *Scheduler {
	return &Scheduler{
		tasks:  make([]*Task, 0, Capacity),
		clock:  clk,
		logger: log,
	}
}

// Init clears the registry.
func (s *Scheduler) Init() {
	for i := range s.tasks {
		s.tasks[i] = nil
	}
	s.tasks = s.tasks[:0]

	s.logger.Info().Msgf("Task Manager initialized (max tasks = %d)", Capacity)
}

// Register adds t to the dispatch list. The task's LastRun is stamped with
// the current tick, so its first run happens one full period from now.
func (s *Scheduler) Register(t *Task) error {
	errFactory := errors.New()

	if t == nil || t.Action == nil {
		err := errFactory.WithData(errors.ErrInvalidDescriptor, describe(t))
		s.logger.ErrorWithCode(err).Msg("Attempted to register an invalid task")
		return err
	}

	if len(s.tasks) >= Capacity {
		err := errFactory.WithData(errors.ErrRegistryFull, t.Name)
		s.logger.WarnWithCode(err).Msgf("Task list is full, cannot register task '%s'", t.Name)
		return err
	}

	t.LastRun = s.clock.NowMs()
	s.tasks = append(s.tasks, t)

	s.logger.Info().Msgf("Registered task '%s' with period %d ms", t.Name, t.Period)

	return nil
}

// RunOnce invokes each due task once. LastRun is set before the action runs,
// so the next deadline is measured from dispatch time, not completion time.
func (s *Scheduler) RunOnce() {
	now := s.clock.NowMs()

	for _, t := range s.tasks {
		elapsed := clock.Elapsed(now, t.LastRun)
		if elapsed < t.Period {
			continue
		}

		s.logger.Debug().Msgf("Running task '%s' (elapsed: %d ms)", t.Name, elapsed)

		t.LastRun = now
		t.Action()
	}
}

func (s *Scheduler) Len() int {
	return len(s.tasks)
}

// Tasks returns the registered tasks in dispatch order.
func (s *Scheduler) Tasks() []Info {
	out := make([]Info, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, Info{Name: t.Name, Period: t.Period, LastRun: t.LastRun})
	}

	return out
}

func describe(t *Task) string {
	if t == nil {
		return "<nil>"
	}
	return t.Name
}
