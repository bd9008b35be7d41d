// Package power implements the node's power-mode state machine.
//
// Requests only record intent; Update is the single place where the current
// mode changes. Any mode may follow any other.
package power

import (
	"slices"
	"sync"

	"codeberg.org/mutker/sensornode/internal/clock"
	"codeberg.org/mutker/sensornode/internal/logger"
)

// Transition describes an applied mode change.
type Transition struct {
	From Mode
	To   Mode
	Tick uint32
}

type Controller struct {
	mu         sync.Mutex
	current    Mode
	requested  Mode
	idleCycles uint32
	observers  []func(Transition)
	clock      clock.Clock
	logger     logger.Logger
}

// New returns a controller in Active mode with no pending request.
func New(clk clock.Clock, log logger.Logger) *Controller {
	c := &Controller{
		current:   Active,
		requested: Active,
		clock:     clk,
		logger:    log,
	}

	log.Info().Msgf("PowerManager: initialized (mode = %s)", c.current)

	return c
}

// OnTransition registers fn to be called after every applied transition.
func (c *Controller) OnTransition(fn func(Transition)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// RequestMode records mode as the requested mode. Repeating the current
// request is a no-op.
func (c *Controller) RequestMode(mode Mode) {
	c.mu.Lock()
	if mode == c.requested {
		c.mu.Unlock()
		return
	}
	c.requested = mode
	c.mu.Unlock()

	c.logger.Info().Msgf("PowerManager: requested mode change to %s", mode)
}

func (c *Controller) CurrentMode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Controller) RequestedMode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requested
}

func (c *Controller) IdleCycles() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.idleCycles
}

// Update applies a pending request, or counts an idle check-in when there
// is nothing to apply.
func (c *Controller) Update() {
	c.mu.Lock()

	if c.requested == c.current {
		c.idleCycles++
		mode, idle := c.current, c.idleCycles
		c.mu.Unlock()

		c.logger.Debug().Msgf("PowerManager: mode=%s, idleCycles=%d", mode, idle)
		return
	}

	tr := Transition{From: c.current, To: c.requested, Tick: c.clock.NowMs()}
	c.current = c.requested
	c.idleCycles = 0
	observers := slices.Clone(c.observers)
	c.mu.Unlock()

	c.logger.Info().Msgf("PowerManager: applying mode change %s -> %s", tr.From, tr.To)

	for _, fn := range observers {
		fn(tr)
	}
}
