package logger

import (
	"sync"

	"codeberg.org/mutker/sensornode/internal/errors"
)

var (
	ErrAlreadyPaused = errors.New().New(errors.ErrLogAlreadyPaused)
	ErrNotPaused     = errors.New().New(errors.ErrLogNotPaused)
)

type snapshot struct {
	enabled bool
	level   Level
}

// State holds the runtime logging switches shared by the logger and the
// command interpreter. A pause saves (enabled, level) and disables output;
// resume restores exactly what was saved.
type State struct {
	mu      sync.Mutex
	enabled bool
	level   Level
	paused  *snapshot
}

func NewState(enabled bool, level Level) *State {
	return &State{
		enabled: enabled,
		level:   level,
	}
}

func (s *State) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

func (s *State) MinLevel() Level {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

func (s *State) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused != nil
}

// Allows reports whether a message at level would be emitted.
func (s *State) Allows(level Level) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled && level >= s.level
}

// SetLevel sets the minimum level and enables logging. Any pause is dropped.
func (s *State) SetLevel(level Level) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.level = level
	s.enabled = true
	s.paused = nil
}

// Disable turns logging off. Any pause is dropped.
func (s *State) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.enabled = false
	s.paused = nil
}

// Pause snapshots the current switches and disables logging. Pausing twice
// keeps the first snapshot and returns ErrAlreadyPaused.
func (s *State) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.paused != nil {
		return ErrAlreadyPaused
	}

	s.paused = &snapshot{enabled: s.enabled, level: s.level}
	s.enabled = false

	return nil
}

// Resume restores the snapshot taken by Pause.
func (s *State) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.paused == nil {
		return ErrNotPaused
	}

	s.enabled = s.paused.enabled
	s.level = s.paused.level
	s.paused = nil

	return nil
}
