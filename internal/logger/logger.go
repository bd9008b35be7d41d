package logger

import (
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"codeberg.org/mutker/sensornode/internal/clock"
	"codeberg.org/mutker/sensornode/internal/errors"
	"github.com/rs/zerolog"
)

const (
	tickFieldName   = "tick"
	sourceFieldName = "source"
	funcFieldName   = "func"
)

type LogEvent struct {
	*zerolog.Event
}

func (e *LogEvent) Msg(msg string) {
	e.Event.Msg(msg)
}

func (e *LogEvent) Send() {
	e.Event.Send()
}

// Console is the node logger. Events are gated by State, stamped with the
// node tick and call site, and rendered as one framed line per message.
type Console struct {
	log   zerolog.Logger
	state *State
	clock clock.Clock
	out   *frameWriter
}

// New creates a Console writing framed lines to out.
func New(out io.Writer, clk clock.Clock, state *State) *Console {
	fw := &frameWriter{out: out}

	return &Console{
		log:   zerolog.New(fw).Level(zerolog.DebugLevel),
		state: state,
		clock: clk,
		out:   fw,
	}
}

// Nop returns a Console that never emits anything.
func Nop() *Console {
	return New(io.Discard, clock.NewManual(0), NewState(false, ErrorLevel))
}

// State returns the switches gating this logger.
func (c *Console) State() *State {
	return c.state
}

// SetOutputHook registers fn to run after every emitted line. A nil fn
// restores the default no-op.
func (c *Console) SetOutputHook(fn func()) {
	c.out.setHook(fn)
}

// Debug logs a debug message
func (c *Console) Debug() *LogEvent {
	return c.newEvent(DebugLevel)
}

// Info logs an info message
func (c *Console) Info() *LogEvent {
	return c.newEvent(InfoLevel)
}

// Warn logs a warning message
func (c *Console) Warn() *LogEvent {
	return c.newEvent(WarnLevel)
}

// Error logs an error message
func (c *Console) Error() *LogEvent {
	return c.newEvent(ErrorLevel)
}

// WarnWithCode logs a warning carrying the error code of err
func (c *Console) WarnWithCode(err errors.Error) *LogEvent {
	return withCode(c.newEvent(WarnLevel), err)
}

// ErrorWithCode logs an error message with a specific error code
func (c *Console) ErrorWithCode(err errors.Error) *LogEvent {
	return withCode(c.newEvent(ErrorLevel), err)
}

func withCode(e *LogEvent, err errors.Error) *LogEvent {
	if err == nil {
		return e
	}
	e.Event = e.Str("error_code", string(err.Code()))
	if cause := err.Unwrap(); cause != nil {
		e.Event = e.AnErr("error", cause)
	}
	return e
}

// newEvent must be called directly by the exported level methods so the
// call-site lookup lands on the user of the logger.
func (c *Console) newEvent(level Level) *LogEvent {
	if !c.state.Allows(level) {
		return &LogEvent{nil}
	}

	source, fn := callSite(3)

	return &LogEvent{c.log.WithLevel(level.zerolog()).
		Uint32(tickFieldName, c.clock.NowMs()).
		Str(sourceFieldName, source).
		Str(funcFieldName, fn)}
}

func callSite(skip int) (string, string) {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "???:0", "???"
	}

	source := trimPath(file, 2) + ":" + strconv.Itoa(line)

	fn := "???"
	if f := runtime.FuncForPC(pc); f != nil {
		fn = trimPath(f.Name(), 1)
	}

	return source, fn
}

// trimPath keeps the last n slash-separated elements of p.
func trimPath(p string, n int) string {
	idx := len(p)
	for i := 0; i < n; i++ {
		idx = strings.LastIndexByte(p[:idx], '/')
		if idx < 0 {
			return p
		}
	}
	return p[idx+1:]
}

type frameWriter struct {
	mu   sync.Mutex
	out  io.Writer
	hook func()
}

func (w *frameWriter) setHook(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.hook = fn
}

func (w *frameWriter) Write(p []byte) (int, error) {
	line, err := renderFrame(p)
	if err != nil {
		return 0, err
	}

	w.mu.Lock()
	hook := w.hook
	_, err = io.WriteString(w.out, line)
	w.mu.Unlock()
	if err != nil {
		return 0, err
	}

	if hook != nil {
		hook()
	}

	return len(p), nil
}

// Bootstrap returns a plain console logger for use before the node's own
// logger exists, e.g. while loading configuration.
func Bootstrap(w io.Writer, debug bool) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}

	if IsService() {
		output.TimeFormat = ""
		output.FormatTimestamp = func(_ interface{}) string {
			return ""
		}
	}

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

// IsService checks if the application is running as a service
func IsService() bool {
	if _, err := os.Stdin.Stat(); err != nil {
		return true
	}
	if os.Getenv("SERVICE_NAME") != "" || os.Getenv("INVOCATION_ID") != "" {
		return true
	}
	if os.Getppid() == 1 {
		return true
	}

	return syscall.Getpgrp() == syscall.Getpid()
}
