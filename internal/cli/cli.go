// Package cli implements the line-oriented command interpreter that drives
// logging and power control over a byte transport.
package cli

import (
	"fmt"
	"strings"

	"codeberg.org/mutker/sensornode/internal/logger"
	"codeberg.org/mutker/sensornode/internal/power"
	"codeberg.org/mutker/sensornode/internal/sampling"
	"codeberg.org/mutker/sensornode/internal/scheduler"
	"codeberg.org/mutker/sensornode/internal/transport"
)

const (
	// LineCapacity is the size of the line buffer, terminator included.
	LineCapacity = 64
	// MaxLineLength is the longest line that can be typed.
	MaxLineLength = LineCapacity - 1

	prompt    = "\r\n> "
	redraw    = "\r> "
	eraseChar = "\b \b"
	newline   = "\r\n"

	banner = "\r\nSmart Sensor Hub CLI ready.\r\n" +
		"Type 'help' for a list of commands.\r\n"
)

// Console is the logger the interpreter redraws its prompt under.
type Console interface {
	logger.Logger
	SetOutputHook(fn func())
}

// PowerControl is the part of the power controller the interpreter drives.
type PowerControl interface {
	RequestMode(mode power.Mode)
	CurrentMode() power.Mode
	RequestedMode() power.Mode
	IdleCycles() uint32
}

// TaskSource lists the scheduler's registered tasks.
type TaskSource interface {
	Tasks() []scheduler.Info
}

// Interpreter accumulates bytes into a line and dispatches complete lines.
// It is driven from the cooperative loop and is not safe for concurrent use.
type Interpreter struct {
	transport transport.Transport
	logState  *logger.State
	power     PowerControl
	periods   sampling.Periods
	logger    Console
	tasks     TaskSource
	reg       *registry

	line        [LineCapacity]byte
	n           int
	started     bool
	dispatching bool
}

func New(
	t transport.Transport, logState *logger.State, pc PowerControl, periods sampling.Periods, log Console,
) *Interpreter {
	in := &Interpreter{
		transport: t,
		logState:  logState,
		power:     pc,
		periods:   periods,
		logger:    log,
		reg:       newRegistry(),
	}

	if err := registerCommands(in.reg); err != nil {
		// command table is static
		panic(err)
	}

	return in
}

// SetTaskSource enables the tasks command.
func (in *Interpreter) SetTaskSource(src TaskSource) {
	in.tasks = src
}

// Start resets the line, sends the banner and prompt and starts redrawing
// the prompt under log output.
func (in *Interpreter) Start() {
	in.n = 0
	in.started = true

	in.send(banner)
	in.send(prompt)

	in.logger.SetOutputHook(in.Redraw)
}

// Stop detaches the interpreter from the logger.
func (in *Interpreter) Stop() {
	if !in.started {
		return
	}
	in.started = false
	in.logger.SetOutputHook(nil)
}

// Line returns the partially typed line.
func (in *Interpreter) Line() string {
	return string(in.line[:in.n])
}

// Process drains every byte currently available on the transport.
func (in *Interpreter) Process() {
	if !in.started {
		return
	}

	for {
		b, ok := in.transport.TryRecv()
		if !ok {
			return
		}
		in.Feed(b)
	}
}

// Feed advances the line editor by one input byte.
func (in *Interpreter) Feed(b byte) {
	switch {
	case b == '\r' || b == '\n':
		if in.n > 0 {
			line := in.Line()
			in.n = 0
			in.send(newline)
			_ = in.Execute(line)
		}
		in.send(prompt)

	case b == '\b' || b == 0x7F:
		if in.n > 0 {
			in.n--
			in.send(eraseChar)
		}

	case b >= 0x20 && b < 0x7F:
		if in.n < MaxLineLength {
			in.line[in.n] = b
			in.n++
			in.send(string(b))
		}
	}
}

// Redraw reprints the prompt and the partial line after unrelated output.
// It does nothing while a command is being dispatched.
func (in *Interpreter) Redraw() {
	if !in.started || in.dispatching {
		return
	}

	in.send(redraw)
	if in.n > 0 {
		in.send(in.Line())
	}
}

// Execute runs one command line. User errors are reported over the transport
// and returned; none of them are fatal.
func (in *Interpreter) Execute(line string) error {
	line = strings.ToLower(strings.TrimSpace(line))
	if line == "" {
		return nil
	}

	in.dispatching = true
	defer func() { in.dispatching = false }()

	args, err := splitArgs(line)
	if err != nil {
		in.printf("\r\nUnknown command '%s'. Type 'help'.\r\n", line)
		return errUnknownCommand(line)
	}

	cmd, ok := in.reg.resolve(args[0])
	if ok && cmd.NoArgs && len(args) > 1 {
		ok = false
	}
	if !ok {
		in.printf("\r\nUnknown command '%s'. Type 'help'.\r\n", line)
		return errUnknownCommand(line)
	}

	return cmd.Run(in, args[1:])
}

func (in *Interpreter) printf(format string, args ...any) {
	in.send(fmt.Sprintf(format, args...))
}

// send drops the output when the transport times out.
func (in *Interpreter) send(s string) {
	_ = in.transport.Send([]byte(s))
}
