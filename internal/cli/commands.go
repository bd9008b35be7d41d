package cli

import (
	"strings"

	"codeberg.org/mutker/sensornode/internal/errors"
	"codeberg.org/mutker/sensornode/internal/logger"
	"codeberg.org/mutker/sensornode/internal/power"
	"github.com/google/shlex"
)

func registerCommands(r *registry) error {
	for _, cmd := range []command{
		{Name: "help", Usage: "help [command]", Desc: "Show this help text", Run: cmdHelp},
		{Name: "log", Usage: "log off|error|warn|info|debug|pause|resume", Desc: "Control task logging", Run: cmdLog},
		{Name: "pmode", Usage: "pmode active|idle|sleep|stop", Desc: "Request a power mode", Run: cmdPowerMode},
		{Name: "status", Usage: "status", Desc: "Show logging and power status", Run: cmdStatus, NoArgs: true},
		{Name: "tasks", Usage: "tasks", Desc: "List scheduled tasks", Run: cmdTasks, NoArgs: true},
	} {
		if err := r.register(cmd); err != nil {
			return err
		}
	}
	return nil
}

// reservedChars carry quoting or comment meaning for the lexer. Commands
// match literal words only, so lines containing them are rejected.
const reservedChars = "\"'\\#"

func splitArgs(line string) ([]string, error) {
	if strings.ContainsAny(line, reservedChars) {
		return nil, errors.New().WithData(errors.ErrInvalidArgument, line)
	}

	args, err := shlex.Split(line)
	if err != nil {
		return nil, errors.New().Wrap(errors.ErrInvalidArgument, err)
	}
	if len(args) == 0 {
		return nil, errors.New().WithData(errors.ErrInvalidArgument, line)
	}
	return args, nil
}

func errUnknownCommand(line string) error {
	return errors.New().WithData(errors.ErrUnknownCommand, line)
}

func cmdHelp(in *Interpreter, args []string) error {
	if len(args) == 0 {
		in.send("\r\nAvailable commands:\r\n")
		for _, cmd := range in.reg.commands() {
			in.printf("  %-44s - %s\r\n", cmd.Usage, cmd.Desc)
		}
		return nil
	}

	name := strings.Join(args, " ")
	cmd, ok := in.reg.resolve(name)
	if !ok {
		in.printf("\r\nUnknown command '%s'. Type 'help'.\r\n", name)
		return errUnknownCommand(name)
	}

	in.printf("\r\nusage: %s\r\n%s\r\n", cmd.Usage, cmd.Desc)

	return nil
}

func cmdLog(in *Interpreter, args []string) error {
	opt := strings.Join(args, " ")

	switch opt {
	case "off":
		in.logState.Disable()
		in.send("\r\nTask logging disabled.\r\n")
		return nil

	case "pause":
		if err := in.logState.Pause(); err != nil {
			in.send("\r\nTask logging is already paused.\r\n")
			return nil
		}
		in.send("\r\nTask logging paused. Use 'log resume' to restore.\r\n")
		return nil

	case "resume":
		if err := in.logState.Resume(); err != nil {
			in.send("\r\nTask logging is not paused.\r\n")
			return nil
		}
		in.send("\r\nTask logging resumed.\r\n")
		return nil
	}

	level, err := logger.ParseLevel(opt)
	if err != nil {
		in.printf("\r\nUnknown log option '%s'. Type 'help'.\r\n", opt)
		return errors.New().WithData(errors.ErrUnknownOption, opt)
	}

	in.logState.SetLevel(level)
	in.printf("\r\nTask logging enabled, level=%s.\r\n", level)

	return nil
}

func cmdPowerMode(in *Interpreter, args []string) error {
	arg := strings.Join(args, " ")

	mode, err := power.ParseMode(arg)
	if err != nil {
		in.printf("\r\nUnknown power mode '%s'. Type 'help'.\r\n", arg)
		return errors.New().WithData(errors.ErrUnknownMode, arg)
	}

	in.power.RequestMode(mode)
	in.printf("\r\nRequested power mode change: %s\r\n", arg)

	return nil
}

func cmdStatus(in *Interpreter, _ []string) error {
	logging := "DISABLED"
	if in.logState.Enabled() {
		logging = "ENABLED"
	}
	if in.logState.Paused() {
		logging += " (PAUSED)"
	}

	level := in.logState.MinLevel()
	mode := in.power.CurrentMode()

	in.send("\r\nStatus:\r\n")
	in.printf("  Task logging: %s\r\n", logging)
	in.printf("  LogLevel: %d %s (0=DEBUG,1=INFO,2=WARN,3=ERROR)\r\n", int(level), level)

	if requested := in.power.RequestedMode(); requested != mode {
		in.printf("  PowerMode: %d %s (requested %s)\r\n", int(mode), mode, requested)
	} else {
		in.printf("  PowerMode: %d %s (0=ACTIVE,1=IDLE,2=SLEEP,3=STOP)\r\n", int(mode), mode)
	}

	in.printf("  Idle cycles: %d\r\n", in.power.IdleCycles())
	in.printf("  Sensor sample period: %d ms\r\n", in.periods.For(mode))

	return nil
}

func cmdTasks(in *Interpreter, _ []string) error {
	if in.tasks == nil {
		in.send("\r\nNo scheduler attached.\r\n")
		return nil
	}

	tasks := in.tasks.Tasks()
	in.printf("\r\nTasks (%d):\r\n", len(tasks))
	for _, t := range tasks {
		in.printf("  %-14s every %6d ms, last run %d ms\r\n", t.Name, t.Period, t.LastRun)
	}

	return nil
}
