package cli

import (
	"fmt"
	"strings"
)

type cmdFunc func(in *Interpreter, args []string) error

type command struct {
	Name  string
	Usage string
	Desc  string
	Run   cmdFunc
	// NoArgs commands only match the bare name.
	NoArgs bool
}

// registry keeps commands in the order they were registered.
type registry struct {
	order  []string
	byName map[string]command
}

func newRegistry() *registry {
	return &registry{
		byName: make(map[string]command),
	}
}

func (r *registry) register(cmd command) error {
	cmd.Name = strings.TrimSpace(cmd.Name)
	if cmd.Name == "" {
		return fmt.Errorf("cli registry: empty command name")
	}
	if cmd.Run == nil {
		return fmt.Errorf("cli registry: %q has no handler", cmd.Name)
	}
	if _, ok := r.byName[cmd.Name]; ok {
		return fmt.Errorf("cli registry: duplicate command %q", cmd.Name)
	}

	r.byName[cmd.Name] = cmd
	r.order = append(r.order, cmd.Name)

	return nil
}

func (r *registry) resolve(name string) (command, bool) {
	cmd, ok := r.byName[strings.TrimSpace(name)]
	return cmd, ok
}

func (r *registry) commands() []command {
	out := make([]command, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}
