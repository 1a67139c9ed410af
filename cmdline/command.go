package cmdline

import (
	"context"
	"strconv"
	"strings"
)

// Handler runs a command. Arguments are read from the console's current
// argument vector; output goes to Console.Out.
type Handler interface {
	Run(ctx context.Context, c *Console) (int, error)
}

type HandlerFunc func(ctx context.Context, c *Console) (int, error)

func (f HandlerFunc) Run(ctx context.Context, c *Console) (int, error) {
	return f(ctx, c)
}

// Command is one entry of the command table. MinWords counts the command
// word itself, so a command taking two arguments has MinWords 3.
type Command struct {
	Name        string
	Description string
	MinWords    int
	Handler     Handler
}

// Registry is an ordered command table. It is searched front to back and
// the first entry without a handler ends it.
type Registry struct {
	cmds []Command
}

func NewRegistry(cmds ...Command) *Registry {
	table := make([]Command, 0, len(cmds))
	for _, cmd := range cmds {
		if cmd.Handler == nil {
			break
		}
		table = append(table, cmd)
	}
	return &Registry{cmds: table}
}

// Lookup returns the first command whose name matches exactly.
func (r *Registry) Lookup(name string) (Command, bool) {
	for _, cmd := range r.cmds {
		if cmd.Name == name {
			return cmd, true
		}
	}
	return Command{}, false
}

// Commands returns a copy of the table in search order.
func (r *Registry) Commands() []Command {
	out := make([]Command, len(r.cmds))
	copy(out, r.cmds)
	return out
}

// ParseInt parses a decimal, 0x hex or 0 octal integer.
func ParseInt(s string) (int, error) {
	v, err := strconv.ParseInt(s, 0, 32)
	if err != nil {
		return 0, &NumberError{Arg: s, Err: err}
	}
	return int(v), nil
}

// ParseHex parses a 32-bit hexadecimal value with an optional 0x prefix.
func ParseHex(s string) (uint32, error) {
	digits := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		return 0, &NumberError{Arg: s, Err: err}
	}
	return uint32(v), nil
}
