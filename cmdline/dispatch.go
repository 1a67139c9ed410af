package cmdline

import (
	"context"
)

// Process runs the command named by the first word of the current argument
// vector. An empty vector is a no-op. Arity and lookup failures are printed
// for the operator and returned; the handler is not called.
func (c *Console) Process(ctx context.Context) (int, error) {
	if len(c.args) == 0 {
		return 0, nil
	}
	name := string(c.args[0])
	cmd, found := c.registry.Lookup(name)
	if !found {
		c.Printf("Command \"%s\" not found\r\n", name)
		return 0, &NotFoundError{Name: name}
	}
	if len(c.args) < cmd.MinWords {
		c.Printf("\r\nInvalid Arg cnt: %d Expected: %d\n", len(c.args)-1, cmd.MinWords-1)
		return 0, &ArityError{Command: name, Got: len(c.args) - 1, Expected: cmd.MinWords - 1}
	}
	ctx, cancel := context.WithCancel(ctx)
	c.setCancel(cancel)
	defer func() {
		c.setCancel(nil)
		cancel()
	}()
	return cmd.Handler.Run(ctx, c)
}

// Execute tokenizes line and processes it as if it had been typed.
func (c *Console) Execute(ctx context.Context, line string) (int, error) {
	return c.execute(ctx, []byte(line))
}

func (c *Console) execute(ctx context.Context, line []byte) (int, error) {
	c.args = AppendWords(c.args[:0], line, c.maxWords)
	return c.Process(ctx)
}

func (c *Console) dispatch(ctx context.Context, line []byte) {
	res, err := c.execute(ctx, line)
	if err != nil {
		c.log.Debug("command failed", "line", string(line), "kind", KindOf(err).String(), "error", err)
		return
	}
	c.log.Debug("command done", "line", string(line), "result", res)
}
