package port

import (
	"fmt"
	"io"
	"os"

	"github.com/chzyer/readline"
)

// Terminal is the controlling terminal switched to raw mode, so the
// console sees every key as it is typed and does its own echo.
type Terminal struct {
	*Chan
	fd    int
	state *readline.State
	out   io.Writer
}

// OpenTerminal puts stdin into raw mode. Ctrl-C and Ctrl-D are not queued;
// they are handed to onKey instead.
func OpenTerminal(onKey func(b byte)) (*Terminal, error) {
	fd := int(os.Stdin.Fd())
	if !readline.IsTerminal(fd) {
		return nil, fmt.Errorf("stdin is not a terminal")
	}
	state, err := readline.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("could not switch terminal to raw mode: %w", err)
	}
	return &Terminal{
		Chan:  NewChan(os.Stdin, WithKeys(onKey, KeyInterrupt, KeyEOF)),
		fd:    fd,
		state: state,
		out:   NewCRLF(os.Stdout),
	}, nil
}

// Writer returns stdout with line endings fixed up for raw mode.
func (t *Terminal) Writer() io.Writer {
	return t.out
}

// Close restores the terminal mode found by OpenTerminal.
func (t *Terminal) Close() error {
	return readline.Restore(t.fd, t.state)
}
