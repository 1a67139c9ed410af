package cmdline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/fatih/color"
)

const (
	DefaultBufferSize = 80
	DefaultMaxWords   = 16
	DefaultInterval   = 40 * time.Millisecond

	minBufferSize = 16
	maxBufferSize = 256
)

const (
	keyBackspace = 0x08
	keyDelete    = 0x7F
)

// Source delivers console input one byte at a time. PollByte returns
// immediately; ok is false when no byte is waiting.
type Source interface {
	PollByte() (b byte, ok bool)
}

// IdleFunc is periodic work run by Console.Run between input polls.
type IdleFunc func(ctx context.Context)

// DefaultBanner is the greeting printed by Start.
func DefaultBanner(date string) []string {
	return []string{
		fmt.Sprintf("Command Line parser, %s", date),
		`Enter "help" or "?" for list of commands`,
	}
}

// Console is a single-user command line. It owns the input line and the
// argument vector; both are only touched from the goroutine calling Poll,
// Run or Execute.
type Console struct {
	src      Source
	out      io.Writer
	registry *Registry

	line     []byte
	cursor   int
	args     [][]byte
	maxWords int

	banner   []string
	bannerFg *color.Color
	interval time.Duration
	log      *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

type ConsoleOpt func(*Console)

// WithBufferSize sets the input line capacity, terminator included.
func WithBufferSize(n int) ConsoleOpt {
	return func(c *Console) {
		n = max(minBufferSize, min(n, maxBufferSize))
		c.line = make([]byte, n)
	}
}

func WithMaxWords(n int) ConsoleOpt {
	return func(c *Console) {
		if n > 0 {
			c.maxWords = n
		}
	}
}

func WithBanner(lines ...string) ConsoleOpt {
	return func(c *Console) {
		c.banner = lines
	}
}

// WithColor forces the banner color on or off regardless of what the
// process output is attached to.
func WithColor(enabled bool) ConsoleOpt {
	return func(c *Console) {
		if enabled {
			c.bannerFg.EnableColor()
		} else {
			c.bannerFg.DisableColor()
		}
	}
}

// WithInterval sets the idle loop period.
func WithInterval(d time.Duration) ConsoleOpt {
	return func(c *Console) {
		if d > 0 {
			c.interval = d
		}
	}
}

func WithLogger(l *slog.Logger) ConsoleOpt {
	return func(c *Console) {
		c.log = l
	}
}

func NewConsole(src Source, out io.Writer, registry *Registry, opts ...ConsoleOpt) *Console {
	c := &Console{
		src:      src,
		out:      out,
		registry: registry,
		line:     make([]byte, DefaultBufferSize),
		maxWords: DefaultMaxWords,
		banner:   DefaultBanner(time.Now().Format("Jan _2 2006")),
		bannerFg: color.New(color.FgYellow),
		interval: DefaultInterval,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.args = make([][]byte, 0, c.maxWords)
	return c
}

func (c *Console) Out() io.Writer {
	return c.out
}

func (c *Console) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}

func (c *Console) Registry() *Registry {
	return c.registry
}

// Args returns the words of the line being executed, command word first.
func (c *Console) Args() []string {
	out := make([]string, len(c.args))
	for i, a := range c.args {
		out[i] = string(a)
	}
	return out
}

// NArg is the number of words including the command word.
func (c *Console) NArg() int {
	return len(c.args)
}

// Arg returns word i or an empty string when there are fewer words.
func (c *Console) Arg(i int) string {
	if i < 0 || i >= len(c.args) {
		return ""
	}
	return string(c.args[i])
}

// Start prints the banner and the first prompt.
func (c *Console) Start() {
	c.Printf("\n")
	for _, l := range c.banner {
		_, _ = c.bannerFg.Fprintln(c.out, l)
	}
	c.Printf(">")
}

// Reset drops any partial input and starts over with the banner.
func (c *Console) Reset() {
	c.cursor = 0
	c.args = c.args[:0]
	c.Start()
}

// Poll consumes the input bytes that are available. It returns when the
// source runs dry or right after a line was completed, so idle work gets a
// turn between commands. The result tells whether a line was completed.
func (c *Console) Poll(ctx context.Context) bool {
	for {
		b, ok := c.src.PollByte()
		if !ok {
			return false
		}
		switch {
		case b == '\r' || b == '\n':
			if c.cursor > 0 {
				c.Printf("\n")
				c.dispatch(ctx, c.line[:c.cursor])
			}
			c.Printf("\n>")
			c.cursor = 0
			return true
		case b == keyBackspace || b == keyDelete:
			if c.cursor == 0 {
				continue
			}
			c.Printf("\b \b")
			c.cursor--
		case b >= ' ' && b <= '~' && c.cursor < len(c.line)-1:
			_, _ = c.out.Write([]byte{b})
			c.line[c.cursor] = b
			c.cursor++
		}
	}
}

// Run prints the banner and then polls input and runs the idle work every
// interval until ctx is done.
func (c *Console) Run(ctx context.Context, idle ...IdleFunc) error {
	c.Start()
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		c.Poll(ctx)
		for _, f := range idle {
			f(ctx)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Interrupt cancels the command that is currently running, if any. It may
// be called from any goroutine.
func (c *Console) Interrupt() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return false
	}
	c.cancel()
	return true
}

func (c *Console) setCancel(cancel context.CancelFunc) {
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
}
