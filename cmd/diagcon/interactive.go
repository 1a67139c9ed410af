package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/mklimuk/diagcon/cmd/diagcon/console"
	"github.com/mklimuk/diagcon/cmdline"
	"github.com/mklimuk/diagcon/command"
	"github.com/mklimuk/diagcon/config"
	"github.com/mklimuk/diagcon/dbgctx"
	"github.com/mklimuk/diagcon/mcu"
	"github.com/mklimuk/diagcon/port"
)

const mcp2221LEDPrefix = "mcp2221:"

var consoleCmd = cli.Command{
	Name:  "console",
	Usage: "interactive console on the terminal or a serial line",
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:  "serial",
			Usage: "serve the console on a serial port instead of the terminal",
		},
		&cli.IntFlag{
			Name:  "baud",
			Usage: "serial baud rate",
		},
		&cli.StringFlag{
			Name:  "led",
			Usage: "GPIO pin toggled while the console is idle, e.g. GPIO17 or mcp2221:0",
		},
	}, backendFlags...),
	Action: func(c *cli.Context) error {
		cfg, err := settings(c)
		if err != nil {
			return console.Exit(1, "configuration error: %s", err)
		}
		ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
		defer stop()
		ctx = dbgctx.SetVerbose(ctx, c.Bool("verbose"))

		resets := make(chan struct{}, 1)
		be, err := openBackend(cfg, mcu.WithResetHook(func() {
			select {
			case resets <- struct{}{}:
			default:
			}
		}))
		if err != nil {
			return console.Exit(1, "%s", err)
		}
		defer func() {
			if err := be.Close(); err != nil {
				console.Errorf("error closing bus: %s", err)
			}
		}()

		keys := make(chan byte, 4)
		onKey := func(b byte) {
			select {
			case keys <- b:
			default:
			}
		}
		in, out, closer, err := openPort(cfg, onKey)
		if err != nil {
			return console.Exit(1, "%s", err)
		}
		defer func() { _ = closer.Close() }()

		con := cmdline.NewConsole(in, out, command.NewRegistry(command.Deps{Bus: be.bus, MCU: be.mcu}), consoleOptions(cfg)...)
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case k := <-keys:
					// Ctrl-C stops the running command; at the prompt it quits
					if k == port.KeyEOF || !con.Interrupt() {
						stop()
					}
				}
			}
		}()

		idle := []cmdline.IdleFunc{
			func(context.Context) {
				select {
				case <-resets:
					slog.Debug("processor reset")
					con.Reset()
				default:
				}
			},
			func(context.Context) {
				select {
				case <-in.Done():
					slog.Debug("console input closed", "error", in.Err())
					stop()
				default:
				}
			},
		}
		if cfg.LED != "" {
			led, err := indicator(cfg.LED, be)
			if err != nil {
				return console.Exit(1, "indicator error: %s", err)
			}
			idle = append(idle, led)
		}
		err = con.Run(ctx, idle...)
		if err != nil && !errors.Is(err, context.Canceled) {
			return console.Exit(1, "console error: %s", err)
		}
		return nil
	},
}

// input is a console source whose end can be observed.
type input interface {
	cmdline.Source
	Done() <-chan struct{}
	Err() error
}

func openPort(cfg config.Config, onKey func(byte)) (input, io.Writer, io.Closer, error) {
	if cfg.Serial.Port != "" {
		s, err := port.OpenSerial(cfg.Serial.Port, cfg.Serial.Baud, port.WithKeys(onKey, port.KeyInterrupt))
		if err != nil {
			return nil, nil, nil, err
		}
		var out io.Writer = s
		if cfg.Console.CRLF {
			out = port.NewCRLF(s)
		}
		return s, out, s, nil
	}
	term, err := port.OpenTerminal(onKey)
	if err != nil {
		return nil, nil, nil, err
	}
	return term, term.Writer(), term, nil
}

func consoleOptions(cfg config.Config) []cmdline.ConsoleOpt {
	opts := []cmdline.ConsoleOpt{
		cmdline.WithBufferSize(cfg.Console.BufferSize),
		cmdline.WithMaxWords(cfg.Console.MaxWords),
		cmdline.WithInterval(cfg.Console.Interval),
		cmdline.WithColor(cfg.Console.Color),
		cmdline.WithLogger(slog.Default()),
	}
	if cfg.Console.Banner != "" {
		opts = append(opts, cmdline.WithBanner(strings.Split(strings.TrimRight(cfg.Console.Banner, "\n"), "\n")...))
	}
	return opts
}

// indicator returns idle work that flips a pin on every pass of the console
// loop. Pins are named the periph way, or mcp2221:<n> for a bridge GPIO.
func indicator(name string, be *backend) (cmdline.IdleFunc, error) {
	var set func(ctx context.Context, high bool) error
	if pin, ok := strings.CutPrefix(name, mcp2221LEDPrefix); ok {
		if be.mcp2221 == nil {
			return nil, fmt.Errorf("%s needs the mcp2221 adapter", name)
		}
		n, err := strconv.Atoi(pin)
		if err != nil {
			return nil, fmt.Errorf("invalid bridge pin %q", pin)
		}
		set = func(ctx context.Context, high bool) error {
			return be.mcp2221.SetGPIO(ctx, n, high)
		}
	} else {
		if _, err := host.Init(); err != nil {
			return nil, fmt.Errorf("could not init host: %w", err)
		}
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("unknown pin %s", name)
		}
		set = func(_ context.Context, high bool) error {
			return p.Out(gpio.Level(high))
		}
	}
	var level bool
	return func(ctx context.Context) {
		level = !level
		if err := set(ctx, level); err != nil {
			slog.Debug("indicator toggle failed", "pin", name, "error", err)
		}
	}, nil
}
