package main

import (
	"os"
	"os/signal"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/diagcon/cmd/diagcon/console"
	"github.com/mklimuk/diagcon/cmdline"
	"github.com/mklimuk/diagcon/command"
	"github.com/mklimuk/diagcon/dbgctx"
)

// noInput is the source of a console that only runs the line it is given.
type noInput struct{}

func (noInput) PollByte() (byte, bool) { return 0, false }

var execCmd = cli.Command{
	Name:      "exec",
	Usage:     "run one console command and exit",
	ArgsUsage: "<command> [args...]",
	Flags:     backendFlags,
	Action: func(c *cli.Context) error {
		if c.NArg() == 0 {
			return console.Exit(2, "missing command, try: diagcon exec help")
		}
		cfg, err := settings(c)
		if err != nil {
			return console.Exit(1, "configuration error: %s", err)
		}
		ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
		defer stop()
		ctx = dbgctx.SetVerbose(ctx, c.Bool("verbose"))

		be, err := openBackend(cfg)
		if err != nil {
			return console.Exit(1, "%s", err)
		}
		defer func() {
			if err := be.Close(); err != nil {
				console.Errorf("error closing bus: %s", err)
			}
		}()
		con := cmdline.NewConsole(noInput{}, os.Stdout,
			command.NewRegistry(command.Deps{Bus: be.bus, MCU: be.mcu}),
			consoleOptions(cfg)...)
		res, err := con.Execute(ctx, strings.Join(c.Args().Slice(), " "))
		if err != nil {
			return cli.Exit("", 1)
		}
		if res != 0 {
			return cli.Exit("", res)
		}
		return nil
	},
}
