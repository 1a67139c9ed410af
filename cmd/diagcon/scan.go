package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/diagcon/cmd/diagcon/console"
	"github.com/mklimuk/diagcon/dbgctx"
	"github.com/mklimuk/diagcon/i2c"
)

var scanCmd = cli.Command{
	Name:  "scan",
	Usage: "probe every I2C address and print the device map",
	Flags: backendFlags,
	Action: func(c *cli.Context) error {
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
		found, err := i2c.Scan(ctx, os.Stdout, be.bus)
		fmt.Println()
		if err != nil {
			return console.Exit(1, "scan interrupted: %s", err)
		}
		for _, addr := range found {
			console.PInfof(console.PictoPin, "device at %s", console.Green(fmt.Sprintf("%#02x", addr)))
		}
		if len(found) == 0 {
			console.Warnf("no devices found")
		}
		return nil
	},
}
