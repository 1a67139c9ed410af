package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/urfave/cli/v2"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/diagcon"
	"github.com/mklimuk/diagcon/adapter"
	"github.com/mklimuk/diagcon/config"
	"github.com/mklimuk/diagcon/i2c"
	"github.com/mklimuk/diagcon/i2c/sim"
	"github.com/mklimuk/diagcon/mcu"
)

// Devices on the simulated board: the RTC module with its companion EEPROM.
const (
	simRTCAddress    = 0x68
	simEEPROMAddress = 0x57
)

var backendFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "adapter",
		Aliases: []string{"a"},
		Usage:   "bus backend: sim, generic, nanopi or mcp2221",
	},
	&cli.StringFlag{
		Name:    "device",
		Aliases: []string{"d"},
		Usage:   "I2C device for the generic backend",
	},
	&cli.IntFlag{
		Name:  "speed",
		Usage: "bus speed in kHz for the generic backend",
	},
}

// settings loads the config file, if any, and applies command line
// overrides on top of it.
func settings(c *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return cfg, err
		}
	}
	if c.IsSet("adapter") {
		cfg.Adapter = c.String("adapter")
	}
	if c.IsSet("device") {
		cfg.Device = c.String("device")
	}
	if c.IsSet("speed") {
		cfg.Speed = c.Int("speed")
	}
	if c.IsSet("serial") {
		cfg.Serial.Port = c.String("serial")
	}
	if c.IsSet("baud") {
		cfg.Serial.Baud = c.Int("baud")
	}
	if c.IsSet("led") {
		cfg.LED = c.String("led")
	}
	return cfg, cfg.Validate()
}

// backend is the bus the console talks to plus the processor it reports on.
// On the host the processor is always simulated.
type backend struct {
	bus     diagcon.ProbingBus
	mcu     *mcu.Sim
	mcp2221 *adapter.MCP2221
	closers []io.Closer
}

func openBackend(cfg config.Config, mcuOpts ...mcu.SimOpt) (*backend, error) {
	be := &backend{mcu: mcu.NewSim(mcuOpts...)}
	switch cfg.Adapter {
	case config.AdapterSim:
		ctrl := sim.NewController()
		ctrl.Attach(simRTCAddress, sim.NewDS3231(time.Now))
		ctrl.Attach(simEEPROMAddress, sim.NewEEPROM(4096, 2))
		be.bus = i2c.NewBus(ctrl, i2c.WithLimits(cfg.Limits), i2c.WithLogger(slog.Default()))
	case config.AdapterGeneric:
		bus, err := i2c.NewGenericBus(cfg.Device)
		if err != nil {
			return nil, err
		}
		if cfg.Speed > 0 {
			if err := bus.SetSpeed(physic.Frequency(cfg.Speed) * physic.KiloHertz); err != nil {
				slog.Warn("could not set bus speed", "speed", cfg.Speed, "error", err)
			}
		}
		be.bus = bus
		be.closers = append(be.closers, bus)
	case config.AdapterNanoPi:
		bus, err := adapter.NewNanoPi(adapter.DefaultNanoPiBus)
		if err != nil {
			return nil, err
		}
		be.bus = bus
		be.closers = append(be.closers, bus)
	case config.AdapterMCP2221:
		ad := adapter.NewMCP2221()
		if err := ad.Init(); err != nil {
			return nil, fmt.Errorf("adapter initialization error: %w", err)
		}
		be.bus = ad
		be.mcp2221 = ad
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownAdapter, cfg.Adapter)
	}
	return be, nil
}

func (be *backend) Close() error {
	var errs []error
	for _, c := range be.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
