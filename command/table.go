// Package command holds the diagnostic console's command table and the
// handlers behind it.
package command

import (
	"context"
	"time"

	"github.com/mklimuk/diagcon"
	"github.com/mklimuk/diagcon/cmdline"
	"github.com/mklimuk/diagcon/environment"
	"github.com/mklimuk/diagcon/mcu"
)

const (
	defaultTempPeriod = time.Second
	defaultResetDelay = 10 * time.Millisecond
)

// Deps are the collaborators the handlers work with. Bus and MCU are
// required; the rest have defaults.
type Deps struct {
	Bus diagcon.ProbingBus
	MCU mcu.Registers
	// Thermometer defaults to a DS3231 on Bus.
	Thermometer environment.Thermometer
	// Sleep waits for d unless ctx ends first.
	Sleep      func(ctx context.Context, d time.Duration) error
	TempPeriod time.Duration
	ResetDelay time.Duration
}

func (d Deps) withDefaults() Deps {
	if d.Thermometer == nil {
		d.Thermometer = environment.NewDS3231(d.Bus)
	}
	if d.Sleep == nil {
		d.Sleep = Sleep
	}
	if d.TempPeriod <= 0 {
		d.TempPeriod = defaultTempPeriod
	}
	if d.ResetDelay <= 0 {
		d.ResetDelay = defaultResetDelay
	}
	return d
}

// Sleep blocks for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Table returns the console commands in lookup order.
func Table(deps Deps) []cmdline.Command {
	deps = deps.withDefaults()
	sys := &system{mcu: deps.MCU, sleep: deps.Sleep, resetDelay: deps.ResetDelay}
	bus := &busCommands{bus: deps.Bus, thermometer: deps.Thermometer, sleep: deps.Sleep, period: deps.TempPeriod}
	return []cmdline.Command{
		{Name: "?", Description: "display help menu", MinWords: 1, Handler: cmdline.HandlerFunc(help)},
		{Name: "help", Description: "display help menu", MinWords: 1, Handler: cmdline.HandlerFunc(help)},
		{Name: "add", Description: "add <number> <number>", MinWords: 3, Handler: cmdline.HandlerFunc(add)},
		{Name: "id", Description: "unique ID", MinWords: 1, Handler: cmdline.HandlerFunc(sys.id)},
		{Name: "info", Description: "processor info", MinWords: 1, Handler: cmdline.HandlerFunc(sys.info)},
		{Name: "read", Description: "read <address>, display 32-bit value", MinWords: 2, Handler: cmdline.HandlerFunc(sys.read)},
		{Name: "clocks", Description: "display clock control registers", MinWords: 1, Handler: cmdline.HandlerFunc(sys.clocks)},
		{Name: "reset", Description: "reset processor", MinWords: 1, Handler: cmdline.HandlerFunc(sys.reset)},
		{Name: "resetcause", Description: "display reset cause flag", MinWords: 1, Handler: cmdline.HandlerFunc(sys.resetCause)},
		{Name: "i2cscan", Description: "scan I2C1, showing active devices", MinWords: 1, Handler: cmdline.HandlerFunc(bus.scan)},
		{Name: "temp", Description: "access external DS3231, read temperature [count]", MinWords: 1, Handler: cmdline.HandlerFunc(bus.temp)},
		{Name: "i2cdetect", Description: "i2cdetect <addr>, probe one device", MinWords: 2, Handler: cmdline.HandlerFunc(bus.detect)},
		{Name: "i2cread", Description: "i2cread <addr> <count> [reg]", MinWords: 3, Handler: cmdline.HandlerFunc(bus.read)},
		{Name: "i2cwrite", Description: "i2cwrite <addr> <byte>...", MinWords: 3, Handler: cmdline.HandlerFunc(bus.write)},
		{Name: "rtc", Description: "read DS3231 date and time", MinWords: 1, Handler: cmdline.HandlerFunc(bus.rtc)},
	}
}

func NewRegistry(deps Deps) *cmdline.Registry {
	return cmdline.NewRegistry(Table(deps)...)
}
