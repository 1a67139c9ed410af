package command

import (
	"context"
	"errors"
	"time"

	"tinygo.org/x/drivers/ds3231"

	"github.com/mklimuk/diagcon"
	"github.com/mklimuk/diagcon/cmdline"
	"github.com/mklimuk/diagcon/environment"
	"github.com/mklimuk/diagcon/i2c"
)

// maxTransfer bounds i2cread and i2cwrite payloads.
const maxTransfer = 32

const rtcAddress = 0x68

var errOutOfRange = errors.New("out of range")

func numberError(arg string, err error) error {
	if err == nil {
		err = errOutOfRange
	}
	if errors.Is(err, cmdline.ErrMalformedNumber) {
		return err
	}
	return &cmdline.NumberError{Arg: arg, Err: err}
}

type busCommands struct {
	bus         diagcon.ProbingBus
	thermometer environment.Thermometer
	sleep       func(ctx context.Context, d time.Duration) error
	period      time.Duration
}

// busFailure prints a bus error and passes it on. The return value of the
// handler is 1 for every bus failure; the kind travels in the error.
func busFailure(c *cmdline.Console, op string, address byte, err error) (int, error) {
	c.Printf("%s 0x%02X failed: %s\n", op, address, i2c.StatusOf(err))
	return 1, err
}

func (b *busCommands) scan(ctx context.Context, c *cmdline.Console) (int, error) {
	_, err := i2c.Scan(ctx, c.Out(), b.bus)
	if err != nil {
		return 1, err
	}
	return 0, nil
}

func (b *busCommands) detect(ctx context.Context, c *cmdline.Console) (int, error) {
	address, err := i2c.ParseAddress(c.Arg(1))
	if err != nil {
		c.Printf("Invalid address %s\n", c.Arg(1))
		return 1, numberError(c.Arg(1), err)
	}
	err = b.bus.Detect(ctx, address)
	switch {
	case err == nil:
		c.Printf("Device found at 0x%02X\n", address)
		return 0, nil
	case errors.Is(err, diagcon.ErrNoAck):
		c.Printf("No device at 0x%02X\n", address)
		return 0, nil
	}
	return busFailure(c, "detect", address, err)
}

func (b *busCommands) read(ctx context.Context, c *cmdline.Console) (int, error) {
	address, err := i2c.ParseAddress(c.Arg(1))
	if err != nil {
		c.Printf("Invalid address %s\n", c.Arg(1))
		return 1, numberError(c.Arg(1), err)
	}
	count, err := cmdline.ParseInt(c.Arg(2))
	if err != nil || count < 1 || count > maxTransfer {
		c.Printf("Count must be 1..%d\n", maxTransfer)
		return 1, numberError(c.Arg(2), err)
	}
	offset := 0
	if c.NArg() > 3 {
		reg, err := cmdline.ParseHex(c.Arg(3))
		if err != nil || reg > 0xFF {
			c.Printf("Invalid register %s\n", c.Arg(3))
			return 1, numberError(c.Arg(3), err)
		}
		if err := b.bus.WriteToAddr(ctx, address, []byte{byte(reg)}); err != nil {
			return busFailure(c, "write", address, err)
		}
		offset = int(reg)
	}
	buf := make([]byte, count)
	if err := b.bus.ReadFromAddr(ctx, address, buf); err != nil {
		return busFailure(c, "read", address, err)
	}
	for i, v := range buf {
		if i%16 == 0 {
			if i > 0 {
				c.Printf("\n")
			}
			c.Printf("%02X:", (offset+i)&0xFF)
		}
		c.Printf(" %02X", v)
	}
	c.Printf("\n")
	return 0, nil
}

func (b *busCommands) write(ctx context.Context, c *cmdline.Console) (int, error) {
	address, err := i2c.ParseAddress(c.Arg(1))
	if err != nil {
		c.Printf("Invalid address %s\n", c.Arg(1))
		return 1, numberError(c.Arg(1), err)
	}
	args := c.Args()[2:]
	if len(args) > maxTransfer {
		c.Printf("At most %d bytes\n", maxTransfer)
		return 1, &cmdline.ArityError{Command: c.Arg(0), Got: c.NArg() - 1, Expected: maxTransfer + 1}
	}
	data := make([]byte, 0, len(args))
	for _, arg := range args {
		v, err := cmdline.ParseHex(arg)
		if err != nil || v > 0xFF {
			c.Printf("Invalid byte %s\n", arg)
			return 1, numberError(arg, err)
		}
		data = append(data, byte(v))
	}
	if err := b.bus.WriteToAddr(ctx, address, data); err != nil {
		return busFailure(c, "write", address, err)
	}
	c.Printf("Wrote %d bytes to 0x%02X\n", len(data), address)
	return 0, nil
}

// temp polls the DS3231 temperature once per period, either count times or,
// without a count, until ctx ends. The console does not run meanwhile.
func (b *busCommands) temp(ctx context.Context, c *cmdline.Console) (int, error) {
	count := 0
	if c.NArg() > 1 {
		n, err := cmdline.ParseInt(c.Arg(1))
		if err != nil || n < 1 {
			c.Printf("Invalid count %s\n", c.Arg(1))
			return 1, numberError(c.Arg(1), err)
		}
		count = n
	}
	if err := b.thermometer.Present(ctx); err != nil {
		c.Printf("DS3231 Not Found !\n")
		return 1, err
	}
	if count == 0 {
		c.Printf("Continuously read DS3231 temperature until interrupted\n")
	}
	for i := 0; count == 0 || i < count; i++ {
		if i > 0 {
			if err := b.sleep(ctx, b.period); err != nil {
				return 0, nil
			}
		}
		q, err := b.thermometer.Measure(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return 0, nil
			}
			return busFailure(c, "temp", rtcAddress, err)
		}
		c.Printf("Temp: %s\n", q)
	}
	return 0, nil
}

func (b *busCommands) rtc(ctx context.Context, c *cmdline.Console) (int, error) {
	if err := b.bus.Detect(ctx, rtcAddress); err != nil {
		c.Printf("DS3231 Not Found !\n")
		return 1, err
	}
	dev := ds3231.New(i2c.NewTinyGoBus(ctx, b.bus))
	now, err := dev.ReadTime()
	if err != nil {
		return busFailure(c, "rtc", rtcAddress, err)
	}
	c.Printf("RTC: %s\n", now.Format(time.DateTime))
	return 0, nil
}
