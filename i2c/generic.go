package i2c

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/mklimuk/diagcon"
	"github.com/mklimuk/diagcon/dbgctx"
)

var _ diagcon.ProbingBus = &GenericBus{}

// GenericBus is a host I2C bus driven through the kernel driver. It works
// on whole transactions, so the register engine is not involved.
type GenericBus struct {
	bus i2c.BusCloser
}

func NewGenericBus(dev string) (*GenericBus, error) {
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("could not init host: %w", err)
	}
	for _, driver := range state.Loaded {
		slog.Debug("host driver loaded", "driver", driver.String())
	}
	bus, err := i2creg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("could not open i2c bus: %w", err)
	}
	return &GenericBus{
		bus: bus,
	}, nil
}

func (b *GenericBus) SetSpeed(f physic.Frequency) error {
	return b.bus.SetSpeed(f)
}

func (b *GenericBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	err := b.bus.Tx(uint16(address), nil, buffer)
	if err != nil {
		return fmt.Errorf("could not read from i2c bus %x: %w", address, err)
	}
	if dbgctx.IsVerbose(ctx) {
		slog.Debug("i2c read", "address", address, "data", hex.EncodeToString(buffer))
	}
	return nil
}

func (b *GenericBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	if dbgctx.IsVerbose(ctx) {
		slog.Debug("i2c write", "address", address, "data", hex.EncodeToString(buffer))
	}
	err := b.bus.Tx(uint16(address), buffer, nil)
	if err != nil {
		return fmt.Errorf("could not write to i2c bus %x: %w", address, err)
	}
	return nil
}

// Detect reads one byte from the address. The kernel does not tell a NAK
// from other transfer errors, so every failure counts as no device.
func (b *GenericBus) Detect(ctx context.Context, address byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var probe [1]byte
	if err := b.bus.Tx(uint16(address), nil, probe[:]); err != nil {
		return fmt.Errorf("detect %x: %w (%v)", address, diagcon.ErrNoAck, err)
	}
	return nil
}

func (b *GenericBus) Release(ctx context.Context) error {
	return nil
}

func (b *GenericBus) Close() error {
	return b.bus.Close()
}
