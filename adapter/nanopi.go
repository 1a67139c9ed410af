package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"syscall"

	"gobot.io/x/gobot/v2/drivers/i2c"
	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"

	"github.com/mklimuk/diagcon"
)

// DefaultNanoPiBus is the I2C bus wired to the NEO header pins.
const DefaultNanoPiBus = 0

var _ diagcon.ProbingBus = &NanoPi{}

// device is the subset of a gobot I2C driver the bus uses.
type device interface {
	Start() error
	Halt() error
	Read(data []byte) error
	Write(data []byte) error
}

// NanoPi drives an I2C bus of a FriendlyElec NanoPi NEO through gobot. One
// generic driver is started per device address and kept until Close.
type NanoPi struct {
	mx      sync.Mutex
	npi     *nanopi.Adaptor
	bus     int
	devices map[byte]device
	newDev  func(address byte) device
}

func NewNanoPi(bus int) (*NanoPi, error) {
	npi := nanopi.NewNeoAdaptor()
	err := npi.I2cBusAdaptor.Connect()
	if err != nil {
		return nil, fmt.Errorf("adaptor connect error: %w", err)
	}
	n := &NanoPi{
		npi:     npi,
		bus:     bus,
		devices: make(map[byte]device),
	}
	n.newDev = func(address byte) device {
		return i2c.NewGenericDriver(npi, fmt.Sprintf("dev%02x", address), int(address), func(c i2c.Config) {
			c.SetBus(bus)
		})
	}
	return n, nil
}

func (n *NanoPi) device(address byte) (device, error) {
	if d, ok := n.devices[address]; ok {
		return d, nil
	}
	d := n.newDev(address)
	if err := d.Start(); err != nil {
		return nil, fmt.Errorf("start error: %w", err)
	}
	n.devices[address] = d
	return d, nil
}

func (n *NanoPi) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.mx.Lock()
	defer n.mx.Unlock()
	d, err := n.device(address)
	if err != nil {
		return err
	}
	if err := d.Read(buffer); err != nil {
		return fmt.Errorf("read from %x failed: %w", address, mapLinuxError(err))
	}
	return nil
}

func (n *NanoPi) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.mx.Lock()
	defer n.mx.Unlock()
	d, err := n.device(address)
	if err != nil {
		return err
	}
	if err := d.Write(buffer); err != nil {
		return fmt.Errorf("write to %x failed: %w", address, mapLinuxError(err))
	}
	return nil
}

// Detect reads a single byte; the kernel reports a missing acknowledge as
// ENXIO or EREMOTEIO.
func (n *NanoPi) Detect(ctx context.Context, address byte) error {
	return n.ReadFromAddr(ctx, address, make([]byte, 1))
}

// Release is a no-op; the kernel driver ends every transfer with a stop.
func (n *NanoPi) Release(context.Context) error {
	return nil
}

func (n *NanoPi) Close() error {
	n.mx.Lock()
	defer n.mx.Unlock()
	for addr, d := range n.devices {
		if err := d.Halt(); err != nil {
			slog.Debug("could not halt driver", "address", addr, "error", err)
		}
		delete(n.devices, addr)
	}
	if n.npi == nil {
		return nil
	}
	return n.npi.I2cBusAdaptor.Finalize()
}

func mapLinuxError(err error) error {
	if errors.Is(err, syscall.ENXIO) || errors.Is(err, syscall.EREMOTEIO) {
		return fmt.Errorf("%w: %w", diagcon.ErrNoAck, err)
	}
	if errors.Is(err, syscall.EBUSY) || errors.Is(err, syscall.EAGAIN) {
		return fmt.Errorf("%w: %w", diagcon.ErrBusBusy, err)
	}
	if errors.Is(err, syscall.ETIMEDOUT) {
		return fmt.Errorf("%w: %w", diagcon.ErrTimeout, err)
	}
	return err
}
