package diagcon

import (
	"context"
	"errors"
)

// Bus failures shared by every backend. The register engine, the USB bridge
// and the Linux bus all report through these so callers can tell a missing
// device from a wedged bus.
var (
	ErrBusBusy = errors.New("I2C engine is busy (command not completed)")
	ErrNoAck   = errors.New("I2C device did not acknowledge")
	ErrTimeout = errors.New("I2C operation timed out")
)

type BusReader interface {
	Read(ctx context.Context, buffer []byte) error
}

type BusWriter interface {
	Write(ctx context.Context, buffer []byte) error
}

type AddressableReader interface {
	ReadFromAddr(ctx context.Context, address byte, buffer []byte) error
}

type AddressableWriter interface {
	WriteToAddr(ctx context.Context, address byte, buffer []byte) error
	Release(ctx context.Context) error
}

type I2CBus interface {
	AddressableReader
	AddressableWriter
}

// Detector checks whether a device acknowledges its address. A missing
// device is reported as ErrNoAck.
type Detector interface {
	Detect(ctx context.Context, address byte) error
}

// ProbingBus is a bus that can also look for devices. Console bus commands
// need one.
type ProbingBus interface {
	I2CBus
	Detector
}
