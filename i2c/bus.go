package i2c

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mklimuk/diagcon"
)

var _ diagcon.ProbingBus = &Bus{}

// Bus composes engine primitives into complete transactions. Every
// transaction that got as far as a start condition ends with a stop, on
// error paths too; a start without a stop leaves the bus wedged.
type Bus struct {
	eng *Engine
}

func NewBus(hw Peripheral, opts ...EngineOpt) *Bus {
	return &Bus{eng: NewEngine(hw, opts...)}
}

func (b *Bus) Engine() *Engine {
	return b.eng
}

// Logger is the engine's logger; Scan reports through it.
func (b *Bus) Logger() *slog.Logger {
	return b.eng.Logger()
}

func addressByte(address byte, read bool) byte {
	a := address << 1
	if read {
		a |= 1
	}
	return a
}

// begin runs not-busy, start, master mode and the address byte.
func (b *Bus) begin(address byte, read bool) (started bool, st Status) {
	if st = b.eng.WaitNotBusy(); st != Success {
		return false, st
	}
	b.eng.GenerateStart()
	if st = b.eng.WaitMasterMode(); st != Success {
		return true, st
	}
	return true, b.eng.SendByte(addressByte(address, read))
}

// end clears a pending NAK so it does not leak into the next transaction
// and stops the bus if a start was issued.
func (b *Bus) end(started bool) {
	if b.eng.AckFailed() {
		b.eng.ClearAckFailure()
	}
	if started {
		b.eng.GenerateStop()
	}
}

// Write sends data to the device at the 7-bit address. It stops at the
// first failing step.
func (b *Bus) Write(address byte, data []byte) error {
	started, st := b.begin(address, false)
	for i := 0; st == Success && i < len(data); i++ {
		st = b.eng.SendByte(data[i])
	}
	b.end(started)
	return newError("write", address, st)
}

// Read fills buf from the device at the 7-bit address. Every byte but the
// last is acknowledged; the last one gets a NAK so the device lets go of
// the bus.
func (b *Bus) Read(address byte, buf []byte) error {
	b.eng.SetAck(true)
	started, st := b.begin(address, true)
	for i := 0; st == Success && i < len(buf); i++ {
		if i == len(buf)-1 {
			b.eng.SetAck(false)
		}
		buf[i], st = b.eng.ReceiveByte()
	}
	b.eng.SetAck(false)
	b.end(started)
	return newError("read", address, st)
}

// Detect addresses the device for reading and reports whether it answered.
// The address byte completing with a NAK is a normal outcome and is reported
// as NoAck, as is an address phase that never completed.
func (b *Bus) Detect(ctx context.Context, address byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.eng.SetAck(true)
	if st := b.eng.WaitNotBusy(); st != Success {
		b.eng.SetAck(false)
		return newError("detect", address, st)
	}
	b.eng.GenerateStart()
	st := b.eng.WaitMasterMode()
	if st == Success {
		st = b.eng.SendByte(addressByte(address, true))
		if st != Success {
			st = NoAck
		}
	}
	if b.eng.AckFailed() {
		b.eng.ClearAckFailure()
		st = NoAck
	}
	b.eng.SetAck(false)
	b.eng.GenerateStop()
	return newError("detect", address, st)
}

func (b *Bus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.Read(address, buffer)
}

func (b *Bus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.Write(address, buffer)
}

// Release issues a stop and drops a pending NAK; drivers call it after a
// busy error before retrying.
func (b *Bus) Release(ctx context.Context) error {
	b.eng.SetAck(false)
	b.end(true)
	return nil
}

// ParseAddress parses a 7-bit device address written in hex, with or
// without a 0x prefix.
func ParseAddress(s string) (byte, error) {
	digits := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(digits, 16, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	if v > 0x7F {
		return 0, fmt.Errorf("address %q is not a 7-bit address", s)
	}
	return byte(v), nil
}
