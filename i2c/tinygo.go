package i2c

import (
	"context"

	"tinygo.org/x/drivers"

	"github.com/mklimuk/diagcon"
)

var _ drivers.I2C = &TinyGoBus{}

// TinyGoBus lets tinygo.org/x/drivers device drivers run on any bus. A
// write-then-read Tx becomes two transactions; the devices used with it
// keep their register pointer across the stop.
type TinyGoBus struct {
	ctx context.Context
	bus diagcon.I2CBus
}

func NewTinyGoBus(ctx context.Context, bus diagcon.I2CBus) *TinyGoBus {
	return &TinyGoBus{ctx: ctx, bus: bus}
}

func (t *TinyGoBus) Tx(addr uint16, w, r []byte) error {
	if len(w) > 0 {
		if err := t.bus.WriteToAddr(t.ctx, byte(addr), w); err != nil {
			return err
		}
	}
	if len(r) > 0 {
		return t.bus.ReadFromAddr(t.ctx, byte(addr), r)
	}
	return nil
}

func (t *TinyGoBus) ReadRegister(addr uint8, r uint8, buf []byte) error {
	return t.Tx(uint16(addr), []byte{r}, buf)
}

func (t *TinyGoBus) WriteRegister(addr uint8, r uint8, buf []byte) error {
	return t.Tx(uint16(addr), append([]byte{r}, buf...), nil)
}
