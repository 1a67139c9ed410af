// Package sim models a two-wire master controller at register level so the
// transaction engine can run without hardware. Devices attach at 7-bit
// addresses; an address nobody claims is answered with a NAK, as on a real
// bus.
package sim

import (
	"github.com/mklimuk/diagcon/i2c"
)

var _ i2c.Peripheral = &Controller{}

// Device is a bus target. Start is called when the master sends the
// device's address and returns whether the device acknowledges. Read
// returns the next byte for the master; ack tells the device whether the
// master wants another one after it.
type Device interface {
	Start(read bool) bool
	Write(b byte) bool
	Read(ack bool) byte
	Stop()
}

// Faults make the controller misbehave in the ways the engine has to
// survive.
type Faults struct {
	StuckBusy       bool // a line is held low forever
	NoMasterMode    bool // start condition never accepted
	StretchTransmit bool // bytes never finish shifting out
	SilentReceive   bool // nothing ever arrives in receive mode
}

type state int

const (
	stateIdle state = iota
	stateMasterMode
	stateTransmitter
	stateByteTransmitted
	stateReceiver
	stateNak
	stateStalled
)

// RecordKind labels an entry of the controller trace.
type RecordKind int

const (
	RecordStart RecordKind = iota
	RecordAddress
	RecordWrite
	RecordRead
	RecordStop
)

// Record is one bus event. Ack holds the acknowledge bit that followed the
// byte: given by the device for address and write bytes, by the master for
// read bytes.
type Record struct {
	Kind RecordKind
	Byte byte
	Ack  bool
}

type Controller struct {
	devices map[byte]Device
	faults  Faults

	state     state
	busy      bool
	ackFail   bool
	ackEnable bool
	target    Device

	rxData    byte
	rxPending bool

	polls int
	trace []Record
}

func NewController() *Controller {
	return &Controller{devices: make(map[byte]Device)}
}

// Attach places dev at the 7-bit address, replacing any previous device.
func (c *Controller) Attach(address byte, dev Device) {
	c.devices[address&0x7F] = dev
}

func (c *Controller) Detach(address byte) {
	delete(c.devices, address&0x7F)
}

func (c *Controller) SetFaults(f Faults) {
	c.faults = f
}

// Polls counts Flag and CheckEvent calls.
func (c *Controller) Polls() int {
	return c.polls
}

func (c *Controller) ResetPolls() {
	c.polls = 0
}

// Trace returns the events seen since the last ResetTrace.
func (c *Controller) Trace() []Record {
	out := make([]Record, len(c.trace))
	copy(out, c.trace)
	return out
}

func (c *Controller) ResetTrace() {
	c.trace = c.trace[:0]
}

// AckEnabled reports the ACK-enable control bit.
func (c *Controller) AckEnabled() bool {
	return c.ackEnable
}

func (c *Controller) Flag(f i2c.Flag) bool {
	c.polls++
	switch f {
	case i2c.FlagBusy:
		return c.busy || c.faults.StuckBusy
	case i2c.FlagAckFailure:
		return c.ackFail
	case i2c.FlagTxEmpty:
		return !c.faults.StretchTransmit && (c.state == stateTransmitter || c.state == stateByteTransmitted)
	}
	return false
}

func (c *Controller) ClearFlag(f i2c.Flag) {
	if f == i2c.FlagAckFailure {
		c.ackFail = false
	}
}

func (c *Controller) CheckEvent(e i2c.Event) bool {
	c.polls++
	switch e {
	case i2c.EventMasterModeSelect:
		return c.state == stateMasterMode
	case i2c.EventTransmitterModeSelected:
		return c.state == stateTransmitter
	case i2c.EventReceiverModeSelected:
		return c.state == stateReceiver && !c.rxPending
	case i2c.EventByteTransmitted:
		return c.state == stateByteTransmitted
	case i2c.EventByteReceived:
		if c.state != stateReceiver || c.faults.SilentReceive {
			return false
		}
		if !c.rxPending {
			c.rxData = c.target.Read(c.ackEnable)
			c.rxPending = true
			c.trace = append(c.trace, Record{Kind: RecordRead, Byte: c.rxData, Ack: c.ackEnable})
		}
		return true
	}
	return false
}

func (c *Controller) GenerateStart() {
	c.trace = append(c.trace, Record{Kind: RecordStart})
	c.busy = true
	c.rxPending = false
	if c.faults.NoMasterMode {
		c.state = stateStalled
		return
	}
	c.state = stateMasterMode
}

func (c *Controller) GenerateStop() {
	c.trace = append(c.trace, Record{Kind: RecordStop})
	if c.target != nil {
		c.target.Stop()
	}
	c.target = nil
	c.rxPending = false
	c.busy = false
	c.state = stateIdle
}

func (c *Controller) WriteData(b byte) {
	switch c.state {
	case stateMasterMode:
		c.address(b)
	case stateTransmitter, stateByteTransmitted:
		ack := c.target.Write(b)
		c.trace = append(c.trace, Record{Kind: RecordWrite, Byte: b, Ack: ack})
		c.settle(ack, stateByteTransmitted)
	}
}

func (c *Controller) address(b byte) {
	read := b&1 == 1
	dev, ok := c.devices[b>>1]
	ack := ok && dev.Start(read)
	c.trace = append(c.trace, Record{Kind: RecordAddress, Byte: b, Ack: ack})
	if ack {
		c.target = dev
	}
	next := stateTransmitter
	if read {
		next = stateReceiver
	}
	c.settle(ack, next)
}

func (c *Controller) settle(ack bool, next state) {
	switch {
	case c.faults.StretchTransmit:
		c.state = stateStalled
	case !ack:
		c.ackFail = true
		c.state = stateNak
	default:
		c.state = next
	}
}

func (c *Controller) ReadData() byte {
	c.rxPending = false
	return c.rxData
}

func (c *Controller) SetAck(enable bool) {
	c.ackEnable = enable
}
