package i2c

import (
	"log/slog"
)

// DefaultLimit is the poll ceiling of every wait primitive.
const DefaultLimit = 10000

// Limits caps the number of status polls each wait primitive performs
// before giving up. There is no timer on the target; the ceiling is what
// keeps a silent device from hanging the console.
type Limits struct {
	Busy             int `yaml:"busy"`
	MasterMode       int `yaml:"master_mode"`
	TransmitComplete int `yaml:"transmit_complete"`
	TransmitEmpty    int `yaml:"transmit_empty"`
	MasterReceiver   int `yaml:"master_receiver"`
}

func DefaultLimits() Limits {
	return Limits{
		Busy:             DefaultLimit,
		MasterMode:       DefaultLimit,
		TransmitComplete: DefaultLimit,
		TransmitEmpty:    DefaultLimit,
		MasterReceiver:   DefaultLimit,
	}
}

// orDefault fills unset ceilings so a partial config never yields a zero budget.
func (l Limits) orDefault() Limits {
	fill := func(v *int) {
		if *v <= 0 {
			*v = DefaultLimit
		}
	}
	fill(&l.Busy)
	fill(&l.MasterMode)
	fill(&l.TransmitComplete)
	fill(&l.TransmitEmpty)
	fill(&l.MasterReceiver)
	return l
}

// Stats counts engine activity since creation.
type Stats struct {
	Polls    uint64
	Timeouts uint64
}

// Engine drives a Peripheral through the primitive steps of a master
// transaction. It keeps no transaction state; callers sequence the steps
// and must always finish with GenerateStop once a start was issued.
type Engine struct {
	hw     Peripheral
	limits Limits
	log    *slog.Logger
	stats  Stats
}

type EngineOpt func(*Engine)

func WithLimits(l Limits) EngineOpt {
	return func(e *Engine) {
		e.limits = l.orDefault()
	}
}

func WithLogger(l *slog.Logger) EngineOpt {
	return func(e *Engine) {
		e.log = l
	}
}

func NewEngine(hw Peripheral, opts ...EngineOpt) *Engine {
	e := &Engine{
		hw:     hw,
		limits: DefaultLimits(),
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Limits() Limits {
	return e.limits
}

func (e *Engine) Logger() *slog.Logger {
	return e.log
}

func (e *Engine) Stats() Stats {
	return e.stats
}

// spin evaluates cond until it holds or limit evaluations failed.
func (e *Engine) spin(name string, limit int, cond func() bool) bool {
	for count := 0; ; {
		e.stats.Polls++
		if cond() {
			return true
		}
		count++
		if count >= limit {
			e.stats.Timeouts++
			e.log.Debug("i2c wait gave up", "wait", name, "polls", count)
			return false
		}
	}
}

// WaitNotBusy waits for both bus lines to be released.
func (e *Engine) WaitNotBusy() Status {
	idle := e.spin("not busy", e.limits.Busy, func() bool {
		return !e.hw.Flag(FlagBusy)
	})
	if !idle {
		return Busy
	}
	return Success
}

func (e *Engine) GenerateStart() {
	e.hw.GenerateStart()
}

func (e *Engine) GenerateStop() {
	e.hw.GenerateStop()
}

func (e *Engine) SetAck(enable bool) {
	e.hw.SetAck(enable)
}

// WaitMasterMode waits for the start condition to be accepted.
func (e *Engine) WaitMasterMode() Status {
	ok := e.spin("master mode", e.limits.MasterMode, func() bool {
		return e.hw.CheckEvent(EventMasterModeSelect)
	})
	if !ok {
		return Timeout
	}
	return Success
}

// WaitTransmitComplete waits until the last address or data byte has been
// shifted out. A NAK ends the wait early with NoAck; the acknowledge-failure
// flag is left set for the caller to inspect and clear.
func (e *Engine) WaitTransmitComplete() Status {
	nak := false
	ok := e.spin("transmit complete", e.limits.TransmitComplete, func() bool {
		if e.hw.CheckEvent(EventTransmitterModeSelected) ||
			e.hw.CheckEvent(EventReceiverModeSelected) ||
			e.hw.CheckEvent(EventByteTransmitted) {
			return true
		}
		nak = e.hw.Flag(FlagAckFailure)
		return nak
	})
	switch {
	case nak:
		return NoAck
	case !ok:
		return Timeout
	}
	return Success
}

// WaitTransmitEmpty waits for the data register to accept another byte.
func (e *Engine) WaitTransmitEmpty() Status {
	ok := e.spin("transmit empty", e.limits.TransmitEmpty, func() bool {
		return e.hw.Flag(FlagTxEmpty)
	})
	if !ok {
		return Timeout
	}
	return Success
}

// WaitMasterReceiver waits for a received byte.
func (e *Engine) WaitMasterReceiver() Status {
	ok := e.spin("master receiver", e.limits.MasterReceiver, func() bool {
		return e.hw.CheckEvent(EventByteReceived)
	})
	if !ok {
		return Timeout
	}
	return Success
}

// SendByte writes an address or data byte and waits for it to leave.
func (e *Engine) SendByte(b byte) Status {
	e.hw.WriteData(b)
	return e.WaitTransmitComplete()
}

// ReceiveByte waits for the next received byte and takes it from the data
// register.
func (e *Engine) ReceiveByte() (byte, Status) {
	if st := e.WaitMasterReceiver(); st != Success {
		return 0, st
	}
	return e.hw.ReadData(), Success
}

// AckFailed reports the acknowledge-failure flag.
func (e *Engine) AckFailed() bool {
	return e.hw.Flag(FlagAckFailure)
}

func (e *Engine) ClearAckFailure() {
	e.hw.ClearFlag(FlagAckFailure)
}
