package i2c

import (
	"errors"
	"fmt"

	"github.com/mklimuk/diagcon"
)

// Status is the outcome of a bus primitive or transaction.
type Status int

const (
	Success Status = iota
	Busy           // both lines were never seen idle - missing pull-ups?
	NoAck          // the device did not acknowledge
	Timeout        // the controller never reached the expected state
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case Busy:
		return "busy"
	case NoAck:
		return "no ack"
	case Timeout:
		return "timeout"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Err maps the status onto the shared bus errors. Success maps to nil.
func (s Status) Err() error {
	switch s {
	case Success:
		return nil
	case Busy:
		return diagcon.ErrBusBusy
	case NoAck:
		return diagcon.ErrNoAck
	default:
		return diagcon.ErrTimeout
	}
}

// Error describes a failed bus operation.
type Error struct {
	Op     string
	Addr   byte
	Status Status
}

func (e *Error) Error() string {
	return fmt.Sprintf("i2c %s 0x%02X: %s", e.Op, e.Addr, e.Status)
}

func (e *Error) Unwrap() error {
	return e.Status.Err()
}

func newError(op string, addr byte, st Status) error {
	if st == Success {
		return nil
	}
	return &Error{Op: op, Addr: addr, Status: st}
}

// StatusOf recovers the bus status carried by err. Errors coming from other
// backends are classified through the shared sentinels.
func StatusOf(err error) Status {
	if err == nil {
		return Success
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	switch {
	case errors.Is(err, diagcon.ErrBusBusy):
		return Busy
	case errors.Is(err, diagcon.ErrNoAck):
		return NoAck
	default:
		return Timeout
	}
}
