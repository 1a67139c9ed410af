package cmdline

import (
	"errors"
	"fmt"

	"github.com/mklimuk/diagcon"
)

var (
	ErrArity           = errors.New("invalid argument count")
	ErrCommandNotFound = errors.New("command not found")
	ErrMalformedNumber = errors.New("malformed numeric argument")
)

// ErrorKind classifies what went wrong with a console command. The console
// reports all of them as text and keeps running.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindArity
	KindCommandNotFound
	KindBusBusy
	KindBusNoAck
	KindBusTimeout
	KindMalformedNumber
	KindOther
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindArity:
		return "arity error"
	case KindCommandNotFound:
		return "command not found"
	case KindBusBusy:
		return "bus busy"
	case KindBusNoAck:
		return "bus no ack"
	case KindBusTimeout:
		return "bus timeout"
	case KindMalformedNumber:
		return "malformed numeric argument"
	default:
		return "other"
	}
}

// KindOf classifies err, looking through wrapping.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrArity):
		return KindArity
	case errors.Is(err, ErrCommandNotFound):
		return KindCommandNotFound
	case errors.Is(err, ErrMalformedNumber):
		return KindMalformedNumber
	case errors.Is(err, diagcon.ErrBusBusy):
		return KindBusBusy
	case errors.Is(err, diagcon.ErrNoAck):
		return KindBusNoAck
	case errors.Is(err, diagcon.ErrTimeout):
		return KindBusTimeout
	default:
		return KindOther
	}
}

// ArityError is returned when a command got fewer words than it needs.
// Both counts exclude the command word.
type ArityError struct {
	Command  string
	Got      int
	Expected int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("%s: got %d arguments, expected %d", e.Command, e.Got, e.Expected)
}

func (e *ArityError) Unwrap() error {
	return ErrArity
}

type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("command %q not found", e.Name)
}

func (e *NotFoundError) Unwrap() error {
	return ErrCommandNotFound
}

// NumberError reports an argument that did not parse.
type NumberError struct {
	Arg string
	Err error
}

func (e *NumberError) Error() string {
	return fmt.Sprintf("malformed number %q: %v", e.Arg, e.Err)
}

func (e *NumberError) Is(target error) bool {
	return target == ErrMalformedNumber
}

func (e *NumberError) Unwrap() error {
	return e.Err
}
