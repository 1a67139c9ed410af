package port

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

const serialReadTimeout = 100 * time.Millisecond

// Serial is a console on a serial line, for talking to a board over a
// USB-UART bridge or for serving the console on one.
type Serial struct {
	*Chan
	port *serial.Port
}

// OpenSerial opens name at baud; opts apply to the input queue.
func OpenSerial(name string, baud int, opts ...ChanOpt) (*Serial, error) {
	p, err := serial.OpenPort(&serial.Config{
		Name:        name,
		Baud:        baud,
		ReadTimeout: serialReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}
	return &Serial{
		Chan: NewChan(timeoutReader{p}, opts...),
		port: p,
	}, nil
}

func (s *Serial) Write(b []byte) (int, error) {
	return s.port.Write(b)
}

func (s *Serial) Flush() error {
	return s.port.Flush()
}

func (s *Serial) Close() error {
	return s.port.Close()
}

// timeoutReader hides the empty reads a port with a read timeout produces
// when the line is quiet.
type timeoutReader struct {
	r io.Reader
}

func (t timeoutReader) Read(b []byte) (int, error) {
	for {
		n, err := t.r.Read(b)
		if n == 0 && errors.Is(err, io.EOF) {
			continue
		}
		return n, err
	}
}
