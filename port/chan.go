// Package port connects the console to byte streams: a terminal in raw
// mode, a serial line or anything else that reads like an io.Reader.
package port

import (
	"errors"
	"io"
	"log/slog"
	"sync"
)

// Control keys a raw terminal delivers as plain bytes.
const (
	KeyInterrupt = 0x03 // Ctrl-C
	KeyEOF       = 0x04 // Ctrl-D
)

const defaultDepth = 256

// Chan turns a blocking reader into a non-blocking byte source. A goroutine
// reads ahead into a bounded queue; PollByte takes from the queue without
// waiting. Bytes arriving while the queue is full are dropped, so control
// keys still get through while nobody polls.
type Chan struct {
	r     io.Reader
	ch    chan byte
	done  chan struct{}
	keys  map[byte]func(b byte)
	depth int
	// dropped is only touched by the reader goroutine
	dropped int

	mx  sync.Mutex
	err error
}

type ChanOpt func(*Chan)

// WithKeys diverts the given bytes to f instead of queueing them.
func WithKeys(f func(b byte), keys ...byte) ChanOpt {
	return func(c *Chan) {
		for _, k := range keys {
			c.keys[k] = f
		}
	}
}

// WithDepth sets how many bytes may wait for PollByte.
func WithDepth(n int) ChanOpt {
	return func(c *Chan) {
		if n > 0 {
			c.depth = n
		}
	}
}

func NewChan(r io.Reader, opts ...ChanOpt) *Chan {
	c := &Chan{
		r:     r,
		done:  make(chan struct{}),
		keys:  make(map[byte]func(byte)),
		depth: defaultDepth,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.ch = make(chan byte, c.depth)
	go c.pump()
	return c
}

func (c *Chan) pump() {
	defer close(c.done)
	buf := make([]byte, 64)
	for {
		n, err := c.r.Read(buf)
		for _, b := range buf[:n] {
			if f, ok := c.keys[b]; ok {
				f(b)
				continue
			}
			select {
			case c.ch <- b:
			default:
				c.dropped++
				if c.dropped == 1 {
					slog.Debug("port input queue full, dropping bytes", "depth", c.depth)
				}
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				slog.Debug("port reader stopped", "error", err)
			}
			c.mx.Lock()
			c.err = err
			c.mx.Unlock()
			return
		}
	}
}

// PollByte returns the next queued byte, if there is one.
func (c *Chan) PollByte() (byte, bool) {
	select {
	case b := <-c.ch:
		return b, true
	default:
		return 0, false
	}
}

// Done is closed once the reader failed or hit EOF. Bytes read before that
// stay available to PollByte.
func (c *Chan) Done() <-chan struct{} {
	return c.done
}

func (c *Chan) Err() error {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.err
}
