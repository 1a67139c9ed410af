package port

import (
	"bytes"
	"io"
)

// CRLF writes through to w with every bare \n expanded to \r\n, which is
// what a terminal in raw mode needs to return the carriage.
type CRLF struct {
	w    io.Writer
	last byte
}

func NewCRLF(w io.Writer) *CRLF {
	return &CRLF{w: w}
}

func (c *CRLF) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	out := make([]byte, 0, len(p)+bytes.Count(p, []byte{'\n'}))
	prev := c.last
	for _, b := range p {
		if b == '\n' && prev != '\r' {
			out = append(out, '\r')
		}
		out = append(out, b)
		prev = b
	}
	if _, err := c.w.Write(out); err != nil {
		return 0, err
	}
	c.last = prev
	return len(p), nil
}
