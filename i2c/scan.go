package i2c

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mklimuk/diagcon"
)

// Addresses outside this range are reserved by the protocol.
const (
	FirstAddress = 0x03
	LastAddress  = 0x77
)

type scanConfig struct {
	log *slog.Logger
}

type ScanOpt func(*scanConfig)

// WithScanLogger sets where failures other than a missing acknowledge are
// logged. Without it Scan uses the detector's own logger when it has one.
func WithScanLogger(l *slog.Logger) ScanOpt {
	return func(c *scanConfig) {
		c.log = l
	}
}

const scanHeader = "     0  1  2  3  4  5  6  7  8  9  A  B  C  D  E  F\n"

// Scan probes every non-reserved address and prints an i2cdetect style
// map to w:
//
//	     0  1  2  3  4  5  6  7  8  9  A  B  C  D  E  F
//	00:          -- -- -- -- -- -- -- -- -- -- -- -- --
//	...
//	50: -- -- -- -- -- -- 56 -- -- -- -- -- -- -- -- --
//	60: -- -- -- -- -- -- -- -- 68 -- -- -- -- -- -- --
//	70: -- -- -- -- -- -- -- --
//
// Any failure to detect counts as "not present". The addresses that
// answered are returned; a cancelled context ends the scan early.
func Scan(ctx context.Context, w io.Writer, d diagcon.Detector, opts ...ScanOpt) ([]byte, error) {
	cfg := scanConfig{log: slog.Default()}
	if l, ok := d.(interface{ Logger() *slog.Logger }); ok && l.Logger() != nil {
		cfg.log = l.Logger()
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	var found []byte
	_, _ = io.WriteString(w, scanHeader)
	_, _ = fmt.Fprintf(w, "%02X: %s", FirstAddress&0xF0, strings.Repeat("   ", FirstAddress%0x10))
	for address := FirstAddress; address <= LastAddress; address++ {
		if address%0x10 == 0 {
			_, _ = fmt.Fprintf(w, "\n%02X: ", address)
		}
		err := d.Detect(ctx, byte(address))
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			_, _ = io.WriteString(w, "\n")
			return found, err
		}
		if err != nil {
			if !errors.Is(err, diagcon.ErrNoAck) {
				cfg.log.Debug("scan: detect failed", "address", fmt.Sprintf("%#02x", address), "error", err)
			}
			_, _ = io.WriteString(w, "-- ")
			continue
		}
		found = append(found, byte(address))
		_, _ = fmt.Fprintf(w, "%02X ", address)
	}
	_, _ = io.WriteString(w, "\n")
	return found, nil
}
