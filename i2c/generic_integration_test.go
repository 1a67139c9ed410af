//go:build integration

package i2c_test

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/diagcon/environment"
	"github.com/mklimuk/diagcon/i2c"
)

// Needs a DS3231 module on the bus named by DIAGCON_I2C_DEVICE.
func TestGenericBus_DS3231(t *testing.T) {
	dev := os.Getenv("DIAGCON_I2C_DEVICE")
	if dev == "" {
		t.Skip("DIAGCON_I2C_DEVICE not set")
	}
	bus, err := i2c.NewGenericBus(dev)
	require.NoError(t, err)
	defer bus.Close()

	ctx := context.Background()
	found, err := i2c.Scan(ctx, io.Discard, bus)
	require.NoError(t, err)
	assert.Contains(t, found, byte(0x68))

	temp, err := environment.NewDS3231(bus).Measure(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 25, temp.Celsius(), 30)
}
