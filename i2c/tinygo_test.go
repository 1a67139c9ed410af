package i2c_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tinygo.org/x/drivers/ds3231"

	"github.com/mklimuk/diagcon/i2c"
)

func TestTinyGoBus_DS3231Time(t *testing.T) {
	b := newTestBoard(i2c.Limits{})
	rtc := ds3231.New(i2c.NewTinyGoBus(context.Background(), b.bus))
	now, err := rtc.ReadTime()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 15, 13, 45, 30, 0, time.UTC), now)
	assertBalanced(t, b.hw.Trace())
}

func TestTinyGoBus_Registers(t *testing.T) {
	b := newTestBoard(i2c.Limits{})
	tb := i2c.NewTinyGoBus(context.Background(), b.bus)
	require.NoError(t, tb.WriteRegister(rtcAddress, 0x07, []byte{0x12, 0x34}))
	buf := make([]byte, 2)
	require.NoError(t, tb.ReadRegister(rtcAddress, 0x07, buf))
	assert.Equal(t, []byte{0x12, 0x34}, buf)
}

func TestTinyGoBus_Errors(t *testing.T) {
	b := newTestBoard(i2c.Limits{})
	tb := i2c.NewTinyGoBus(context.Background(), b.bus)
	err := tb.Tx(0x33, []byte{0x00}, make([]byte, 1))
	assert.Equal(t, i2c.NoAck, i2c.StatusOf(err))
	assert.NoError(t, tb.Tx(rtcAddress, nil, nil))
}
