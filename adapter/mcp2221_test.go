package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/diagcon"
)

// fakeBridge answers HID reports the way the chip does for a bus with a
// fixed set of devices.
type fakeBridge struct {
	devices  map[byte][]byte
	busy     bool
	requests [][]byte
	last     []byte
	pending  []byte
	failed   bool
}

func (f *fakeBridge) open() (hidDevice, error) {
	return f, nil
}

func (f *fakeBridge) Write(b []byte) (int, error) {
	f.requests = append(f.requests, append([]byte(nil), b...))
	f.last = append([]byte(nil), b...)
	return len(b), nil
}

func (f *fakeBridge) Read(b []byte) (int, error) {
	clear(b)
	req := f.last
	b[0] = req[0]
	switch req[0] {
	case cmdWriteData:
		if f.busy {
			b[1] = statusBusy
		}
	case cmdReadData:
		if f.busy {
			b[1] = statusBusy
			break
		}
		size := int(req[1])
		data, ok := f.devices[req[3]>>1]
		f.failed = !ok
		f.pending = nil
		if ok {
			f.pending = data[:size]
		}
	case cmdGetReadData:
		if f.failed {
			b[1] = readDataFailure
			break
		}
		b[3] = byte(len(f.pending))
		copy(b[4:], f.pending)
	case cmdStatus:
		b[13] = 3
		b[14] = 0x76
		b[16] = 0xD0
	}
	return len(b), nil
}

func (f *fakeBridge) Close() error { return nil }

func newTestBridge(f *fakeBridge) *MCP2221 {
	d := NewMCP2221()
	d.responseWait = 0
	d.open = f.open
	return d
}

func TestMCP2221_ReadWrite(t *testing.T) {
	f := &fakeBridge{devices: map[byte][]byte{0x68: {0x12, 0x34, 0x56}}}
	d := newTestBridge(f)
	ctx := context.Background()

	require.NoError(t, d.WriteToAddr(ctx, 0x68, []byte{0x11}))
	assert.Equal(t, []byte{cmdWriteData, 1, 0, 0xD0, 0x11}, f.requests[0][:5])

	buf := make([]byte, 2)
	require.NoError(t, d.ReadFromAddr(ctx, 0x68, buf))
	assert.Equal(t, []byte{0x12, 0x34}, buf)
	assert.Equal(t, byte(0xD1), f.requests[1][3])
	assert.Equal(t, byte(cmdGetReadData), f.requests[2][0])
}

func TestMCP2221_Busy(t *testing.T) {
	f := &fakeBridge{busy: true}
	d := newTestBridge(f)
	err := d.WriteToAddr(context.Background(), 0x68, []byte{0x00})
	assert.ErrorIs(t, err, diagcon.ErrBusBusy)
	err = d.ReadFromAddr(context.Background(), 0x68, make([]byte, 1))
	assert.ErrorIs(t, err, diagcon.ErrBusBusy)
}

func TestMCP2221_Detect(t *testing.T) {
	f := &fakeBridge{devices: map[byte][]byte{0x48: {0x19}}}
	d := newTestBridge(f)
	ctx := context.Background()
	assert.NoError(t, d.Detect(ctx, 0x48))

	f.requests = nil
	err := d.Detect(ctx, 0x49)
	assert.ErrorIs(t, err, diagcon.ErrNoAck)
	// read, fetch, then the release that frees the engine
	require.Len(t, f.requests, 3)
	assert.Equal(t, []byte{cmdStatus, 0x00, 0x10}, f.requests[2][:3])
}

func TestMCP2221_SetGPIO(t *testing.T) {
	f := &fakeBridge{}
	d := newTestBridge(f)
	ctx := context.Background()
	require.NoError(t, d.SetGPIO(ctx, 2, true))
	req := f.requests[0]
	assert.Equal(t, byte(cmdSetGPIO), req[0])
	assert.Equal(t, []byte{1, 1}, req[10:12])
	assert.Equal(t, []byte{0, 0}, req[2:4])
	assert.Error(t, d.SetGPIO(ctx, 4, true))
}

func TestMCP2221_Status(t *testing.T) {
	d := newTestBridge(&fakeBridge{})
	status, err := d.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, status.I2CDataBufferCounter)
	assert.Equal(t, 0x76, status.I2CSpeedDivider)
	assert.Equal(t, "d000", status.CurrentAddress)
}

func TestMCP2221_NotFound(t *testing.T) {
	d := NewMCP2221()
	d.open = func() (hidDevice, error) { return nil, ErrDeviceNotFound }
	_, err := d.Status(context.Background())
	assert.True(t, errors.Is(err, ErrDeviceNotFound))
}

func TestMCP2221_Cancelled(t *testing.T) {
	f := &fakeBridge{}
	d := newTestBridge(f)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, d.WriteToAddr(ctx, 0x68, nil), context.Canceled)
	assert.Empty(t, f.requests)
}

func TestBufferToStatus(t *testing.T) {
	buf := make([]byte, reportSize)
	buf[9], buf[10] = 0x04, 0x01
	buf[11], buf[12] = 0x02, 0x00
	buf[15] = 9
	buf[17] = 0x01
	buf[25] = 1
	status := bufferToStatus(buf)
	assert.Equal(t, &MCP2221Status{
		I2CTimeout:             9,
		CurrentAddress:         "0001",
		LastWriteRequestedSize: 0x0104,
		LastWriteSentSize:      2,
		ReadPending:            1,
	}, status)
}
