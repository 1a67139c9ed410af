package adapter

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/diagcon"
)

type MockDevice struct {
	mock.Mock
}

func (m *MockDevice) Start() error {
	return m.Called().Error(0)
}

func (m *MockDevice) Halt() error {
	return m.Called().Error(0)
}

func (m *MockDevice) Read(data []byte) error {
	return m.Called(data).Error(0)
}

func (m *MockDevice) Write(data []byte) error {
	return m.Called(data).Error(0)
}

func newTestNanoPi(devs map[byte]*MockDevice) *NanoPi {
	return &NanoPi{
		devices: make(map[byte]device),
		newDev: func(address byte) device {
			return devs[address]
		},
	}
}

func TestNanoPi_DriverPerAddress(t *testing.T) {
	dev := &MockDevice{}
	dev.On("Start").Return(nil).Once()
	dev.On("Write", []byte{0x11}).Return(nil)
	dev.On("Read", mock.Anything).Run(func(args mock.Arguments) {
		copy(args.Get(0).([]byte), []byte{0x19, 0x40})
	}).Return(nil)
	dev.On("Halt").Return(nil).Once()

	n := newTestNanoPi(map[byte]*MockDevice{0x68: dev})
	ctx := context.Background()
	require.NoError(t, n.WriteToAddr(ctx, 0x68, []byte{0x11}))
	buf := make([]byte, 2)
	require.NoError(t, n.ReadFromAddr(ctx, 0x68, buf))
	assert.Equal(t, []byte{0x19, 0x40}, buf)
	require.NoError(t, n.Close())
	dev.AssertExpectations(t)
}

func TestNanoPi_Detect(t *testing.T) {
	present := &MockDevice{}
	present.On("Start").Return(nil)
	present.On("Read", mock.Anything).Return(nil)
	absent := &MockDevice{}
	absent.On("Start").Return(nil)
	absent.On("Read", mock.Anything).Return(fmt.Errorf("read: %w", syscall.EREMOTEIO))

	n := newTestNanoPi(map[byte]*MockDevice{0x48: present, 0x49: absent})
	assert.NoError(t, n.Detect(context.Background(), 0x48))
	assert.ErrorIs(t, n.Detect(context.Background(), 0x49), diagcon.ErrNoAck)
}

func TestNanoPi_StartFailure(t *testing.T) {
	dev := &MockDevice{}
	dev.On("Start").Return(errors.New("no bus")).Twice()
	n := newTestNanoPi(map[byte]*MockDevice{0x50: dev})
	assert.Error(t, n.WriteToAddr(context.Background(), 0x50, []byte{0}))
	assert.Error(t, n.WriteToAddr(context.Background(), 0x50, []byte{0}))
	dev.AssertExpectations(t)
}

func TestMapLinuxError(t *testing.T) {
	tests := []struct {
		in  error
		out error
	}{
		{syscall.ENXIO, diagcon.ErrNoAck},
		{syscall.EREMOTEIO, diagcon.ErrNoAck},
		{syscall.EBUSY, diagcon.ErrBusBusy},
		{syscall.ETIMEDOUT, diagcon.ErrTimeout},
	}
	for _, test := range tests {
		t.Run(test.in.Error(), func(t *testing.T) {
			err := mapLinuxError(fmt.Errorf("tx: %w", test.in))
			assert.ErrorIs(t, err, test.out)
			assert.ErrorIs(t, err, test.in)
		})
	}
	other := errors.New("other")
	assert.Equal(t, other, mapLinuxError(other))
}
