package environment

import (
	"context"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/diagcon"
)

// MockI2CBus is a mock implementation of diagcon.I2CBus using testify/mock
type MockI2CBus struct {
	mock.Mock
}

func (m *MockI2CBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	args := m.Called(ctx, address, buffer)
	return args.Error(0)
}

func (m *MockI2CBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	args := m.Called(ctx, address, buffer)
	if data, ok := args.Get(0).([]byte); ok && len(data) <= len(buffer) {
		// Copy mock data to buffer if provided
		copy(buffer, data)
	}
	return args.Error(1)
}

func (m *MockI2CBus) Release(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockProbingBus adds Detect to MockI2CBus
type MockProbingBus struct {
	MockI2CBus
}

func (m *MockProbingBus) Detect(ctx context.Context, address byte) error {
	args := m.Called(ctx, address)
	return args.Error(0)
}

func TestDS3231_Measure(t *testing.T) {
	ctx := context.Background()
	bus := &MockI2CBus{}
	bus.On("WriteToAddr", ctx, byte(0x68), []byte{0x0E, 0x3C}).Return(nil).Once()
	bus.On("WriteToAddr", ctx, byte(0x68), []byte{0x11}).Return(nil).Once()
	bus.On("ReadFromAddr", ctx, byte(0x68), mock.Anything).Return([]byte{0x19, 0x40}, nil).Once()

	q, err := NewDS3231(bus).Measure(ctx)
	require.NoError(t, err)
	assert.Equal(t, Quarters(101), q)
	bus.AssertExpectations(t)
}

func TestDS3231_RetriesBusyBus(t *testing.T) {
	ctx := context.Background()
	bus := &MockI2CBus{}
	bus.On("WriteToAddr", ctx, byte(0x57), []byte{0x0E, 0x3C}).Return(diagcon.ErrBusBusy).Once()
	bus.On("Release", ctx).Return(nil).Once()
	bus.On("WriteToAddr", ctx, byte(0x57), []byte{0x0E, 0x3C}).Return(nil).Once()

	err := NewDS3231(bus, WithAddress(0x57)).ConvertTemperature(ctx)
	assert.NoError(t, err)
	bus.AssertExpectations(t)
}

func TestDS3231_RetryLimit(t *testing.T) {
	ctx := context.Background()
	bus := &MockI2CBus{}
	bus.On("WriteToAddr", ctx, byte(0x68), []byte{0x11}).Return(diagcon.ErrBusBusy).Times(3)
	bus.On("Release", ctx).Return(nil).Times(3)

	_, err := NewDS3231(bus, WithRetryLimit(3)).ReadQuarters(ctx)
	assert.ErrorIs(t, err, diagcon.ErrBusBusy)
	bus.AssertExpectations(t)
}

func TestDS3231_NoRetryOnNak(t *testing.T) {
	ctx := context.Background()
	bus := &MockI2CBus{}
	bus.On("WriteToAddr", ctx, byte(0x68), []byte{0x0E, 0x3C}).Return(diagcon.ErrNoAck).Once()

	_, err := NewDS3231(bus).GetTemperature(ctx)
	assert.ErrorIs(t, err, diagcon.ErrNoAck)
	bus.AssertNotCalled(t, "Release", ctx)
}

func TestDS3231_Present(t *testing.T) {
	ctx := context.Background()
	probing := &MockProbingBus{}
	probing.On("Detect", ctx, byte(0x68)).Return(diagcon.ErrNoAck)
	assert.ErrorIs(t, NewDS3231(probing).Present(ctx), diagcon.ErrNoAck)

	plain := &MockI2CBus{}
	plain.On("ReadFromAddr", ctx, byte(0x68), mock.Anything).Return(nil, errors.New("nak"))
	assert.Error(t, NewDS3231(plain).Present(ctx))
	plain.AssertExpectations(t)
}

func TestDS3231_Convert(t *testing.T) {
	tests := []struct {
		given    []byte
		expected Quarters
		text     string
	}{
		{[]byte{0x19, 0x00}, 100, "25 0/4C"},
		{[]byte{0x19, 0x40}, 101, "25 1/4C"},
		{[]byte{0x00, 0xC0}, 3, "0 3/4C"},
		{[]byte{0xFF, 0xC0}, -1, "-0 1/4C"},
		{[]byte{0xF5, 0x40}, -43, "-10 3/4C"},
	}
	for _, test := range tests {
		t.Run(hex.EncodeToString(test.given), func(t *testing.T) {
			q := convertDS3231(test.given)
			assert.Equal(t, test.expected, q)
			assert.Equal(t, test.text, q.String())
			assert.Equal(t, float32(test.expected)/4, q.Celsius())
		})
	}
}

func TestMockThermometer(t *testing.T) {
	calls := 0
	sensor := NewMockThermometer(func(ctx context.Context) (Quarters, error) {
		calls++
		return Quarters(calls * 4), nil
	})
	ctx := context.Background()
	assert.NoError(t, sensor.Present(ctx))
	c, err := sensor.GetTemperature(ctx)
	require.NoError(t, err)
	assert.Equal(t, float32(1), c)
	q, err := sensor.Measure(ctx)
	require.NoError(t, err)
	assert.Equal(t, Quarters(8), q)

	assert.ErrorIs(t, NewAbsentThermometer(diagcon.ErrNoAck).Present(ctx), diagcon.ErrNoAck)
}
