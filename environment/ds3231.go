package environment

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/mklimuk/diagcon"
)

const ds3231DefaultAddress = 0x68
const ds3231ControlRegister = 0x0E
const ds3231TempRegister = 0x11

// control register value with CONV set; keeps the oscillator running and
// the square wave output off
const ds3231ConvertCommand = 0x3C

// DS3231 represents the temperature sensor of a Maxim DS3231 real-time clock.
// See: https://www.analog.com/media/en/technical-documentation/data-sheets/DS3231.pdf
//
// Usage: Instantiate with NewDS3231, then call Measure(ctx) or GetTemperature(ctx)
type DS3231 struct {
	transport  diagcon.I2CBus
	address    byte
	retryLimit int
	mx         sync.Mutex
}

type DS3231Config struct {
	Address    byte
	RetryLimit int
}

type DS3231ConfigOption func(*DS3231Config)

func WithAddress(address byte) DS3231ConfigOption {
	return func(c *DS3231Config) {
		c.Address = address
	}
}

// WithRetryLimit sets how many times a busy bus is released and the write
// attempted again.
func WithRetryLimit(limit int) DS3231ConfigOption {
	return func(c *DS3231Config) {
		c.RetryLimit = limit
	}
}

func NewDS3231(trans diagcon.I2CBus, opts ...DS3231ConfigOption) *DS3231 {
	config := &DS3231Config{
		Address:    ds3231DefaultAddress,
		RetryLimit: 2,
	}
	for _, opt := range opts {
		opt(config)
	}
	if config.RetryLimit < 1 {
		config.RetryLimit = 1
	}
	return &DS3231{transport: trans, address: config.Address, retryLimit: config.RetryLimit}
}

func (sensor *DS3231) Address() byte {
	return sensor.address
}

// Present checks that the chip acknowledges its address. Buses that cannot
// probe are asked for one byte instead.
func (sensor *DS3231) Present(ctx context.Context) error {
	if d, ok := sensor.transport.(diagcon.Detector); ok {
		return d.Detect(ctx, sensor.address)
	}
	return sensor.transport.ReadFromAddr(ctx, sensor.address, make([]byte, 1))
}

// ConvertTemperature starts a temperature conversion.
func (sensor *DS3231) ConvertTemperature(ctx context.Context) error {
	sensor.mx.Lock()
	defer sensor.mx.Unlock()
	err := sensor.write(ctx, []byte{ds3231ControlRegister, ds3231ConvertCommand})
	if err != nil {
		return fmt.Errorf("ds3231: could not start conversion: %w", err)
	}
	return nil
}

// ReadQuarters reads the last converted temperature.
func (sensor *DS3231) ReadQuarters(ctx context.Context) (Quarters, error) {
	sensor.mx.Lock()
	defer sensor.mx.Unlock()
	err := sensor.write(ctx, []byte{ds3231TempRegister})
	if err != nil {
		return 0, fmt.Errorf("ds3231: could not write temp register request: %w", err)
	}
	resp := make([]byte, 2)
	err = sensor.transport.ReadFromAddr(ctx, sensor.address, resp)
	if err != nil {
		return 0, fmt.Errorf("ds3231: could not read temp register: %w", err)
	}
	return convertDS3231(resp), nil
}

// Measure converts and reads in one go.
func (sensor *DS3231) Measure(ctx context.Context) (Quarters, error) {
	if err := sensor.ConvertTemperature(ctx); err != nil {
		return 0, err
	}
	return sensor.ReadQuarters(ctx)
}

// GetTemperature returns the current temperature in Celsius.
func (sensor *DS3231) GetTemperature(ctx context.Context) (float32, error) {
	q, err := sensor.Measure(ctx)
	if err != nil {
		return 0, err
	}
	return q.Celsius(), nil
}

func (sensor *DS3231) write(ctx context.Context, data []byte) error {
	var err error
	for i := sensor.retryLimit; i > 0; i-- {
		err = sensor.transport.WriteToAddr(ctx, sensor.address, data)
		if err == nil {
			return nil
		}
		if !errors.Is(err, diagcon.ErrBusBusy) {
			return err
		}
		// try to release the bus
		_ = sensor.transport.Release(ctx)
	}
	return fmt.Errorf("retry limit reached: %w", err)
}

// the temperature is a left-aligned 10-bit two's complement value
func convertDS3231(resp []byte) Quarters {
	return Quarters(int16(binary.BigEndian.Uint16(resp)) / 64)
}
