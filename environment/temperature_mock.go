package environment

import (
	"context"
)

// TemperatureBehaviorFunc produces the next reading of a mock thermometer.
type TemperatureBehaviorFunc func(ctx context.Context) (Quarters, error)

// MockThermometer is a Thermometer that uses a behavior function to produce
// readings without requiring any hardware.
type MockThermometer struct {
	behavior TemperatureBehaviorFunc
	absent   error
}

// NewMockThermometer creates a new mock thermometer with the given behavior
// function. The behavior function is called whenever Measure is invoked.
//
// Example usage:
//
//	sensor := NewMockThermometer(func(ctx context.Context) (Quarters, error) { return 101, nil })
func NewMockThermometer(behavior TemperatureBehaviorFunc) *MockThermometer {
	return &MockThermometer{behavior: behavior}
}

// NewAbsentThermometer creates a mock whose presence check fails with err.
func NewAbsentThermometer(err error) *MockThermometer {
	return &MockThermometer{absent: err}
}

func (m *MockThermometer) Present(ctx context.Context) error {
	return m.absent
}

func (m *MockThermometer) Measure(ctx context.Context) (Quarters, error) {
	return m.behavior(ctx)
}

// GetTemperature returns the temperature in Celsius by calling the behavior function.
func (m *MockThermometer) GetTemperature(ctx context.Context) (float32, error) {
	q, err := m.behavior(ctx)
	if err != nil {
		return 0, err
	}
	return q.Celsius(), nil
}
