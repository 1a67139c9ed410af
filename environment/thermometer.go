package environment

import (
	"context"
	"fmt"
)

// Quarters is a temperature in quarter degrees Celsius.
type Quarters int16

func (q Quarters) Celsius() float32 {
	return float32(q) / 4
}

// String formats the temperature as whole degrees and quarters, e.g.
// "25 1/4C" or "-10 3/4C".
func (q Quarters) String() string {
	sign := ""
	v := int(q)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d %d/4C", sign, v/4, v%4)
}

// Thermometer is a temperature sensor that can tell whether it is there.
type Thermometer interface {
	Present(ctx context.Context) error
	Measure(ctx context.Context) (Quarters, error)
}

var _ Thermometer = &DS3231{}
