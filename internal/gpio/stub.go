//go:build !linux

package gpio

import (
	"errors"

	"github.com/sweeney/water-sensor/internal/logic"
)

// Consumer is the label shown by gpioinfo for lines held by this process.
const Consumer = "water-sensor"

// RealOutputs is not available on non-Linux platforms.
type RealOutputs struct{}

// NewRealOutputs returns an error on non-Linux platforms.
func NewRealOutputs(chipName string, pins Pins) (*RealOutputs, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// SetIndicators is not implemented on non-Linux platforms.
func (o *RealOutputs) SetIndicators(ind logic.Indicators) error {
	return errors.New("gpio: not supported")
}

// SetBuzzer is not implemented on non-Linux platforms.
func (o *RealOutputs) SetBuzzer(on bool) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (o *RealOutputs) Close() error {
	return nil
}
