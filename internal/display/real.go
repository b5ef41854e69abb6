//go:build linux

package display

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// Pins holds the BCM line offsets of the LCD in 4-bit mode.
type Pins struct {
	RS int
	EN int
	D4 int
	D5 int
	D6 int
	D7 int
}

// Offsets returns the lines in Bus order.
func (p Pins) Offsets() []int {
	return []int{p.RS, p.EN, p.D4, p.D5, p.D6, p.D7}
}

// OpenHD44780 requests the LCD lines on chipName and initialises the module.
func OpenHD44780(chipName string, pins Pins) (*HD44780, error) {
	lines, err := gpiocdev.RequestLines(chipName, pins.Offsets(),
		gpiocdev.AsOutput(0, 0, 0, 0, 0, 0),
		gpiocdev.WithConsumer("water-sensor-lcd"))
	if err != nil {
		return nil, fmt.Errorf("request lcd pins %v: %w", pins.Offsets(), err)
	}

	d, err := NewHD44780(lines)
	if err != nil {
		lines.Close()
		return nil, err
	}
	return d, nil
}
