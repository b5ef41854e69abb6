//go:build !linux

package display

import "errors"

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

// OpenHD44780 returns an error on non-Linux platforms.
func OpenHD44780(chipName string, pins Pins) (*HD44780, error) {
	return nil, errors.New("display: not supported on this platform (requires Linux)")
}
