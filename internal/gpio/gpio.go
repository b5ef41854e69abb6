// Package gpio drives the indicator LEDs and the buzzer with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "github.com/sweeney/water-sensor/internal/logic"

// Outputs sets the digital indicator outputs.
type Outputs interface {
	// SetIndicators drives the green, yellow and red LEDs.
	SetIndicators(ind logic.Indicators) error

	// SetBuzzer switches the alarm buzzer on or off.
	SetBuzzer(on bool) error

	// Close turns every output off and releases GPIO resources.
	Close() error
}

// Pins holds BCM line offsets for the outputs.
type Pins struct {
	Green  int
	Yellow int
	Red    int
	Buzzer int
}

// Default pin assignments (BCM numbering)
const (
	DefaultPinGreen  = 17
	DefaultPinYellow = 27
	DefaultPinRed    = 22
	DefaultPinBuzzer = 18
)

// DefaultPins returns the stock wiring.
func DefaultPins() Pins {
	return Pins{
		Green:  DefaultPinGreen,
		Yellow: DefaultPinYellow,
		Red:    DefaultPinRed,
		Buzzer: DefaultPinBuzzer,
	}
}

// Offsets returns the LED offsets in green, yellow, red order.
func (p Pins) Offsets() []int {
	return []int{p.Green, p.Yellow, p.Red}
}

func boolToValue(b bool) int {
	if b {
		return 1
	}
	return 0
}

// indicatorValues converts an LED vector into line values in Offsets order.
func indicatorValues(ind logic.Indicators) []int {
	return []int{boolToValue(ind.Green), boolToValue(ind.Yellow), boolToValue(ind.Red)}
}
