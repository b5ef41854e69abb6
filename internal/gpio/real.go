//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"github.com/sweeney/water-sensor/internal/logic"
	"github.com/warthog618/go-gpiocdev"
)

// Consumer is the label shown by gpioinfo for lines held by this process.
const Consumer = "water-sensor"

// RealOutputs drives LEDs and buzzer through the Linux GPIO character device.
type RealOutputs struct {
	chip   *gpiocdev.Chip
	leds   *gpiocdev.Lines
	buzzer *gpiocdev.Line
}

// NewRealOutputs requests the output lines on the named chip (e.g. "gpiochip0").
// All outputs start low.
func NewRealOutputs(chipName string, pins Pins) (*RealOutputs, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer(Consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	leds, err := chip.RequestLines(pins.Offsets(), gpiocdev.AsOutput(0, 0, 0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request LED pins %v: %w", pins.Offsets(), err)
	}

	buzzer, err := chip.RequestLine(pins.Buzzer, gpiocdev.AsOutput(0))
	if err != nil {
		leds.Close()
		chip.Close()
		return nil, fmt.Errorf("request buzzer pin %d: %w", pins.Buzzer, err)
	}

	return &RealOutputs{
		chip:   chip,
		leds:   leds,
		buzzer: buzzer,
	}, nil
}

// SetIndicators writes the LED vector in a single request.
func (o *RealOutputs) SetIndicators(ind logic.Indicators) error {
	if err := o.leds.SetValues(indicatorValues(ind)); err != nil {
		return fmt.Errorf("set LEDs: %w", err)
	}
	return nil
}

// SetBuzzer switches the buzzer line.
func (o *RealOutputs) SetBuzzer(on bool) error {
	if err := o.buzzer.SetValue(boolToValue(on)); err != nil {
		return fmt.Errorf("set buzzer: %w", err)
	}
	return nil
}

// Close drives every output low before releasing the lines, so LEDs and
// buzzer do not stay latched after the daemon exits.
func (o *RealOutputs) Close() error {
	var errs []error

	if o.leds != nil {
		if err := o.leds.SetValues([]int{0, 0, 0}); err != nil {
			errs = append(errs, fmt.Errorf("clear LEDs: %w", err))
		}
		if err := o.leds.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close LED lines: %w", err))
		}
	}
	if o.buzzer != nil {
		if err := o.buzzer.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear buzzer: %w", err))
		}
		if err := o.buzzer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close buzzer line: %w", err))
		}
	}
	if o.chip != nil {
		if err := o.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	return errors.Join(errs...)
}
