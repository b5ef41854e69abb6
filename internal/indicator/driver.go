// Package indicator applies a water level to the local LEDs, buzzer and display.
package indicator

import (
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/water-sensor/internal/display"
	"github.com/sweeney/water-sensor/internal/gpio"
	"github.com/sweeney/water-sensor/internal/logic"
)

// DefaultPulse is how long the buzzer sounds for a HIGH level.
const DefaultPulse = 200 * time.Millisecond

// Display text and cursor positions.
const (
	Title    = "Water Level:"
	titleCol = 2
	levelCol = 6
)

// Driver owns the local indicators. Hardware errors are logged, never returned.
type Driver struct {
	out   gpio.Outputs
	disp  display.Display // nil when no display is fitted
	pulse time.Duration
	sleep func(time.Duration)
	log   *zap.Logger
}

// NewDriver creates a driver. disp may be nil.
func NewDriver(out gpio.Outputs, disp display.Display, pulse time.Duration, log *zap.Logger) *Driver {
	return &Driver{
		out:   out,
		disp:  disp,
		pulse: pulse,
		sleep: time.Sleep,
		log:   log,
	}
}

// Apply sets the LEDs for level, redraws the display and, for HIGH, pulses
// the buzzer. The pulse blocks for its full duration.
func (d *Driver) Apply(level logic.Level) {
	if err := d.out.SetIndicators(level.Indicators()); err != nil {
		d.log.Warn("set indicators failed", zap.Stringer("level", level), zap.Error(err))
	}

	d.refreshDisplay(level)

	if level == logic.LevelHigh {
		d.pulseBuzzer()
	}
}

// Off turns every indicator off and blanks the display.
func (d *Driver) Off() {
	if err := d.out.SetIndicators(logic.Indicators{}); err != nil {
		d.log.Warn("clear indicators failed", zap.Error(err))
	}
	if err := d.out.SetBuzzer(false); err != nil {
		d.log.Warn("clear buzzer failed", zap.Error(err))
	}
	if d.disp != nil {
		if err := d.disp.Clear(); err != nil {
			d.log.Warn("clear display failed", zap.Error(err))
		}
	}
}

func (d *Driver) refreshDisplay(level logic.Level) {
	if d.disp == nil {
		return
	}
	if err := d.disp.Clear(); err != nil {
		d.log.Warn("display clear failed", zap.Error(err))
		return
	}
	if err := d.disp.Print(titleCol, 0, Title); err != nil {
		d.log.Warn("display write failed", zap.Int("row", 0), zap.Error(err))
		return
	}
	if err := d.disp.Print(levelCol, 1, level.String()); err != nil {
		d.log.Warn("display write failed", zap.Int("row", 1), zap.Error(err))
	}
}

func (d *Driver) pulseBuzzer() {
	if err := d.out.SetBuzzer(true); err != nil {
		d.log.Warn("buzzer on failed", zap.Error(err))
		return
	}
	d.sleep(d.pulse)
	if err := d.out.SetBuzzer(false); err != nil {
		d.log.Warn("buzzer off failed", zap.Error(err))
	}
}
