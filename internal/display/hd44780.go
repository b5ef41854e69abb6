package display

import (
	"errors"
	"fmt"
	"time"
)

// HD44780 instruction set (subset used here).
const (
	cmdClear       = 0x01
	cmdEntryMode   = 0x04
	cmdDisplayCtrl = 0x08
	cmdFunctionSet = 0x20
	cmdSetDDRAM    = 0x80

	entryIncrement = 0x02
	displayOn      = 0x04
	twoLines       = 0x08
)

// rowOffsets are the DDRAM addresses of each row start.
var rowOffsets = [Rows]byte{0x00, 0x40}

// Bus is a group of output lines ordered rs, en, d4, d5, d6, d7.
// *gpiocdev.Lines satisfies it.
type Bus interface {
	SetValues(values []int) error
	Close() error
}

// HD44780 drives a character LCD in 4-bit mode over a Bus.
type HD44780 struct {
	bus   Bus
	sleep func(time.Duration)
	vals  []int
}

const (
	lineRS = iota
	lineEN
	lineD4
)

// NewHD44780 runs the 4-bit initialisation sequence and returns a cleared display.
func NewHD44780(bus Bus) (*HD44780, error) {
	return newHD44780(bus, time.Sleep)
}

func newHD44780(bus Bus, sleep func(time.Duration)) (*HD44780, error) {
	d := &HD44780{
		bus:   bus,
		sleep: sleep,
		vals:  make([]int, 6),
	}
	if err := d.init(); err != nil {
		return nil, fmt.Errorf("init lcd: %w", err)
	}
	return d, nil
}

func (d *HD44780) init() error {
	d.sleep(50 * time.Millisecond)

	// Three 8-bit function sets force a known state, then switch to 4-bit.
	for _, wait := range []time.Duration{4500 * time.Microsecond, 4500 * time.Microsecond, 150 * time.Microsecond} {
		if err := d.writeNibble(0x03, false); err != nil {
			return err
		}
		d.sleep(wait)
	}
	if err := d.writeNibble(0x02, false); err != nil {
		return err
	}

	for _, cmd := range []byte{
		cmdFunctionSet | twoLines,
		cmdDisplayCtrl | displayOn,
		cmdEntryMode | entryIncrement,
	} {
		if err := d.command(cmd); err != nil {
			return err
		}
	}
	return d.Clear()
}

// Clear blanks the display and homes the cursor.
func (d *HD44780) Clear() error {
	if err := d.command(cmdClear); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	d.sleep(2 * time.Millisecond)
	return nil
}

// Print writes text at (col, row). Characters beyond the last column are dropped.
func (d *HD44780) Print(col, row int, text string) error {
	if row < 0 || row >= Rows || col < 0 || col >= Cols {
		return fmt.Errorf("cursor (%d,%d) outside %dx%d display", col, row, Cols, Rows)
	}
	if err := d.command(cmdSetDDRAM | (rowOffsets[row] + byte(col))); err != nil {
		return fmt.Errorf("set cursor: %w", err)
	}

	room := Cols - col
	for i := 0; i < len(text) && i < room; i++ {
		if err := d.write(text[i], true); err != nil {
			return fmt.Errorf("write char: %w", err)
		}
	}
	return nil
}

// Close blanks the display and releases the bus.
func (d *HD44780) Close() error {
	return errors.Join(d.Clear(), d.bus.Close())
}

func (d *HD44780) command(b byte) error {
	return d.write(b, false)
}

func (d *HD44780) write(b byte, data bool) error {
	if err := d.writeNibble(b>>4, data); err != nil {
		return err
	}
	if err := d.writeNibble(b&0x0f, data); err != nil {
		return err
	}
	d.sleep(40 * time.Microsecond)
	return nil
}

// writeNibble presents four data bits and strobes enable.
func (d *HD44780) writeNibble(n byte, data bool) error {
	d.vals[lineRS] = 0
	if data {
		d.vals[lineRS] = 1
	}
	for i := 0; i < 4; i++ {
		d.vals[lineD4+i] = int(n>>i) & 1
	}

	d.vals[lineEN] = 1
	if err := d.bus.SetValues(d.vals); err != nil {
		return err
	}
	d.sleep(time.Microsecond)

	d.vals[lineEN] = 0
	if err := d.bus.SetValues(d.vals); err != nil {
		return err
	}
	return nil
}
