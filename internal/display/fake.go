package display

import (
	"fmt"
	"strings"
)

// FakeDisplay keeps an in-memory copy of the character grid.
type FakeDisplay struct {
	grid [Rows][Cols]byte

	// Clears counts calls to Clear.
	Clears int

	// PrintError, if set, is returned by Print.
	PrintError error

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeDisplay returns a blank fake display.
func NewFakeDisplay() *FakeDisplay {
	f := &FakeDisplay{}
	f.blank()
	return f
}

func (f *FakeDisplay) blank() {
	for r := range f.grid {
		for c := range f.grid[r] {
			f.grid[r][c] = ' '
		}
	}
}

// Clear blanks the grid.
func (f *FakeDisplay) Clear() error {
	f.Clears++
	f.blank()
	return nil
}

// Print writes text into the grid.
func (f *FakeDisplay) Print(col, row int, text string) error {
	if f.PrintError != nil {
		return f.PrintError
	}
	if row < 0 || row >= Rows || col < 0 || col >= Cols {
		return fmt.Errorf("cursor (%d,%d) outside display", col, row)
	}
	for i := 0; i < len(text) && col+i < Cols; i++ {
		f.grid[row][col+i] = text[i]
	}
	return nil
}

// Line returns row r with trailing spaces trimmed.
func (f *FakeDisplay) Line(r int) string {
	return strings.TrimRight(string(f.grid[r][:]), " ")
}

// Close blanks the grid and marks the display closed.
func (f *FakeDisplay) Close() error {
	f.blank()
	f.Closed = true
	return nil
}
