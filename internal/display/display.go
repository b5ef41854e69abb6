// Package display drives a two-line character display.
package display

// Display accepts cursor-positioned text writes.
type Display interface {
	// Clear blanks the display.
	Clear() error

	// Print writes text starting at the given column and row.
	// Text past the right edge is dropped.
	Print(col, row int, text string) error

	// Close blanks the display and releases its resources.
	Close() error
}

// Geometry of the supported module.
const (
	Cols = 16
	Rows = 2
)
