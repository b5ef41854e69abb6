// Package logic contains pure business logic for water level classification and
// transition tracking.
// This package has NO external dependencies (no GPIO, ADC, network, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// Level is the classified water level. Levels are ordered by severity.
type Level int

const (
	// LevelUnset is the sentinel held before the first reading is classified.
	LevelUnset Level = iota
	LevelLow
	LevelMedium
	LevelHigh
)

// Indicators is the state of the three level LEDs.
type Indicators struct {
	Green  bool
	Yellow bool
	Red    bool
}

type levelInfo struct {
	label      string
	indicators Indicators
}

// levelTable maps each real level to its label and LED vector.
var levelTable = map[Level]levelInfo{
	LevelLow:    {label: "LOW", indicators: Indicators{Green: true}},
	LevelMedium: {label: "MEDIUM", indicators: Indicators{Yellow: true}},
	LevelHigh:   {label: "HIGH", indicators: Indicators{Red: true}},
}

// String returns the label used on the display and in persisted records.
func (l Level) String() string {
	if info, ok := levelTable[l]; ok {
		return info.label
	}
	return "UNSET"
}

// Valid reports whether l is one of the three real levels.
func (l Level) Valid() bool {
	_, ok := levelTable[l]
	return ok
}

// Indicators returns the LED vector for l. All LEDs are off for LevelUnset.
func (l Level) Indicators() Indicators {
	return levelTable[l].indicators
}

// Severity returns the position of l in the severity order (0 for LevelUnset).
func (l Level) Severity() int {
	return int(l)
}

// ParseLevel converts a label back into a Level.
func ParseLevel(s string) (Level, bool) {
	for l, info := range levelTable {
		if info.label == s {
			return l, true
		}
	}
	return LevelUnset, false
}

// Input represents a single raw ADC sample.
type Input struct {
	Raw  int
	Time time.Time
}

// Reading is the value object built once per poll cycle.
type Reading struct {
	Raw       int
	Level     Level
	Timestamp string // ISO-8601 UTC, or "" when the clock is not yet synced
}

// Transition is the detector's verdict for one sample.
type Transition struct {
	Changed bool
	From    Level // last known level before this sample
	Level   Level // accepted level after this sample
	Raw     int
	Time    time.Time
}

// Record is the persisted document. Records are write-once.
type Record struct {
	DeviceID  string
	Raw       int
	State     string
	Timestamp string
}

// NewRecord builds the persisted form of a reading.
func NewRecord(deviceID string, r Reading) Record {
	return Record{
		DeviceID:  deviceID,
		Raw:       r.Raw,
		State:     r.Level.String(),
		Timestamp: r.Timestamp,
	}
}

// LevelCounts tracks how many times each level was entered since startup.
type LevelCounts struct {
	Low    int
	Medium int
	High   int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    LevelCounts
}
