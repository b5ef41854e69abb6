package logic

import "fmt"

// Thresholds holds the two breakpoints between the three levels.
// A raw value below Medium is LOW, below High is MEDIUM, anything else is HIGH.
type Thresholds struct {
	Medium int
	High   int
}

// DefaultThresholds are the breakpoints the sensor was calibrated with.
var DefaultThresholds = Thresholds{Medium: 1900, High: 2200}

// Classify maps a raw ADC magnitude to a level. It is total over int.
func (t Thresholds) Classify(raw int) Level {
	if raw < t.Medium {
		return LevelLow
	}
	if raw < t.High {
		return LevelMedium
	}
	return LevelHigh
}

// Validate checks that the breakpoints are positive and strictly increasing.
func (t Thresholds) Validate() error {
	if t.Medium <= 0 {
		return fmt.Errorf("medium threshold must be positive, got %d", t.Medium)
	}
	if t.High <= t.Medium {
		return fmt.Errorf("high threshold %d must be greater than medium threshold %d", t.High, t.Medium)
	}
	return nil
}

// Classify maps a raw magnitude using DefaultThresholds.
func Classify(raw int) Level {
	return DefaultThresholds.Classify(raw)
}
