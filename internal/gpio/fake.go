package gpio

import "github.com/sweeney/water-sensor/internal/logic"

// FakeOutputs is a test double that records every output change.
type FakeOutputs struct {
	// Indicators is the current LED vector.
	Indicators logic.Indicators

	// IndicatorHistory contains every vector passed to SetIndicators.
	IndicatorHistory []logic.Indicators

	// Buzzer is the current buzzer state.
	Buzzer bool

	// BuzzerHistory contains every value passed to SetBuzzer.
	BuzzerHistory []bool

	// SetError, if set, is returned by SetIndicators and SetBuzzer.
	SetError error

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeOutputs creates a FakeOutputs with everything off.
func NewFakeOutputs() *FakeOutputs {
	return &FakeOutputs{}
}

// SetIndicators records the LED vector.
func (f *FakeOutputs) SetIndicators(ind logic.Indicators) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.Indicators = ind
	f.IndicatorHistory = append(f.IndicatorHistory, ind)
	return nil
}

// SetBuzzer records the buzzer state.
func (f *FakeOutputs) SetBuzzer(on bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.Buzzer = on
	f.BuzzerHistory = append(f.BuzzerHistory, on)
	return nil
}

// Pulses counts completed on->off buzzer cycles.
func (f *FakeOutputs) Pulses() int {
	n := 0
	for i := 1; i < len(f.BuzzerHistory); i++ {
		if f.BuzzerHistory[i-1] && !f.BuzzerHistory[i] {
			n++
		}
	}
	return n
}

// Close turns everything off and marks the outputs as closed.
func (f *FakeOutputs) Close() error {
	f.Indicators = logic.Indicators{}
	f.Buzzer = false
	f.Closed = true
	return nil
}

// Reset clears recorded history.
func (f *FakeOutputs) Reset() {
	f.Indicators = logic.Indicators{}
	f.IndicatorHistory = nil
	f.Buzzer = false
	f.BuzzerHistory = nil
	f.SetError = nil
	f.Closed = false
}
