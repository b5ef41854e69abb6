package mqtt

import "errors"

// ErrFakeOffline is returned by FakePublisher while it simulates a broker outage.
var ErrFakeOffline = errors.New("mqtt: fake broker offline")

// FakePublisher records published events for test assertions. It can
// simulate an unreachable broker, either for good or for the next few calls.
type FakePublisher struct {
	Events       []Event
	Payloads     [][]byte
	SystemEvents []SystemEvent

	// Offline fails every publish and reports the link as down.
	Offline  bool
	// FailNext fails that many upcoming publishes of either kind.
	FailNext int
	// Dropped counts publishes that failed.
	Dropped  int

	Connected bool
	Closed    bool
}

// NewFakePublisher creates a connected FakePublisher.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{Connected: true}
}

func (f *FakePublisher) fail() bool {
	if f.Offline {
		f.Dropped++
		return true
	}
	if f.FailNext > 0 {
		f.FailNext--
		f.Dropped++
		return true
	}
	return false
}

// Publish records a level change event and its wire payload.
func (f *FakePublisher) Publish(event Event) error {
	if f.fail() {
		return ErrFakeOffline
	}
	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}
	f.Events = append(f.Events, event)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// PublishSystem records a lifecycle event after checking it formats.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.fail() {
		return ErrFakeOffline
	}
	if _, err := FormatSystemPayload(event); err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	return nil
}

func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected is false while Offline.
func (f *FakePublisher) IsConnected() bool {
	return f.Connected && !f.Offline
}

// SystemEventNames returns the Event field of every recorded system event.
func (f *FakePublisher) SystemEventNames() []string {
	names := make([]string, len(f.SystemEvents))
	for i, e := range f.SystemEvents {
		names[i] = e.Event
	}
	return names
}
