package mqtt

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/water-sensor/internal/logic"
)

var t0 = time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC)

func TestFormatPayload(t *testing.T) {
	event := Event{
		Timestamp: t0,
		DeviceID:  "B8:27:EB:12:34:56",
		From:      logic.LevelMedium,
		Level:     logic.LevelHigh,
		Raw:       2500,
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"water":{"timestamp":"2026-02-02T22:18:12Z","device_id":"B8:27:EB:12:34:56","level":"HIGH","previous":"MEDIUM","raw":2500}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatPayloadFirstReadingOmitsPrevious(t *testing.T) {
	payload, err := FormatPayload(Event{Timestamp: t0, Level: logic.LevelLow, From: logic.LevelUnset, Raw: 1500})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(string(payload), "previous") {
		t.Errorf("first reading should omit previous: %s", payload)
	}
}

func TestFormatPayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	event := Event{Timestamp: time.Date(2026, 2, 3, 0, 18, 12, 0, loc), Level: logic.LevelLow}

	payload, _ := FormatPayload(event)
	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Water.Timestamp != "2026-02-02T22:18:12Z" {
		t.Errorf("expected UTC timestamp, got %s", parsed.Water.Timestamp)
	}
}

func TestNewEventFromTransition(t *testing.T) {
	tr := logic.Transition{Changed: true, From: logic.LevelLow, Level: logic.LevelMedium, Raw: 2000, Time: t0}
	ev := NewEvent("dev", tr)
	if ev.DeviceID != "dev" || ev.From != logic.LevelLow || ev.Level != logic.LevelMedium || ev.Raw != 2000 || !ev.Timestamp.Equal(t0) {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestTopics(t *testing.T) {
	if TopicEvents != "water/level/sensor/events" {
		t.Errorf("unexpected events topic: %s", TopicEvents)
	}
	if TopicSystem != "water/level/sensor/system" {
		t.Errorf("unexpected system topic: %s", TopicSystem)
	}
}

func TestFormatSystemPayloadExactJSON(t *testing.T) {
	payload, err := FormatSystemPayload(SystemEvent{Timestamp: t0, Event: "SHUTDOWN", Reason: "SIGTERM"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := `{"system":{"timestamp":"2026-02-02T22:18:12Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatSystemPayloadOmitsEmptyReason(t *testing.T) {
	payload, _ := FormatSystemPayload(SystemEvent{Timestamp: t0, Event: "RECONNECTED"})
	expected := `{"system":{"timestamp":"2026-02-02T22:18:12Z","event":"RECONNECTED"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatSystemPayloadRawPassthrough(t *testing.T) {
	raw := []byte(`{"system":{"event":"STARTUP"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "STARTUP", RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("raw payload should pass through, got %s", payload)
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()
	ev := Event{Timestamp: t0, Level: logic.LevelHigh, Raw: 2600}

	if err := f.Publish(ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.Events) != 1 || len(f.Payloads) != 1 {
		t.Fatalf("expected 1 event and payload, got %d/%d", len(f.Events), len(f.Payloads))
	}
	if f.Events[0].Level != logic.LevelHigh {
		t.Errorf("unexpected level: %s", f.Events[0].Level)
	}
}

func TestFakePublisherOffline(t *testing.T) {
	f := NewFakePublisher()
	f.Offline = true

	if err := f.Publish(Event{}); !errors.Is(err, ErrFakeOffline) {
		t.Errorf("Publish: got %v, want ErrFakeOffline", err)
	}
	if err := f.PublishSystem(SystemEvent{}); !errors.Is(err, ErrFakeOffline) {
		t.Errorf("PublishSystem: got %v, want ErrFakeOffline", err)
	}
	if len(f.Events) != 0 || len(f.SystemEvents) != 0 {
		t.Error("failed publishes should not be recorded")
	}
	if f.Dropped != 2 {
		t.Errorf("Dropped: got %d, want 2", f.Dropped)
	}
	if f.IsConnected() {
		t.Error("offline publisher should report disconnected")
	}
}

func TestFakePublisherFailNext(t *testing.T) {
	f := NewFakePublisher()
	f.FailNext = 1

	if err := f.Publish(Event{Timestamp: t0, Level: logic.LevelLow}); err == nil {
		t.Error("expected first publish to fail")
	}
	if err := f.Publish(Event{Timestamp: t0, Level: logic.LevelHigh}); err != nil {
		t.Errorf("second publish: %v", err)
	}
	if len(f.Events) != 1 || f.Events[0].Level != logic.LevelHigh {
		t.Errorf("events: got %+v", f.Events)
	}
	if f.Dropped != 1 || !f.IsConnected() {
		t.Errorf("Dropped %d, connected %v", f.Dropped, f.IsConnected())
	}
}

func TestFakePublisherSystemEvents(t *testing.T) {
	f := NewFakePublisher()
	f.PublishSystem(SystemEvent{Timestamp: t0, Event: "STARTUP", Retained: true})
	f.PublishSystem(SystemEvent{Timestamp: t0, Event: "HEARTBEAT"})

	names := f.SystemEventNames()
	if len(names) != 2 || names[0] != "STARTUP" || names[1] != "HEARTBEAT" {
		t.Errorf("unexpected system events: %v", names)
	}
	if !f.SystemEvents[0].Retained || f.SystemEvents[1].Retained {
		t.Error("retained flag not preserved")
	}
}

func TestDefaultClientIDUnique(t *testing.T) {
	a, b := DefaultClientID(), DefaultClientID()
	if a == b {
		t.Errorf("expected unique client ids, got %s twice", a)
	}
	if !strings.HasPrefix(a, "water-sensor-") {
		t.Errorf("unexpected client id: %s", a)
	}
}
