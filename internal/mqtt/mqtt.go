// Package mqtt mirrors level changes and lifecycle events to an MQTT broker.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/water-sensor/internal/logic"
)

// TopicEvents is the MQTT topic for level change events.
const TopicEvents = "water/level/sensor/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "water/level/sensor/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a level change to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Event is an accepted level change.
type Event struct {
	Timestamp time.Time
	DeviceID  string
	From      logic.Level
	Level     logic.Level
	Raw       int
}

// NewEvent builds the event for a detector transition.
func NewEvent(deviceID string, tr logic.Transition) Event {
	return Event{
		Timestamp: tr.Time,
		DeviceID:  deviceID,
		From:      tr.From,
		Level:     tr.Level,
		Raw:       tr.Raw,
	}
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Water WaterPayload `json:"water"`
}

// WaterPayload contains the level change details.
type WaterPayload struct {
	Timestamp string `json:"timestamp"`
	DeviceID  string `json:"device_id"`
	Level     string `json:"level"`
	Previous  string `json:"previous,omitempty"`
	Raw       int    `json:"raw"`
}

// FormatPayload creates the JSON payload for a level change. The previous
// level is omitted for the first reading after startup.
func FormatPayload(event Event) ([]byte, error) {
	payload := Payload{
		Water: WaterPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			DeviceID:  event.DeviceID,
			Level:     event.Level.String(),
			Raw:       event.Raw,
		},
	}
	if event.From.Valid() {
		payload.Water.Previous = event.From.String()
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
