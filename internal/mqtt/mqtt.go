// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/triggerpi/internal/trigger"
)

// Topic is the MQTT topic for state transitions.
const Topic = "audio/triggerpi/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "audio/triggerpi/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a state transition to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event trigger.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
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
	Trigger TriggerPayload `json:"trigger"`
}

// TriggerPayload contains the transition details.
type TriggerPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	From      string `json:"from"`
	To        string `json:"to"`
	Reason    string `json:"reason"`
	Inputs    []bool `json:"inputs"`
	Relays    []bool `json:"relays"`
}

// FormatPayload creates the JSON payload for a transition.
func FormatPayload(event trigger.Event) ([]byte, error) {
	payload := Payload{
		Trigger: TriggerPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Name(),
			From:      string(event.From),
			To:        string(event.To),
			Reason:    string(event.Reason),
			Inputs:    nonNil(event.Inputs),
			Relays:    nonNil(event.Relays),
		},
	}
	return json.Marshal(payload)
}

// nonNil keeps empty channel lists as [] rather than null.
func nonNil(b []bool) []bool {
	if b == nil {
		return []bool{}
	}
	return b
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
