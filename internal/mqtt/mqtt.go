// Package mqtt provides MQTT publishing and command intake with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/reflow-oven/internal/logic"
)

// Topic is the MQTT topic for controller events.
const Topic = "reflow/oven/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "reflow/oven/system"

// TopicCommand is the MQTT topic the oven accepts START/ABORT on.
const TopicCommand = "reflow/oven/command"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a controller event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

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
	Oven OvenPayload `json:"oven"`
}

// OvenPayload contains the controller event details.
type OvenPayload struct {
	Timestamp string   `json:"timestamp"`
	Event     string   `json:"event"`
	RunID     string   `json:"run_id,omitempty"`
	From      string   `json:"from,omitempty"`
	Phase     string   `json:"phase"`
	TargetC   float64  `json:"target_c"`
	TempC     *float64 `json:"temp_c"` // null while the sensor is faulted
	Relay     string   `json:"relay"`
	Command   string   `json:"command,omitempty"`
}

// FormatPayload creates the JSON payload for a controller event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Oven: OvenPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			RunID:     event.RunID,
			From:      string(event.From),
			Phase:     string(event.Phase),
			TargetC:   event.TargetC,
			Relay:     relayString(event.RelayOn),
			Command:   string(event.Command),
		},
	}
	if event.Valid {
		v := event.TempC
		payload.Oven.TempC = &v
	}
	return json.Marshal(payload)
}

func relayString(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
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
