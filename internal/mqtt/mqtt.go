// Package mqtt carries relay commands and status reports over MQTT,
// with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/relay-node/internal/relay"
)

// Topics holds the topic names used by the node.
type Topics struct {
	Downlink string // relay commands in
	Uplink   string // raw 16-byte status out
	Events   string // JSON command results out
	System   string // lifecycle events out
}

// Client receives relay commands and publishes node reports.
type Client interface {
	// Subscribe delivers every valid downlink command to handler.
	// Malformed payloads are logged and dropped.
	Subscribe(handler func(relay.Command)) error

	// PublishStatus sends the raw status buffer.
	PublishStatus(buf [relay.StatusSize]byte) error

	// PublishResult sends the outcome of a command as JSON.
	PublishResult(result relay.Result) error

	// PublishSystem sends a system lifecycle event.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload for a command result.
type Payload struct {
	Relay RelayPayload `json:"relay"`
}

// RelayPayload contains the command result details.
type RelayPayload struct {
	Timestamp string `json:"timestamp"`
	Source    string `json:"source,omitempty"`
	Command   string `json:"command"`
	Accepted  bool   `json:"accepted"`
	Port      string `json:"port,omitempty"`
	Pin       *uint8 `json:"pin,omitempty"`
	Level     string `json:"level,omitempty"`
	Error     string `json:"error,omitempty"`
}

// FormatPayload creates the JSON payload for a command result.
func FormatPayload(result relay.Result) ([]byte, error) {
	p := RelayPayload{
		Timestamp: result.Command.Received.UTC().Format(time.RFC3339),
		Source:    result.Command.Source,
		Command:   result.Command.Hex(),
		Accepted:  result.Accepted,
	}
	if result.Instruction.Port.Valid() {
		pin := result.Instruction.Pin
		p.Port = result.Instruction.Port.String()
		p.Pin = &pin
		p.Level = result.Instruction.Level.String()
	}
	if result.Err != nil {
		p.Error = result.Err.Error()
	}
	return json.Marshal(Payload{Relay: p})
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
