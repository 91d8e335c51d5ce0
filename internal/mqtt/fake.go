package mqtt

import (
	"github.com/sweeney/relay-node/internal/relay"
)

// FakeClient records published messages for test assertions and lets
// tests inject downlink payloads.
type FakeClient struct {
	// Statuses contains all status buffers that were published.
	Statuses [][relay.StatusSize]byte

	// Results contains all command results that were published.
	Results []relay.Result

	// Payloads contains the JSON payloads for command results.
	Payloads [][]byte

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// PublishError, if set, will be returned by PublishStatus and PublishResult.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// SubscribeError, if set, will be returned by Subscribe.
	SubscribeError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool

	handler func(relay.Command)
}

// NewFakeClient creates a FakeClient for testing.
func NewFakeClient() *FakeClient {
	return &FakeClient{}
}

// Subscribe stores the handler for Deliver.
func (f *FakeClient) Subscribe(handler func(relay.Command)) error {
	if f.SubscribeError != nil {
		return f.SubscribeError
	}
	f.handler = handler
	return nil
}

// Deliver simulates a downlink message. It returns false if the payload
// was dropped or nothing is subscribed.
func (f *FakeClient) Deliver(payload []byte) bool {
	if f.handler == nil {
		return false
	}
	cmd, err := relay.ParseCommand(payload)
	if err != nil {
		return false
	}
	cmd.Source = "mqtt"
	f.handler(cmd)
	return true
}

// PublishStatus records the status buffer.
func (f *FakeClient) PublishStatus(buf [relay.StatusSize]byte) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Statuses = append(f.Statuses, buf)
	return nil
}

// PublishResult records the command result.
func (f *FakeClient) PublishResult(result relay.Result) error {
	if f.PublishError != nil {
		return f.PublishError
	}

	payload, err := FormatPayload(result)
	if err != nil {
		return err
	}
	f.Results = append(f.Results, result)
	f.Payloads = append(f.Payloads, payload)

	return nil
}

// PublishSystem records the system event.
func (f *FakeClient) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	f.SystemEvents = append(f.SystemEvents, event)

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemPayloads = append(f.SystemPayloads, payload)

	return nil
}

// Close marks the client as closed.
func (f *FakeClient) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake client is "connected".
func (f *FakeClient) IsConnected() bool {
	return f.Connected
}

// Reset clears recorded messages.
func (f *FakeClient) Reset() {
	f.Statuses = nil
	f.Results = nil
	f.Payloads = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Closed = false
	f.PublishError = nil
	f.PublishSystemError = nil
	f.Connected = false
}
