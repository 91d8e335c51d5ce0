// Package status provides a thread-safe status tracker for the relay-node
// daemon. It is read by the HTTP handlers and the MQTT lifecycle events.
package status

import (
	"errors"
	"sync"
	"time"

	"github.com/sweeney/relay-node/internal/relay"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	GPIOBackend    string
	StatusPort     string
	Broker         string
	DownlinkTopic  string
	LoRaDevice     string
	ModbusEndpoint string
	HTTPAddr       string
}

// Counts tracks command outcomes since startup.
type Counts struct {
	Accepted    int
	Rejected    int // invalid instruction
	WriteErrors int // valid instruction, GPIO write failed
}

// LastCommand describes the most recent command.
type LastCommand struct {
	Time        time.Time
	Source      string
	Command     string // four hex characters
	Accepted    bool
	Instruction relay.Instruction
	Error       string
}

// PinState is one tracked relay pin as reported in the status buffer.
type PinState struct {
	Pin    uint8
	Offset int
	Level  relay.Level
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	StatusPort    relay.Port
	Buffer        [relay.StatusSize]byte
	Pins          []PinState
	Counts        Counts
	Last          *LastCommand
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, port relay.Port, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StatusPort: port,
			Buffer:     [relay.StatusSize]byte{0: relay.StatusTag},
			StartTime:  startTime,
			Config:     cfg,
		},
	}
}

// Record counts a command result and remembers it as the last command.
func (t *Tracker) Record(r relay.Result) {
	last := &LastCommand{
		Time:        r.Command.Received,
		Source:      r.Command.Source,
		Command:     r.Command.Hex(),
		Accepted:    r.Accepted,
		Instruction: r.Instruction,
	}
	if r.Err != nil {
		last.Error = r.Err.Error()
	}

	t.mu.Lock()
	switch {
	case r.Accepted:
		t.snap.Counts.Accepted++
	case errors.Is(r.Err, relay.ErrInvalidInstruction):
		t.snap.Counts.Rejected++
	default:
		t.snap.Counts.WriteErrors++
	}
	t.snap.Last = last
	t.mu.Unlock()
}

// SetStatus stores the latest status buffer and its decoded pin levels.
func (t *Tracker) SetStatus(buf [relay.StatusSize]byte, tracked []relay.Tracked) {
	levels := relay.DecodeStatus(buf, tracked)
	pins := make([]PinState, 0, len(tracked))
	for _, tr := range tracked {
		pins = append(pins, PinState{Pin: tr.Pin, Offset: tr.Offset, Level: levels[tr.Pin]})
	}

	t.mu.Lock()
	t.snap.Buffer = buf
	t.snap.Pins = pins
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	if s.Last != nil {
		last := *s.Last
		s.Last = &last
	}
	s.Pins = append([]PinState(nil), s.Pins...)
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
