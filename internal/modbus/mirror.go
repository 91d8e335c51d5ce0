// Package modbus mirrors relay pin levels to a Modbus TCP device as coils.
package modbus

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"
	"github.com/sweeney/relay-node/internal/relay"
)

// Mirror receives the relay levels after every status refresh.
type Mirror interface {
	WriteLevels(levels []bool) error
	Close() error
}

// Config locates the Modbus TCP device and its first coil.
type Config struct {
	Endpoint string
	UnitID   uint8
	Address  uint16 // first coil
	Timeout  time.Duration
}

// CoilMirror writes one coil per tracked pin over a single TCP connection.
type CoilMirror struct {
	mu      sync.Mutex
	handler *modbus.TCPClientHandler
	client  modbus.Client
	address uint16
}

// NewCoilMirror connects to cfg.Endpoint.
func NewCoilMirror(cfg Config) (*CoilMirror, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("modbus mirror: endpoint required")
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout
	h.SlaveId = cfg.UnitID

	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("modbus mirror: connect %s: %w", cfg.Endpoint, err)
	}

	return &CoilMirror{
		handler: h,
		client:  modbus.NewClient(h),
		address: cfg.Address,
	}, nil
}

// WriteLevels writes levels to consecutive coils starting at the
// configured address.
func (m *CoilMirror) WriteLevels(levels []bool) error {
	if len(levels) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.client.WriteMultipleCoils(m.address, uint16(len(levels)), PackBits(levels))
	return err
}

// Close closes the TCP connection.
func (m *CoilMirror) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handler.Close()
}

// Levels extracts the tracked pin levels from a status buffer in table order.
func Levels(buf [relay.StatusSize]byte, tracked []relay.Tracked) []bool {
	out := make([]bool, 0, len(tracked))
	for _, t := range tracked {
		if t.Offset < 1 || t.Offset >= relay.StatusSize {
			continue
		}
		out = append(out, buf[t.Offset] != 0)
	}
	return out
}

// PackBits packs coil values LSB first, as the Modbus coil PDU expects.
func PackBits(bits []bool) []byte {
	n := (len(bits) + 7) / 8
	out := make([]byte, n)
	for i, v := range bits {
		if v {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}
