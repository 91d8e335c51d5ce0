// Package gpio provides relay output banks with hardware abstraction.
// The cdev implementation uses the Linux GPIO character device, the periph
// implementation uses periph.io drivers, and the fake implementation keeps
// registers in memory so the node can be tested without hardware.
package gpio

import (
	"fmt"

	"github.com/sweeney/relay-node/internal/relay"
)

// Bank drives relay outputs on the GPIO ports and releases them on Close.
type Bank interface {
	relay.Hardware

	// Close releases GPIO resources.
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFake   = "fake"
	BackendCdev   = "cdev"
	BackendPeriph = "periph"
)

// PortMapping locates a relay port on the host.
// For cdev, Chip names the gpiochip and Base is added to the pin number to
// form the line offset. For periph, the pin is registered as GPIO<Base+pin>.
type PortMapping struct {
	Chip string
	Base int
}

// Config selects the backend and the host location of each port.
type Config struct {
	Backend string
	Ports   map[relay.Port]PortMapping
}

// Open creates the Bank named by cfg.Backend.
func Open(cfg Config) (Bank, error) {
	switch cfg.Backend {
	case BackendFake, "":
		return NewFakeBank(), nil
	case BackendCdev:
		b, err := NewCdevBank(cfg.Ports)
		if err != nil {
			return nil, err
		}
		return b, nil
	case BackendPeriph:
		b, err := NewPeriphBank(cfg.Ports)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	return nil, fmt.Errorf("gpio: unknown backend %q", cfg.Backend)
}

type lineKey struct {
	port relay.Port
	pin  uint8
}

func lookup(ports map[relay.Port]PortMapping, port relay.Port) (PortMapping, error) {
	m, ok := ports[port]
	if !ok {
		return PortMapping{}, fmt.Errorf("gpio: port %s not mapped", port)
	}
	return m, nil
}
