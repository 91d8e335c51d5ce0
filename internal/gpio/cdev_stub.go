//go:build !linux

package gpio

import (
	"errors"

	"github.com/sweeney/relay-node/internal/relay"
)

// CdevBank is not available on non-Linux platforms.
type CdevBank struct{}

// NewCdevBank returns an error on non-Linux platforms.
func NewCdevBank(ports map[relay.Port]PortMapping) (*CdevBank, error) {
	return nil, errors.New("gpio: cdev backend not supported on this platform (requires Linux)")
}

// ConfigureOutput is not implemented on non-Linux platforms.
func (b *CdevBank) ConfigureOutput(port relay.Port, pin uint8) error {
	return errors.New("gpio: not supported")
}

// Write is not implemented on non-Linux platforms.
func (b *CdevBank) Write(port relay.Port, pin uint8, level relay.Level) error {
	return errors.New("gpio: not supported")
}

// ODR is not implemented on non-Linux platforms.
func (b *CdevBank) ODR(port relay.Port) (uint16, error) {
	return 0, errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (b *CdevBank) Close() error {
	return nil
}
