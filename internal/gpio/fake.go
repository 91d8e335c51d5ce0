package gpio

import (
	"fmt"

	"github.com/sweeney/relay-node/internal/relay"
)

// FakeBank is a test double that keeps one output data register per port.
type FakeBank struct {
	// Registers holds the output data register of each port.
	Registers map[relay.Port]uint16

	// Configured records which pins were set up as outputs.
	Configured map[relay.Port]map[uint8]bool

	// Writes records every successful Write in order.
	Writes []Write

	// WriteError, if set, will be returned by Write.
	WriteError error

	// ConfigureError, if set, will be returned by ConfigureOutput.
	ConfigureError error

	// ReadError, if set, will be returned by ODR.
	ReadError error

	// Closed tracks if Close was called
	Closed bool
}

// Write is a single recorded pin write.
type Write struct {
	Port  relay.Port
	Pin   uint8
	Level relay.Level
}

// NewFakeBank creates a FakeBank with all registers zeroed.
func NewFakeBank() *FakeBank {
	return &FakeBank{
		Registers:  make(map[relay.Port]uint16),
		Configured: make(map[relay.Port]map[uint8]bool),
	}
}

// ConfigureOutput marks the pin as an output and drives it low.
func (f *FakeBank) ConfigureOutput(port relay.Port, pin uint8) error {
	if f.ConfigureError != nil {
		return f.ConfigureError
	}
	if pin > 15 {
		return fmt.Errorf("gpio: pin %d out of range", pin)
	}
	if f.Configured[port] == nil {
		f.Configured[port] = make(map[uint8]bool)
	}
	f.Configured[port][pin] = true
	f.Registers[port] &^= 1 << pin
	return nil
}

// Write sets or clears the pin's bit in the port register.
// Pins above 15 have no register bit and are recorded without effect.
func (f *FakeBank) Write(port relay.Port, pin uint8, level relay.Level) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	if pin <= 15 {
		if level == relay.High {
			f.Registers[port] |= 1 << pin
		} else {
			f.Registers[port] &^= 1 << pin
		}
	}
	f.Writes = append(f.Writes, Write{Port: port, Pin: pin, Level: level})
	return nil
}

// ODR returns the port register.
func (f *FakeBank) ODR(port relay.Port) (uint16, error) {
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	return f.Registers[port], nil
}

// Close marks the bank as closed.
func (f *FakeBank) Close() error {
	f.Closed = true
	return nil
}

// Reset zeroes the registers and clears recorded writes.
func (f *FakeBank) Reset() {
	f.Registers = make(map[relay.Port]uint16)
	f.Configured = make(map[relay.Port]map[uint8]bool)
	f.Writes = nil
	f.Closed = false
}
