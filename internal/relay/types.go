// Package relay decodes two-byte relay instructions and reports relay pin
// states. It has NO dependency on GPIO drivers, MQTT, serial or the OS:
// hardware is reached through the injected Hardware interface.
package relay

import (
	"errors"
	"fmt"
)

// Port selects one of the four GPIO ports.
type Port byte

const (
	PortA Port = 0x0A
	PortB Port = 0x0B
	PortC Port = 0x0C
	PortD Port = 0x0D
)

// Ports lists all valid ports in order.
var Ports = []Port{PortA, PortB, PortC, PortD}

func (p Port) String() string {
	switch p {
	case PortA:
		return "A"
	case PortB:
		return "B"
	case PortC:
		return "C"
	case PortD:
		return "D"
	}
	return fmt.Sprintf("Port(0x%02X)", byte(p))
}

// Valid reports whether p is one of PortA..PortD.
func (p Port) Valid() bool {
	return p >= PortA && p <= PortD
}

// ParsePort converts "A".."D" (either case) to a Port.
func ParsePort(s string) (Port, error) {
	switch s {
	case "A", "a":
		return PortA, nil
	case "B", "b":
		return PortB, nil
	case "C", "c":
		return PortC, nil
	case "D", "d":
		return PortD, nil
	}
	return 0, fmt.Errorf("unknown port %q", s)
}

// Level is the logic level driven on an output pin.
type Level bool

const (
	Low  Level = false
	High Level = true
)

func (l Level) String() string {
	if l {
		return "HIGH"
	}
	return "LOW"
}

// Instruction is a decoded and validated relay command.
type Instruction struct {
	Port  Port
	Pin   uint8
	Level Level
}

func (i Instruction) String() string {
	return fmt.Sprintf("P%s%d=%s", i.Port, i.Pin, i.Level)
}

// Hardware is the GPIO collaborator the driver writes through.
type Hardware interface {
	// ConfigureOutput sets the pin to push-pull output, driven low.
	ConfigureOutput(port Port, pin uint8) error

	// Write drives the pin to the given level.
	Write(port Port, pin uint8, level Level) error

	// ODR returns the port's output data register.
	ODR(port Port) (uint16, error)
}

// ErrInvalidInstruction is returned for any code outside the accepted
// peripheral/pin/level combinations.
var ErrInvalidInstruction = errors.New("invalid instruction")

// Status buffer layout.
const (
	StatusSize = 16
	// StatusTag is written to byte 0 (DataType: control).
	StatusTag byte = 0x01
)

// Tracked maps one pin's output bit to an offset in the status buffer.
type Tracked struct {
	Pin    uint8
	Offset int
	Mask   uint16
}

// DefaultTracked is the status table of the relay board.
var DefaultTracked = []Tracked{
	{Pin: 4, Offset: 2, Mask: 0x0010},
	{Pin: 5, Offset: 4, Mask: 0x0020},
	{Pin: 8, Offset: 6, Mask: 0x0100},
	{Pin: 9, Offset: 8, Mask: 0x0200},
	{Pin: 11, Offset: 10, Mask: 0x0800},
	{Pin: 14, Offset: 12, Mask: 0x4000},
	{Pin: 15, Offset: 15, Mask: 0x8000},
}

// ValidateTracked checks a status table: offsets must be within 1..15 and
// unique (byte 0 holds the tag), masks must be a single bit.
func ValidateTracked(table []Tracked) error {
	seen := make(map[int]uint8)
	for _, t := range table {
		if t.Offset < 1 || t.Offset >= StatusSize {
			return fmt.Errorf("pin %d: offset %d outside 1..%d", t.Pin, t.Offset, StatusSize-1)
		}
		if t.Mask == 0 || t.Mask&(t.Mask-1) != 0 {
			return fmt.Errorf("pin %d: mask 0x%04X is not a single bit", t.Pin, t.Mask)
		}
		if prev, ok := seen[t.Offset]; ok {
			return fmt.Errorf("offset %d used by pins %d and %d", t.Offset, prev, t.Pin)
		}
		seen[t.Offset] = t.Pin
	}
	return nil
}
