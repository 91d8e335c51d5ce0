package relay

import (
	"errors"
	"fmt"
	"log"
	"math/bits"
)

// Driver executes relay instructions against Hardware.
// Not safe for concurrent use; callers must serialize.
type Driver struct {
	hw      Hardware
	tracked []Tracked
}

// NewDriver creates a Driver. A nil table selects DefaultTracked.
func NewDriver(hw Hardware, tracked []Tracked) *Driver {
	if len(tracked) == 0 {
		tracked = DefaultTracked
	}
	return &Driver{hw: hw, tracked: tracked}
}

// Tracked returns the status table in use.
func (d *Driver) Tracked() []Tracked {
	out := make([]Tracked, len(d.tracked))
	copy(out, d.tracked)
	return out
}

// InitPin configures pin as a push-pull output driven low.
func (d *Driver) InitPin(port Port, pin uint8) error {
	if err := d.hw.ConfigureOutput(port, pin); err != nil {
		return fmt.Errorf("init P%s%d: %w", port, pin, err)
	}
	return nil
}

// InitPins configures every pin in pins on port.
func (d *Driver) InitPins(port Port, pins []uint8) error {
	for _, pin := range pins {
		if err := d.InitPin(port, pin); err != nil {
			return err
		}
	}
	return nil
}

// On drives the relay pin high.
func (d *Driver) On(port Port, pin uint8) error {
	return d.hw.Write(port, pin, High)
}

// Off drives the relay pin low.
func (d *Driver) Off(port Port, pin uint8) error {
	return d.hw.Write(port, pin, Low)
}

// Execute decodes the instruction and performs its single pin write.
// Nothing is written when decoding fails.
func (d *Driver) Execute(peripheral, pin byte) (Instruction, error) {
	in, err := Decode(peripheral, pin)
	if err != nil {
		return Instruction{}, err
	}
	if err := d.hw.Write(in.Port, in.Pin, in.Level); err != nil {
		return in, fmt.Errorf("write %s: %w", in, err)
	}
	return in, nil
}

// Analyze reports whether the instruction was valid and executed.
// Hardware write errors are logged; invalid codes are not.
func (d *Driver) Analyze(peripheral, pin byte) bool {
	_, err := d.Execute(peripheral, pin)
	if err != nil && !errors.Is(err, ErrInvalidInstruction) {
		log.Printf("relay: %v", err)
	}
	return err == nil
}

// ReadStatus serializes the tracked pin levels of port into the fixed
// status buffer. The size is always StatusSize.
func (d *Driver) ReadStatus(port Port) ([StatusSize]byte, int, error) {
	var buf [StatusSize]byte
	odr, err := d.hw.ODR(port)
	if err != nil {
		return buf, StatusSize, fmt.Errorf("read ODR P%s: %w", port, err)
	}
	return EncodeStatus(odr, d.tracked), StatusSize, nil
}

// EncodeStatus builds a status buffer from an output data register value.
func EncodeStatus(odr uint16, tracked []Tracked) [StatusSize]byte {
	var buf [StatusSize]byte
	buf[0] = StatusTag
	for _, t := range tracked {
		if t.Offset < 1 || t.Offset >= StatusSize || t.Mask == 0 {
			continue
		}
		buf[t.Offset] = byte((odr & t.Mask) >> bits.TrailingZeros16(t.Mask))
	}
	return buf
}

// DecodeStatus reads pin levels back out of a status buffer.
func DecodeStatus(buf [StatusSize]byte, tracked []Tracked) map[uint8]Level {
	out := make(map[uint8]Level, len(tracked))
	for _, t := range tracked {
		if t.Offset < 1 || t.Offset >= StatusSize {
			continue
		}
		out[t.Pin] = Level(buf[t.Offset] != 0)
	}
	return out
}
