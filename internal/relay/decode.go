package relay

import "fmt"

// Peripheral byte: high nibble must be 0xF0, low nibble selects the port.
const peripheralPrefix = 0xF0

// Level nibble values.
const (
	levelLow  = 0x0
	levelHigh = 0xF
)

// allowedPins is the relay pin allow-list. The pin number is the high
// nibble of the pin byte, so 16, 17 and 60 can never match.
var allowedPins = map[uint8]bool{
	4: true, 5: true, 6: true, 7: true, 8: true, 9: true,
	11: true, 14: true, 15: true,
	16: true, 17: true, 60: true,
}

// AllowedPin reports whether pin is in the relay allow-list.
func AllowedPin(pin uint8) bool {
	return allowedPins[pin]
}

// UnreachablePins returns the allow-list entries no pin byte can select.
func UnreachablePins() []uint8 {
	var out []uint8
	for _, p := range []uint8{4, 5, 6, 7, 8, 9, 11, 14, 15, 16, 17, 60} {
		if allowedPins[p] && p > 0x0F {
			out = append(out, p)
		}
	}
	return out
}

// Decode validates a peripheral byte and a pin byte and returns the
// instruction they encode. Any failure wraps ErrInvalidInstruction.
func Decode(peripheral, pin byte) (Instruction, error) {
	port, err := decodePort(peripheral)
	if err != nil {
		return Instruction{}, err
	}

	number := (pin & 0xF0) >> 4
	if !allowedPins[number] {
		return Instruction{}, fmt.Errorf("%w: pin %d not allowed (0x%02X)", ErrInvalidInstruction, number, pin)
	}

	var level Level
	switch pin & 0x0F {
	case levelLow:
		level = Low
	case levelHigh:
		level = High
	default:
		return Instruction{}, fmt.Errorf("%w: level 0x%X (0x%02X)", ErrInvalidInstruction, pin&0x0F, pin)
	}

	return Instruction{Port: port, Pin: number, Level: level}, nil
}

func decodePort(peripheral byte) (Port, error) {
	if peripheral&0xF0 != peripheralPrefix {
		return 0, fmt.Errorf("%w: peripheral prefix 0x%02X", ErrInvalidInstruction, peripheral)
	}
	port := Port(peripheral & 0x0F)
	if !port.Valid() {
		return 0, fmt.Errorf("%w: no port for 0x%02X", ErrInvalidInstruction, peripheral)
	}
	return port, nil
}

// Encode is the inverse of Decode. Instructions that no pin byte can
// carry wrap ErrInvalidInstruction.
func Encode(in Instruction) (peripheral, pin byte, err error) {
	if !in.Port.Valid() {
		return 0, 0, fmt.Errorf("%w: port %s", ErrInvalidInstruction, in.Port)
	}
	if in.Pin > 0x0F || !allowedPins[in.Pin] {
		return 0, 0, fmt.Errorf("%w: pin %d cannot be encoded", ErrInvalidInstruction, in.Pin)
	}
	peripheral = peripheralPrefix | byte(in.Port)
	pin = in.Pin << 4
	if in.Level == High {
		pin |= levelHigh
	}
	return peripheral, pin, nil
}
