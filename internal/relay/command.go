package relay

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Command is a raw two-byte relay command as received from a transport.
type Command struct {
	Peripheral byte
	Pin        byte
	Source     string // e.g. "mqtt", "lora"
	Received   time.Time
}

// Result is the outcome of executing one Command.
type Result struct {
	Command     Command
	Instruction Instruction // zero when the command was rejected
	Accepted    bool
	Err         error
}

// ParseCommand decodes a transport payload into a Command. The payload is
// either the two raw bytes or four hex characters ("FA4F").
func ParseCommand(payload []byte) (Command, error) {
	switch len(payload) {
	case 2:
		return Command{Peripheral: payload[0], Pin: payload[1]}, nil
	case 4:
		b, err := hex.DecodeString(string(payload))
		if err != nil {
			return Command{}, fmt.Errorf("command %q: %w", payload, err)
		}
		return Command{Peripheral: b[0], Pin: b[1]}, nil
	}
	s := strings.TrimSpace(string(payload))
	if len(s) == 4 && len(s) != len(payload) {
		return ParseCommand([]byte(s))
	}
	return Command{}, fmt.Errorf("command payload must be 2 bytes or 4 hex characters, got %d bytes", len(payload))
}

// Hex returns the command as four upper-case hex characters.
func (c Command) Hex() string {
	return fmt.Sprintf("%02X%02X", c.Peripheral, c.Pin)
}

// Run executes cmd on d and reports the outcome.
func (d *Driver) Run(cmd Command) Result {
	in, err := d.Execute(cmd.Peripheral, cmd.Pin)
	return Result{
		Command:     cmd,
		Instruction: in,
		Accepted:    err == nil,
		Err:         err,
	}
}
