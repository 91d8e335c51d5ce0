package gpio

import (
	"fmt"

	"github.com/sweeney/relay-node/internal/relay"
)

// outputLine is one GPIO line held as an output.
type outputLine interface {
	SetValue(v int) error
	Value() (int, error)
	Close() error
}

// lineOpener requests pin on port as an output driven to v.
type lineOpener func(port relay.Port, pin uint8, v int) (outputLine, error)

// lineBank implements relay.Hardware over requested output lines.
// A pin that was never configured is requested on its first Write, so any
// allow-listed pin on a mapped port can be driven.
type lineBank struct {
	open  lineOpener
	lines map[lineKey]outputLine
}

func newLineBank(open lineOpener) *lineBank {
	return &lineBank{open: open, lines: make(map[lineKey]outputLine)}
}

// ConfigureOutput requests the line driven low, or drives an already
// requested line low again.
func (b *lineBank) ConfigureOutput(port relay.Port, pin uint8) error {
	return b.set(port, pin, 0)
}

// Write drives the pin, requesting it as an output first if needed.
func (b *lineBank) Write(port relay.Port, pin uint8, level relay.Level) error {
	v := 0
	if level == relay.High {
		v = 1
	}
	return b.set(port, pin, v)
}

func (b *lineBank) set(port relay.Port, pin uint8, v int) error {
	key := lineKey{port, pin}
	if line, ok := b.lines[key]; ok {
		if err := line.SetValue(v); err != nil {
			return fmt.Errorf("write P%s%d: %w", port, pin, err)
		}
		return nil
	}

	line, err := b.open(port, pin, v)
	if err != nil {
		return fmt.Errorf("request P%s%d: %w", port, pin, err)
	}
	b.lines[key] = line
	return nil
}

// ODR composes an output data register from the requested lines of port.
func (b *lineBank) ODR(port relay.Port) (uint16, error) {
	var odr uint16
	for key, line := range b.lines {
		if key.port != port || key.pin > 15 {
			continue
		}
		v, err := line.Value()
		if err != nil {
			return 0, fmt.Errorf("read P%s%d: %w", port, key.pin, err)
		}
		if v != 0 {
			odr |= 1 << key.pin
		}
	}
	return odr, nil
}

// release drives every line low and closes it.
func (b *lineBank) release() []error {
	var errs []error
	for key, line := range b.lines {
		if err := line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("release P%s%d: %w", key.port, key.pin, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close P%s%d: %w", key.port, key.pin, err))
		}
	}
	b.lines = make(map[lineKey]outputLine)
	return errs
}
