package gpio

import (
	"fmt"

	"github.com/sweeney/relay-node/internal/relay"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// PeriphBank drives relay outputs through periph.io host drivers.
// Pins are looked up by name as GPIO<Base+pin>.
type PeriphBank struct {
	*lineBank

	ports map[relay.Port]PortMapping
}

// NewPeriphBank initialises the periph host drivers.
func NewPeriphBank(ports map[relay.Port]PortMapping) (*PeriphBank, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}
	b := &PeriphBank{ports: ports}
	b.lineBank = newLineBank(b.request)
	return b, nil
}

func (b *PeriphBank) request(port relay.Port, pin uint8, v int) (outputLine, error) {
	m, err := lookup(b.ports, port)
	if err != nil {
		return nil, err
	}
	name := fmt.Sprintf("GPIO%d", m.Base+int(pin))
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("no pin %s", name)
	}
	line := periphLine{p}
	if err := line.SetValue(v); err != nil {
		return nil, err
	}
	return line, nil
}

// Close drives every configured pin low.
func (b *PeriphBank) Close() error {
	if errs := b.release(); len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// periphLine adapts a periph pin to outputLine.
type periphLine struct {
	p gpio.PinIO
}

func (l periphLine) SetValue(v int) error {
	if err := l.p.Out(gpio.Level(v != 0)); err != nil {
		return fmt.Errorf("%s: %w", l.p.Name(), err)
	}
	return nil
}

func (l periphLine) Value() (int, error) {
	if l.p.Read() == gpio.High {
		return 1, nil
	}
	return 0, nil
}

// Close leaves the pin as it is; periph holds no per-line handle.
func (l periphLine) Close() error { return nil }
