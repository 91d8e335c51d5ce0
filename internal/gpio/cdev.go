//go:build linux

package gpio

import (
	"fmt"

	"github.com/sweeney/relay-node/internal/relay"
	"github.com/warthog618/go-gpiocdev"
)

// CdevBank drives relay outputs through the Linux GPIO character device.
type CdevBank struct {
	*lineBank

	ports map[relay.Port]PortMapping
	chips map[string]*gpiocdev.Chip
}

// NewCdevBank opens every chip referenced by ports.
func NewCdevBank(ports map[relay.Port]PortMapping) (*CdevBank, error) {
	b := &CdevBank{
		ports: ports,
		chips: make(map[string]*gpiocdev.Chip),
	}
	b.lineBank = newLineBank(b.request)

	for port, m := range ports {
		if _, ok := b.chips[m.Chip]; ok {
			continue
		}
		chip, err := gpiocdev.NewChip(m.Chip)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("open gpio chip %s for port %s: %w", m.Chip, port, err)
		}
		b.chips[m.Chip] = chip
	}
	return b, nil
}

// request asks the chip for the line at Base+pin as an output.
func (b *CdevBank) request(port relay.Port, pin uint8, v int) (outputLine, error) {
	m, err := lookup(b.ports, port)
	if err != nil {
		return nil, err
	}
	offset := m.Base + int(pin)
	line, err := b.chips[m.Chip].RequestLine(offset, gpiocdev.AsOutput(v))
	if err != nil {
		return nil, fmt.Errorf("line %d on %s: %w", offset, m.Chip, err)
	}
	return line, nil
}

// Close drives every line low and releases lines and chips.
func (b *CdevBank) Close() error {
	errs := b.release()
	for name, chip := range b.chips {
		if err := chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip %s: %w", name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
