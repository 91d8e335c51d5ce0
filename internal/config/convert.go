package config

import (
	"github.com/sweeney/relay-node/internal/gpio"
	"github.com/sweeney/relay-node/internal/relay"
)

// StatusPort returns the validated status port.
func (c *Config) StatusPort() relay.Port {
	p, _ := relay.ParsePort(c.Node.StatusPort)
	return p
}

// Tracked returns the status table; the board default when none is set.
func (c *Config) Tracked() []relay.Tracked {
	if len(c.Node.Tracked) == 0 {
		return relay.DefaultTracked
	}
	out := make([]relay.Tracked, len(c.Node.Tracked))
	for i, t := range c.Node.Tracked {
		out[i] = relay.Tracked{Pin: t.Pin, Offset: t.Offset, Mask: t.Mask}
	}
	return out
}

// PinsByPort groups the relay pins to initialise by port, keeping order.
func (c *Config) PinsByPort() map[relay.Port][]uint8 {
	out := make(map[relay.Port][]uint8)
	for _, p := range c.Node.Pins {
		port, err := relay.ParsePort(p.Port)
		if err != nil {
			continue
		}
		out[port] = append(out[port], p.Pin)
	}
	return out
}

// GPIOConfig builds the gpio.Open configuration.
func (c *Config) GPIOConfig() gpio.Config {
	ports := make(map[relay.Port]gpio.PortMapping, len(c.GPIO.Ports))
	for name, pc := range c.GPIO.Ports {
		port, err := relay.ParsePort(name)
		if err != nil {
			continue
		}
		ports[port] = gpio.PortMapping{Chip: pc.Chip, Base: pc.Base}
	}
	return gpio.Config{Backend: c.GPIO.Backend, Ports: ports}
}
