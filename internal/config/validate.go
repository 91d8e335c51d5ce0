package config

import (
	"fmt"

	"github.com/sweeney/relay-node/internal/gpio"
	"github.com/sweeney/relay-node/internal/relay"
)

// Validate checks configuration correctness.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	statusPort, err := relay.ParsePort(cfg.Node.StatusPort)
	if err != nil {
		return fmt.Errorf("node.status_port: %w", err)
	}

	// ------------------------------------------------------------
	// RELAY PINS
	// ------------------------------------------------------------

	for i, p := range cfg.Node.Pins {
		port, err := relay.ParsePort(p.Port)
		if err != nil {
			return fmt.Errorf("node.pins[%d]: %w", i, err)
		}
		if !relay.AllowedPin(p.Pin) || p.Pin > 15 {
			return fmt.Errorf("node.pins[%d]: pin %d is not a relay pin", i, p.Pin)
		}
		if _, ok := cfg.GPIO.Ports[port.String()]; !ok && cfg.GPIO.Backend != gpio.BackendFake {
			return fmt.Errorf("node.pins[%d]: port %s has no gpio.ports mapping", i, port)
		}
	}
	if _, ok := cfg.GPIO.Ports[statusPort.String()]; !ok && cfg.GPIO.Backend != gpio.BackendFake {
		return fmt.Errorf("node.status_port: port %s has no gpio.ports mapping", statusPort)
	}

	if err := relay.ValidateTracked(cfg.Tracked()); err != nil {
		return fmt.Errorf("node.tracked: %w", err)
	}
	if iv := cfg.Node.ReportIntervalMs; iv != nil && *iv < 0 {
		return fmt.Errorf("node.report_interval_ms must not be negative")
	}

	// ------------------------------------------------------------
	// GPIO
	// ------------------------------------------------------------

	switch cfg.GPIO.Backend {
	case gpio.BackendFake, gpio.BackendCdev, gpio.BackendPeriph:
	default:
		return fmt.Errorf("gpio.backend: unknown backend %q", cfg.GPIO.Backend)
	}
	for name, pc := range cfg.GPIO.Ports {
		if _, err := relay.ParsePort(name); err != nil {
			return fmt.Errorf("gpio.ports: %w", err)
		}
		if cfg.GPIO.Backend == gpio.BackendCdev && pc.Chip == "" {
			return fmt.Errorf("gpio.ports.%s: chip is required for cdev", name)
		}
		if pc.Base < 0 {
			return fmt.Errorf("gpio.ports.%s: base must not be negative", name)
		}
	}

	// ------------------------------------------------------------
	// TRANSPORTS
	// ------------------------------------------------------------

	if cfg.MQTT.Broker == "" && cfg.LoRa.Device == "" {
		return fmt.Errorf("no downlink transport: set mqtt.broker or lora.device")
	}
	if cfg.MQTT.Buffer < 0 {
		return fmt.Errorf("mqtt.buffer must not be negative")
	}
	if cfg.LoRa.Device != "" && cfg.LoRa.Baud <= 0 {
		return fmt.Errorf("lora.baud must be positive")
	}
	if cfg.Modbus.Endpoint != "" && cfg.Modbus.TimeoutMs <= 0 {
		return fmt.Errorf("modbus.timeout_ms must be positive")
	}

	return nil
}
