package config

import (
	"strings"
	"time"
)

// Defaults applied by Normalize.
const (
	DefaultStatusPort    = "A"
	DefaultBackend       = "cdev"
	DefaultClientID      = "relay-node"
	DefaultDownlinkTopic = "relay/node/downlink"
	DefaultUplinkTopic   = "relay/node/uplink"
	DefaultEventTopic    = "relay/node/events"
	DefaultSystemTopic   = "relay/node/system"
	DefaultBuffer        = 64
	DefaultBaud          = 115200
	DefaultModbusTimeout = 1000

	DefaultReportInterval = 15 * time.Minute
)

// DefaultPins are the relay outputs of the evaluation board.
var DefaultPins = []uint8{4, 5, 8, 9, 11, 14, 15}

// Normalize fills in defaults. It is allowed to mutate configuration and
// runs before Validate.
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	// Port names are matched upper case ("a" == "A").
	if cfg.Node.StatusPort == "" {
		cfg.Node.StatusPort = DefaultStatusPort
	}
	cfg.Node.StatusPort = strings.ToUpper(cfg.Node.StatusPort)
	for i := range cfg.Node.Pins {
		cfg.Node.Pins[i].Port = strings.ToUpper(cfg.Node.Pins[i].Port)
	}
	if len(cfg.Node.Pins) == 0 {
		for _, p := range DefaultPins {
			cfg.Node.Pins = append(cfg.Node.Pins, PinConfig{Port: cfg.Node.StatusPort, Pin: p})
		}
	}
	for i := range cfg.Node.Tracked {
		t := &cfg.Node.Tracked[i]
		if t.Mask == 0 && t.Pin < 16 {
			t.Mask = 1 << t.Pin
		}
	}

	if cfg.GPIO.Backend == "" {
		cfg.GPIO.Backend = DefaultBackend
	}
	if cfg.GPIO.Ports == nil {
		cfg.GPIO.Ports = map[string]PortConfig{
			"A": {Chip: "gpiochip0", Base: 0},
		}
	} else {
		ports := make(map[string]PortConfig, len(cfg.GPIO.Ports))
		for name, pc := range cfg.GPIO.Ports {
			ports[strings.ToUpper(name)] = pc
		}
		cfg.GPIO.Ports = ports
	}

	m := &cfg.MQTT
	if m.ClientID == "" {
		m.ClientID = DefaultClientID
	}
	if m.DownlinkTopic == "" {
		m.DownlinkTopic = DefaultDownlinkTopic
	}
	if m.UplinkTopic == "" {
		m.UplinkTopic = DefaultUplinkTopic
	}
	if m.EventTopic == "" {
		m.EventTopic = DefaultEventTopic
	}
	if m.SystemTopic == "" {
		m.SystemTopic = DefaultSystemTopic
	}
	if m.Buffer == 0 {
		m.Buffer = DefaultBuffer
	}

	if cfg.LoRa.Baud == 0 {
		cfg.LoRa.Baud = DefaultBaud
	}
	if cfg.Modbus.TimeoutMs == 0 {
		cfg.Modbus.TimeoutMs = DefaultModbusTimeout
	}
}
