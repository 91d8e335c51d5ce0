// Package config loads the relay-node YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the whole relay-node configuration file.
type Config struct {
	Node   NodeConfig   `yaml:"node"`
	GPIO   GPIOConfig   `yaml:"gpio"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
	LoRa   LoRaConfig   `yaml:"lora"`
	Modbus ModbusConfig `yaml:"modbus"`
	HTTP   HTTPConfig   `yaml:"http"`
}

// ---- NODE ----

// NodeConfig selects the relay pins and the status layout.
type NodeConfig struct {
	// Port whose output register is reported in the status buffer.
	StatusPort string          `yaml:"status_port"`
	Pins       []PinConfig     `yaml:"pins"`
	Tracked    []TrackedConfig `yaml:"tracked"` // empty => board default table

	// Periodic status uplink. nil => DefaultReportInterval, 0 => disabled.
	ReportIntervalMs *int `yaml:"report_interval_ms"`
}

// ReportInterval returns the periodic status uplink interval.
func (n NodeConfig) ReportInterval() time.Duration {
	if n.ReportIntervalMs == nil {
		return DefaultReportInterval
	}
	return time.Duration(*n.ReportIntervalMs) * time.Millisecond
}

// PinConfig is one relay output initialised at startup.
type PinConfig struct {
	Port string `yaml:"port"`
	Pin  uint8  `yaml:"pin"`
}

// TrackedConfig is one status buffer entry.
type TrackedConfig struct {
	Pin    uint8  `yaml:"pin"`
	Offset int    `yaml:"offset"`
	Mask   uint16 `yaml:"mask"` // 0 => 1<<pin
}

// ---- GPIO ----

// GPIOConfig selects the GPIO backend and maps ports to the host.
type GPIOConfig struct {
	Backend string                `yaml:"backend"` // fake | cdev | periph
	Ports   map[string]PortConfig `yaml:"ports"`
}

// PortConfig locates one port: a gpiochip and a line offset base.
type PortConfig struct {
	Chip string `yaml:"chip"`
	Base int    `yaml:"base"`
}

// ---- TRANSPORTS ----

// MQTTConfig configures the broker connection and topics.
type MQTTConfig struct {
	Broker        string `yaml:"broker"` // empty => disabled
	ClientID      string `yaml:"client_id"`
	DownlinkTopic string `yaml:"downlink_topic"`
	UplinkTopic   string `yaml:"uplink_topic"`
	EventTopic    string `yaml:"event_topic"`
	SystemTopic   string `yaml:"system_topic"`
	Buffer        int    `yaml:"buffer"`
}

// LoRaConfig configures the serial LoRa modem.
type LoRaConfig struct {
	Device  string `yaml:"device"` // empty => disabled
	Baud    int    `yaml:"baud"`
	Address uint16 `yaml:"address"` // gateway address for status replies
}

// ModbusConfig configures the optional coil mirror.
type ModbusConfig struct {
	Endpoint  string `yaml:"endpoint"` // empty => disabled
	UnitID    uint8  `yaml:"unit_id"`
	Address   uint16 `yaml:"address"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// HTTPConfig configures the status page.
type HTTPConfig struct {
	Addr string `yaml:"addr"` // empty => disabled
}

// Load reads, normalizes and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	Normalize(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
