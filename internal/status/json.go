package status

import (
	"encoding/json"
	"fmt"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Port          string       `json:"port"`
	Buffer        string       `json:"buffer"`
	Pins          []PinJSON    `json:"pins"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"command_counts"`
	Last          *LastJSON    `json:"last_command,omitempty"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        *ConfigJSON  `json:"config,omitempty"`
}

// PinJSON is one tracked relay pin.
type PinJSON struct {
	Pin    uint8  `json:"pin"`
	Offset int    `json:"offset"`
	State  string `json:"state"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of command counts.
type CountsJSON struct {
	Accepted    int `json:"accepted"`
	Rejected    int `json:"rejected"`
	WriteErrors int `json:"write_errors"`
}

// LastJSON is the JSON representation of the last command.
type LastJSON struct {
	Timestamp string `json:"timestamp"`
	Source    string `json:"source"`
	Command   string `json:"command"`
	Accepted  bool   `json:"accepted"`
	Error     string `json:"error,omitempty"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	GPIOBackend    string `json:"gpio_backend"`
	StatusPort     string `json:"status_port"`
	Broker         string `json:"broker,omitempty"`
	DownlinkTopic  string `json:"downlink_topic,omitempty"`
	LoRaDevice     string `json:"lora_device,omitempty"`
	ModbusEndpoint string `json:"modbus_endpoint,omitempty"`
	HTTPAddr       string `json:"http_addr,omitempty"`
}

// OnOff renders a relay level the way the status outputs show it.
func OnOff(high bool) string {
	if high {
		return "ON"
	}
	return "OFF"
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Port:          snap.StatusPort.String(),
		Buffer:        fmt.Sprintf("%X", snap.Buffer[:]),
		Pins:          make([]PinJSON, 0, len(snap.Pins)),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Accepted:    snap.Counts.Accepted,
			Rejected:    snap.Counts.Rejected,
			WriteErrors: snap.Counts.WriteErrors,
		},
	}
	for _, p := range snap.Pins {
		inner.Pins = append(inner.Pins, PinJSON{Pin: p.Pin, Offset: p.Offset, State: OnOff(bool(p.Level))})
	}
	if snap.Last != nil {
		inner.Last = &LastJSON{
			Timestamp: snap.Last.Time.UTC().Format(time.RFC3339),
			Source:    snap.Last.Source,
			Command:   snap.Last.Command,
			Accepted:  snap.Last.Accepted,
			Error:     snap.Last.Error,
		}
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

func buildConfig(cfg Config) *ConfigJSON {
	return &ConfigJSON{
		GPIOBackend:    cfg.GPIOBackend,
		StatusPort:     cfg.StatusPort,
		Broker:         cfg.Broker,
		DownlinkTopic:  cfg.DownlinkTopic,
		LoRaDevice:     cfg.LoRaDevice,
		ModbusEndpoint: cfg.ModbusEndpoint,
		HTTPAddr:       cfg.HTTPAddr,
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	inner.Config = buildConfig(snap.Config)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
// Config is included on STARTUP only.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	if event == "STARTUP" {
		inner.Config = buildConfig(snap.Config)
	}

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
