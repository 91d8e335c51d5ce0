package main

import (
	"log"
	"time"

	"github.com/sweeney/relay-node/internal/modbus"
	"github.com/sweeney/relay-node/internal/mqtt"
	"github.com/sweeney/relay-node/internal/relay"
	"github.com/sweeney/relay-node/internal/status"
)

// statusSender sends the status buffer back over the LoRa link.
type statusSender interface {
	SendStatus(address uint16, buf [relay.StatusSize]byte) error
	LastAddress() (uint16, bool)
}

// node ties the relay driver to its transports. Optional collaborators
// are nil when not configured.
type node struct {
	driver  *relay.Driver
	port    relay.Port
	tracker *status.Tracker
	now     func() time.Time

	client     mqtt.Client
	mqttStatus mqtt.ConnectionStatus
	modem      statusSender
	loraAddr   uint16 // 0 => reply to the last sender
	mirror     modbus.Mirror
}

// handle executes one command and reports the result and the new status.
func (n *node) handle(cmd relay.Command) {
	if cmd.Received.IsZero() {
		cmd.Received = n.now()
	}

	res := n.driver.Run(cmd)
	if res.Accepted {
		log.Printf("command %s from %s: %s", cmd.Hex(), cmd.Source, res.Instruction)
	} else {
		log.Printf("command %s from %s rejected: %v", cmd.Hex(), cmd.Source, res.Err)
	}
	n.tracker.Record(res)

	if n.client != nil {
		if err := n.client.PublishResult(res); err != nil {
			log.Printf("publish result error: %v", err)
			// Don't crash on publish failure
		}
	}

	n.report()
}

// report reads the status buffer and sends it to every uplink.
func (n *node) report() {
	buf, _, err := n.driver.ReadStatus(n.port)
	if err != nil {
		log.Printf("status read error: %v", err)
		return
	}
	n.tracker.SetStatus(buf, n.driver.Tracked())
	if n.mqttStatus != nil {
		n.tracker.SetMQTTConnected(n.mqttStatus.IsConnected())
	}

	if n.client != nil {
		if err := n.client.PublishStatus(buf); err != nil {
			log.Printf("publish status error: %v", err)
		}
	}

	if n.modem != nil {
		n.sendLoRa(buf)
	}

	if n.mirror != nil {
		if err := n.mirror.WriteLevels(modbus.Levels(buf, n.driver.Tracked())); err != nil {
			log.Printf("modbus mirror error: %v", err)
		}
	}
}

// sendLoRa replies to the configured address, or else to the sender of the
// last downlink. Address 0 is broadcast, so nothing is sent before a
// sender is known.
func (n *node) sendLoRa(buf [relay.StatusSize]byte) {
	addr := n.loraAddr
	if addr == 0 {
		var ok bool
		if addr, ok = n.modem.LastAddress(); !ok {
			log.Printf("lora: no reply address yet, skipping status")
			return
		}
	}
	if err := n.modem.SendStatus(addr, buf); err != nil {
		log.Printf("lora send error: %v", err)
	}
}

func (n *node) publishSystem(event, reason string) {
	if n.client == nil {
		return
	}
	if n.mqttStatus != nil {
		n.tracker.SetMQTTConnected(n.mqttStatus.IsConnected())
	}
	snap := n.tracker.Snapshot()
	se := mqtt.SystemEvent{
		Timestamp:  n.now(),
		Event:      event,
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	}
	if err := n.client.PublishSystem(se); err != nil {
		log.Printf("failed to publish %s event: %v", event, err)
	} else {
		log.Printf("published %s event", event)
	}
}
