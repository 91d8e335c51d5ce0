package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sweeney/relay-node/internal/relay"
)

// Config configures a RealClient.
type Config struct {
	Broker   string
	ClientID string
	Topics   Topics
	Buffer   int // uplink messages held while disconnected
}

// RealClient talks to an actual MQTT broker.
type RealClient struct {
	client paho.Client
	topics Topics

	mu      sync.Mutex
	handler func(relay.Command)
	pending *ringBuffer
}

// NewRealClient creates a client connected to the given broker. The will
// message announces an unexpected disconnect on the system topic.
func NewRealClient(cfg Config) (*RealClient, error) {
	c := &RealClient{
		topics:  cfg.Topics,
		pending: newRingBuffer(max(cfg.Buffer, 1)),
	}

	will, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "OFFLINE", Reason: "LWT"})

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(cfg.Topics.System, string(will), 1, true).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	c.client = paho.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return c, nil
}

// onConnect restores the downlink subscription and replays buffered uplinks.
func (c *RealClient) onConnect(client paho.Client) {
	c.mu.Lock()
	handler := c.handler
	msgs := c.pending.drainAll()
	c.mu.Unlock()

	if handler != nil {
		if err := c.subscribe(handler); err != nil {
			log.Printf("mqtt: resubscribe: %v", err)
		}
	}
	if len(msgs) > 0 {
		log.Printf("mqtt: replaying %d buffered messages", len(msgs))
	}
	for _, m := range msgs {
		token := client.Publish(m.topic, m.qos, m.retained, m.payload)
		if !token.WaitTimeout(5*time.Second) || token.Error() != nil {
			log.Printf("mqtt: replay to %s failed", m.topic)
		}
	}
}

// Subscribe delivers downlink commands to handler.
func (c *RealClient) Subscribe(handler func(relay.Command)) error {
	c.mu.Lock()
	c.handler = handler
	c.mu.Unlock()
	return c.subscribe(handler)
}

func (c *RealClient) subscribe(handler func(relay.Command)) error {
	token := c.client.Subscribe(c.topics.Downlink, 1, func(_ paho.Client, msg paho.Message) {
		cmd, err := relay.ParseCommand(msg.Payload())
		if err != nil {
			log.Printf("mqtt: dropping downlink on %s: %v", msg.Topic(), err)
			return
		}
		cmd.Source = "mqtt"
		cmd.Received = time.Now()
		handler(cmd)
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", c.topics.Downlink, err)
	}
	return nil
}

// PublishStatus sends the raw status buffer, retained so late subscribers
// see the current relay state.
func (c *RealClient) PublishStatus(buf [relay.StatusSize]byte) error {
	return c.publish(bufferedMsg{topic: c.topics.Uplink, payload: buf[:], qos: 1, retained: true})
}

// PublishResult sends a command result to the events topic.
func (c *RealClient) PublishResult(result relay.Result) error {
	payload, err := FormatPayload(result)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 0 (at-most-once), not retained
	return c.publish(bufferedMsg{topic: c.topics.Events, payload: payload})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (c *RealClient) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return c.publish(bufferedMsg{topic: c.topics.System, payload: payload, qos: 1, retained: event.Retained})
}

func (c *RealClient) publish(m bufferedMsg) error {
	if !c.client.IsConnectionOpen() {
		c.mu.Lock()
		c.pending.push(m)
		c.mu.Unlock()
		return nil
	}

	token := c.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s timeout", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", m.topic, err)
	}
	return nil
}

// IsConnected reports whether the broker connection is up.
func (c *RealClient) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (c *RealClient) Close() error {
	c.client.Disconnect(1000) // 1 second timeout
	return nil
}
