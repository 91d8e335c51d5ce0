// Command relay-node drives relay outputs from two-byte commands received
// over MQTT or a LoRa modem and reports the relay status buffer back.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/relay-node/internal/config"
	"github.com/sweeney/relay-node/internal/gpio"
	"github.com/sweeney/relay-node/internal/lora"
	"github.com/sweeney/relay-node/internal/modbus"
	"github.com/sweeney/relay-node/internal/mqtt"
	"github.com/sweeney/relay-node/internal/relay"
	"github.com/sweeney/relay-node/internal/status"
	"github.com/sweeney/relay-node/internal/web"
)

// commandQueue bounds commands waiting for the run loop.
const commandQueue = 16

func main() {
	cfgPath := flag.String("config", "/etc/relay-node.yaml", "Path to YAML configuration")
	printStatus := flag.Bool("print-status", false, "Print the status buffer and exit")

	flag.Parse()

	if err := run(*cfgPath, *printStatus); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfgPath string, printStatus bool) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	// Initialize GPIO
	bank, err := gpio.Open(cfg.GPIOConfig())
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer bank.Close()

	driver := relay.NewDriver(bank, cfg.Tracked())
	for port, pins := range cfg.PinsByPort() {
		if err := driver.InitPins(port, pins); err != nil {
			return fmt.Errorf("init relays: %w", err)
		}
	}

	// Print status mode
	if printStatus {
		return writeStatus(os.Stdout, driver, cfg.StatusPort())
	}

	tracker := status.NewTracker(time.Now(), cfg.StatusPort(), status.Config{
		GPIOBackend:    cfg.GPIO.Backend,
		StatusPort:     cfg.Node.StatusPort,
		Broker:         cfg.MQTT.Broker,
		DownlinkTopic:  cfg.MQTT.DownlinkTopic,
		LoRaDevice:     cfg.LoRa.Device,
		ModbusEndpoint: cfg.Modbus.Endpoint,
		HTTPAddr:       cfg.HTTP.Addr,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	commands := make(chan relay.Command, commandQueue)
	n := &node{
		driver:  driver,
		port:    cfg.StatusPort(),
		tracker: tracker,
		now:     time.Now,
	}

	// Initialize MQTT
	if cfg.MQTT.Broker != "" {
		client, err := mqtt.NewRealClient(mqtt.Config{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Buffer:   cfg.MQTT.Buffer,
			Topics: mqtt.Topics{
				Downlink: cfg.MQTT.DownlinkTopic,
				Uplink:   cfg.MQTT.UplinkTopic,
				Events:   cfg.MQTT.EventTopic,
				System:   cfg.MQTT.SystemTopic,
			},
		})
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer client.Close()
		if err := client.Subscribe(enqueue(commands)); err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
		n.client = client
		n.mqttStatus = client
		log.Printf("mqtt: subscribed to %s on %s", cfg.MQTT.DownlinkTopic, cfg.MQTT.Broker)
	}

	// Initialize LoRa modem
	if cfg.LoRa.Device != "" {
		modem, err := lora.Open(lora.Config{Device: cfg.LoRa.Device, Baud: cfg.LoRa.Baud})
		if err != nil {
			return fmt.Errorf("init lora: %w", err)
		}
		defer modem.Close()
		go func() {
			if err := modem.Listen(enqueue(commands)); err != nil {
				log.Printf("lora: listen: %v", err)
			}
		}()
		n.modem = modem
		n.loraAddr = cfg.LoRa.Address
		log.Printf("lora: listening on %s", cfg.LoRa.Device)
	}

	// Initialize Modbus mirror
	if cfg.Modbus.Endpoint != "" {
		mirror, err := modbus.NewCoilMirror(modbus.Config{
			Endpoint: cfg.Modbus.Endpoint,
			UnitID:   cfg.Modbus.UnitID,
			Address:  cfg.Modbus.Address,
			Timeout:  time.Duration(cfg.Modbus.TimeoutMs) * time.Millisecond,
		})
		if err != nil {
			return fmt.Errorf("init modbus mirror: %w", err)
		}
		defer mirror.Close()
		n.mirror = mirror
	}

	// Start HTTP status server
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	n.report()
	n.publishSystem("STARTUP", "")

	log.Printf("started: backend=%s status_port=%s report=%v", cfg.GPIO.Backend, cfg.StatusPort(), cfg.Node.ReportInterval())

	var tick <-chan time.Time
	if iv := cfg.Node.ReportInterval(); iv > 0 {
		ticker := time.NewTicker(iv)
		defer ticker.Stop()
		tick = ticker.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(n, commands, tick, sigCh)
}

// writeStatus prints the status buffer, then each tracked pin with its
// level and the commands that switch it.
func writeStatus(w io.Writer, d *relay.Driver, port relay.Port) error {
	buf, _, err := d.ReadStatus(port)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "% X\n", buf)

	levels := relay.DecodeStatus(buf, d.Tracked())
	for _, t := range d.Tracked() {
		fmt.Fprintf(w, "P%s%d: %s", port, t.Pin, status.OnOff(bool(levels[t.Pin])))
		on, errOn := commandHex(relay.Instruction{Port: port, Pin: t.Pin, Level: relay.High})
		off, errOff := commandHex(relay.Instruction{Port: port, Pin: t.Pin, Level: relay.Low})
		if errOn == nil && errOff == nil {
			fmt.Fprintf(w, " (on %s, off %s)", on, off)
		}
		fmt.Fprintln(w)
	}
	return nil
}

func commandHex(in relay.Instruction) (string, error) {
	p, n, err := relay.Encode(in)
	if err != nil {
		return "", err
	}
	return relay.Command{Peripheral: p, Pin: n}.Hex(), nil
}

// enqueue returns a transport handler that hands commands to the run loop.
// Commands are dropped when the queue is full so a transport callback never
// blocks.
func enqueue(ch chan<- relay.Command) func(relay.Command) {
	return func(cmd relay.Command) {
		select {
		case ch <- cmd:
		default:
			log.Printf("command queue full, dropping %s from %s", cmd.Hex(), cmd.Source)
		}
	}
}

// runLoop is the only goroutine that touches the relay driver.
func runLoop(n *node, commands <-chan relay.Command, tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			n.publishSystem("SHUTDOWN", signalName)
			return nil

		case cmd := <-commands:
			n.handle(cmd)

		case <-tick:
			n.report()
		}
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
