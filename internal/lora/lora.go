// Package lora receives relay commands from a LoRa AT-command modem on a
// serial line and sends status buffers back through it.
//
// Downlinks arrive as +RCV=<address>,<length>,<data>,<rssi>,<snr> lines
// with the two command bytes hex encoded in <data>. Uplinks are sent with
// AT+SEND=<address>,<length>,<data>.
package lora

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sweeney/relay-node/internal/relay"
	"github.com/tarm/serial"
)

// MaxPayload is the largest AT+SEND payload the modem accepts.
const MaxPayload = 240

// Config holds serial port configuration.
type Config struct {
	// Device path (e.g., "/dev/ttyUSB0")
	Device string

	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// Frame is one received +RCV message.
type Frame struct {
	Address uint16
	Data    string
	RSSI    int
	SNR     int
}

// Modem talks to the LoRa module over an io.ReadWriteCloser.
type Modem struct {
	port io.ReadWriteCloser
	mu   sync.Mutex // serializes writes

	lastAddr  uint16
	heardFrom bool
}

// Open opens the serial device and wraps it in a Modem.
func Open(cfg Config) (*Modem, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: time.Duration(cfg.ReadTimeout) * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Device, err)
	}
	return New(port), nil
}

// New wraps an already open port.
func New(port io.ReadWriteCloser) *Modem {
	return &Modem{port: port}
}

// Listen reads modem output until the port is closed, passing each valid
// downlink command to handler. Other lines (+OK, +ERR=, +READY) are logged.
func (m *Modem) Listen(handler func(relay.Command)) error {
	scanner := bufio.NewScanner(m.port)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		payload, ok := strings.CutPrefix(line, "+RCV=")
		if !ok {
			if strings.HasPrefix(line, "+ERR=") {
				log.Printf("lora: modem error: %s", line)
			}
			continue
		}

		frame, err := ParseFrame(payload)
		if err != nil {
			log.Printf("lora: dropping frame %q: %v", line, err)
			continue
		}
		cmd, err := relay.ParseCommand([]byte(frame.Data))
		if err != nil {
			log.Printf("lora: dropping downlink from %d: %v", frame.Address, err)
			continue
		}
		cmd.Source = "lora"
		cmd.Received = time.Now()

		m.mu.Lock()
		m.lastAddr = frame.Address
		m.heardFrom = true
		m.mu.Unlock()

		handler(cmd)
	}

	err := scanner.Err()
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
		return nil
	}
	return fmt.Errorf("read modem: %w", err)
}

// LastAddress returns the sender address of the most recent downlink.
// ok is false until a downlink has been received.
func (m *Modem) LastAddress() (addr uint16, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastAddr, m.heardFrom
}

// SendStatus sends the status buffer hex encoded to address.
func (m *Modem) SendStatus(address uint16, buf [relay.StatusSize]byte) error {
	return m.Send(address, fmt.Sprintf("%X", buf[:]))
}

// Send writes an AT+SEND command for data.
func (m *Modem) Send(address uint16, data string) error {
	if len(data) > MaxPayload {
		return fmt.Errorf("data length %d exceeds maximum of %d bytes", len(data), MaxPayload)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cmd := FormatSend(address, data)
	if _, err := io.WriteString(m.port, cmd); err != nil {
		return fmt.Errorf("send to %d: %w", address, err)
	}
	return nil
}

// Close closes the serial port, which also ends Listen.
func (m *Modem) Close() error {
	return m.port.Close()
}

// FormatSend builds the AT+SEND line for data.
func FormatSend(address uint16, data string) string {
	return fmt.Sprintf("AT+SEND=%d,%d,%s\r\n", address, len(data), data)
}

// ParseFrame parses the part of a +RCV line after the prefix.
// Format: <Address>,<Length>,<Data>,<RSSI>,<SNR>
// Data may itself contain commas, so it is cut by length.
func ParseFrame(payload string) (Frame, error) {
	var f Frame

	addrStr, rest, ok := strings.Cut(payload, ",")
	if !ok {
		return f, errors.New("missing length")
	}
	addr, err := strconv.ParseUint(addrStr, 10, 16)
	if err != nil {
		return f, fmt.Errorf("address: %w", err)
	}
	f.Address = uint16(addr)

	lenStr, rest, ok := strings.Cut(rest, ",")
	if !ok {
		return f, errors.New("missing data")
	}
	n, err := strconv.Atoi(lenStr)
	if err != nil || n < 0 || n > MaxPayload {
		return f, fmt.Errorf("bad length %q", lenStr)
	}
	if n > len(rest) {
		return f, fmt.Errorf("length %d exceeds frame", n)
	}
	f.Data = rest[:n]

	tail, ok := strings.CutPrefix(rest[n:], ",")
	if !ok {
		return f, errors.New("missing rssi")
	}
	rssiStr, snrStr, ok := strings.Cut(tail, ",")
	if !ok {
		return f, errors.New("missing snr")
	}
	if f.RSSI, err = strconv.Atoi(rssiStr); err != nil {
		return f, fmt.Errorf("rssi: %w", err)
	}
	if f.SNR, err = strconv.Atoi(snrStr); err != nil {
		return f, fmt.Errorf("snr: %w", err)
	}
	return f, nil
}
