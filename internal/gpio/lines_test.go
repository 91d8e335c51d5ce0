package gpio

import (
	"errors"
	"testing"

	"github.com/sweeney/relay-node/internal/relay"
)

type fakeLine struct {
	value  int
	setErr error
	closed bool
}

func (l *fakeLine) SetValue(v int) error {
	if l.setErr != nil {
		return l.setErr
	}
	l.value = v
	return nil
}

func (l *fakeLine) Value() (int, error) { return l.value, nil }

func (l *fakeLine) Close() error {
	l.closed = true
	return nil
}

// fakeChip opens fakeLines for mapped ports only, like a host bank.
type fakeChip struct {
	mapped   map[relay.Port]bool
	requests []lineKey
	lines    map[lineKey]*fakeLine
}

func newFakeChip(ports ...relay.Port) *fakeChip {
	c := &fakeChip{mapped: make(map[relay.Port]bool), lines: make(map[lineKey]*fakeLine)}
	for _, p := range ports {
		c.mapped[p] = true
	}
	return c
}

func (c *fakeChip) open(port relay.Port, pin uint8, v int) (outputLine, error) {
	if !c.mapped[port] {
		return nil, errors.New("port not mapped")
	}
	key := lineKey{port, pin}
	c.requests = append(c.requests, key)
	l := &fakeLine{value: v}
	c.lines[key] = l
	return l, nil
}

func TestLineBankWritesUnconfiguredPins(t *testing.T) {
	chip := newFakeChip(relay.PortA, relay.PortB)
	d := relay.NewDriver(newLineBank(chip.open), nil)

	// Only the default relay pins are initialised at startup
	if err := d.InitPins(relay.PortA, []uint8{4, 5, 8, 9, 11, 14, 15}); err != nil {
		t.Fatalf("InitPins: %v", err)
	}

	for _, code := range [][2]byte{{0xFA, 0x6F}, {0xFA, 0x7F}, {0xFB, 0x4F}} {
		if !d.Analyze(code[0], code[1]) {
			t.Errorf("Analyze(0x%02X, 0x%02X) = false, want true", code[0], code[1])
		}
	}

	if v := chip.lines[lineKey{relay.PortA, 6}].value; v != 1 {
		t.Errorf("PA6: got %d, want 1", v)
	}
	if v := chip.lines[lineKey{relay.PortB, 4}].value; v != 1 {
		t.Errorf("PB4: got %d, want 1", v)
	}

	buf, _, err := d.ReadStatus(relay.PortA)
	if err != nil {
		t.Fatalf("ReadStatus: %v", err)
	}
	// Pins 6 and 7 are driven but not in the status table
	if buf != [relay.StatusSize]byte{0: relay.StatusTag} {
		t.Errorf("status: got % X", buf)
	}
}

func TestLineBankRequestsOnce(t *testing.T) {
	chip := newFakeChip(relay.PortA)
	b := newLineBank(chip.open)

	b.Write(relay.PortA, 6, relay.High)
	b.Write(relay.PortA, 6, relay.Low)
	b.ConfigureOutput(relay.PortA, 6)

	if len(chip.requests) != 1 {
		t.Errorf("expected 1 line request, got %d", len(chip.requests))
	}
	if v := chip.lines[lineKey{relay.PortA, 6}].value; v != 0 {
		t.Errorf("PA6: got %d, want 0", v)
	}
}

func TestLineBankFirstWriteLevel(t *testing.T) {
	chip := newFakeChip(relay.PortA)
	b := newLineBank(chip.open)

	if err := b.Write(relay.PortA, 7, relay.High); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	odr, err := b.ODR(relay.PortA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if odr != 0x0080 {
		t.Errorf("ODR: got 0x%04X, want 0x0080", odr)
	}
}

func TestLineBankUnmappedPort(t *testing.T) {
	chip := newFakeChip(relay.PortA)
	d := relay.NewDriver(newLineBank(chip.open), nil)

	_, err := d.Execute(0xFC, 0x4F)
	if err == nil {
		t.Fatal("expected error for unmapped port C")
	}
	if errors.Is(err, relay.ErrInvalidInstruction) {
		t.Error("unmapped port is a write error, not an invalid instruction")
	}
}

func TestLineBankWriteError(t *testing.T) {
	chip := newFakeChip(relay.PortA)
	b := newLineBank(chip.open)
	b.ConfigureOutput(relay.PortA, 4)
	chip.lines[lineKey{relay.PortA, 4}].setErr = errors.New("simulated error")

	if err := b.Write(relay.PortA, 4, relay.High); err == nil {
		t.Error("expected write error")
	}
}

func TestLineBankRelease(t *testing.T) {
	chip := newFakeChip(relay.PortA)
	b := newLineBank(chip.open)
	b.Write(relay.PortA, 4, relay.High)
	b.Write(relay.PortA, 5, relay.High)

	if errs := b.release(); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	for key, l := range chip.lines {
		if l.value != 0 || !l.closed {
			t.Errorf("P%s%d: value=%d closed=%v, want low and closed", key.port, key.pin, l.value, l.closed)
		}
	}
	if odr, _ := b.ODR(relay.PortA); odr != 0 {
		t.Errorf("ODR after release: got 0x%04X, want 0", odr)
	}
}
