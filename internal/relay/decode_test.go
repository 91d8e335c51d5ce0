package relay

import (
	"errors"
	"testing"
)

func TestDecodeExamples(t *testing.T) {
	tests := []struct {
		name       string
		peripheral byte
		pin        byte
		want       Instruction
		wantErr    bool
	}{
		{"A4 high", 0xFA, 0x4F, Instruction{Port: PortA, Pin: 4, Level: High}, false},
		{"A4 low", 0xFA, 0x40, Instruction{Port: PortA, Pin: 4, Level: Low}, false},
		{"B11 high", 0xFB, 0xBF, Instruction{Port: PortB, Pin: 11, Level: High}, false},
		{"C15 low", 0xFC, 0xF0, Instruction{Port: PortC, Pin: 15, Level: Low}, false},
		{"D9 high", 0xFD, 0x9F, Instruction{Port: PortD, Pin: 9, Level: High}, false},
		{"port E", 0xFE, 0x4F, Instruction{}, true},
		{"prefix E0", 0xEA, 0x4F, Instruction{}, true},
		{"pin 3", 0xFA, 0x3F, Instruction{}, true},
		{"level 1", 0xFA, 0x41, Instruction{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.peripheral, tt.pin)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidInstruction) {
					t.Fatalf("expected ErrInvalidInstruction, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDecodeRejectsBadPrefix(t *testing.T) {
	for p := 0; p < 256; p++ {
		if p&0xF0 == 0xF0 {
			continue
		}
		if _, err := Decode(byte(p), 0x4F); err == nil {
			t.Errorf("peripheral 0x%02X: expected failure", p)
		}
	}
}

func TestDecodeRejectsUnmappedPort(t *testing.T) {
	for low := 0; low < 16; low++ {
		_, err := Decode(byte(0xF0|low), 0x4F)
		mapped := low >= 0xA && low <= 0xD
		if mapped && err != nil {
			t.Errorf("low nibble 0x%X: unexpected error %v", low, err)
		}
		if !mapped && err == nil {
			t.Errorf("low nibble 0x%X: expected failure", low)
		}
	}
}

func TestDecodePinAllowList(t *testing.T) {
	reachable := map[uint8]bool{4: true, 5: true, 6: true, 7: true, 8: true, 9: true, 11: true, 14: true, 15: true}
	for n := 0; n < 16; n++ {
		_, err := Decode(0xFA, byte(n<<4)|0x0F)
		if reachable[uint8(n)] && err != nil {
			t.Errorf("pin %d: unexpected error %v", n, err)
		}
		if !reachable[uint8(n)] && err == nil {
			t.Errorf("pin %d: expected failure", n)
		}
	}
}

func TestDecodeRejectsBadLevel(t *testing.T) {
	for l := 1; l < 0xF; l++ {
		if _, err := Decode(0xFA, byte(0x40|l)); err == nil {
			t.Errorf("level 0x%X: expected failure", l)
		}
	}
}

// Pins 16, 17 and 60 are on the allow-list but a 4-bit pin number can
// never select them.
func TestUnreachableAllowListEntries(t *testing.T) {
	got := UnreachablePins()
	want := []uint8{16, 17, 60}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d: got %d, want %d", i, got[i], want[i])
		}
		if !AllowedPin(want[i]) {
			t.Errorf("pin %d should remain on the allow-list", want[i])
		}
	}

	for b := 0; b < 256; b++ {
		in, err := Decode(0xFA, byte(b))
		if err != nil {
			continue
		}
		if in.Pin > 15 {
			t.Errorf("pin byte 0x%02X decoded to unreachable pin %d", b, in.Pin)
		}
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	in := Instruction{Port: PortD, Pin: 14, Level: High}
	p, n, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if p != 0xFD || n != 0xEF {
		t.Fatalf("Encode: got 0x%02X 0x%02X, want 0xFD 0xEF", p, n)
	}
	got, err := Decode(p, n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != in {
		t.Errorf("got %+v, want %+v", got, in)
	}
}

func TestEncodeRejects(t *testing.T) {
	tests := []struct {
		name string
		in   Instruction
	}{
		{"unreachable pin 16", Instruction{Port: PortA, Pin: 16, Level: High}},
		{"unreachable pin 60", Instruction{Port: PortA, Pin: 60, Level: High}},
		{"pin not allowed", Instruction{Port: PortA, Pin: 3, Level: Low}},
		{"bad port", Instruction{Port: 0x0E, Pin: 4, Level: High}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Encode(tt.in)
			if !errors.Is(err, ErrInvalidInstruction) {
				t.Errorf("got %v, want ErrInvalidInstruction", err)
			}
		})
	}
}

func TestEncodeEveryAllowedPin(t *testing.T) {
	for _, port := range Ports {
		for pin := uint8(0); pin <= 0x0F; pin++ {
			if !AllowedPin(pin) {
				continue
			}
			for _, level := range []Level{Low, High} {
				in := Instruction{Port: port, Pin: pin, Level: level}
				p, n, err := Encode(in)
				if err != nil {
					t.Fatalf("%s: %v", in, err)
				}
				if got, err := Decode(p, n); err != nil || got != in {
					t.Errorf("%s: round trip got %+v, %v", in, got, err)
				}
			}
		}
	}
}

func TestParsePort(t *testing.T) {
	for _, p := range Ports {
		got, err := ParsePort(p.String())
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", p, err)
		}
		if got != p {
			t.Errorf("got %s, want %s", got, p)
		}
	}
	if _, err := ParsePort("E"); err == nil {
		t.Error("expected error for port E")
	}
}
