package modbus

// FakeMirror records mirrored levels for test assertions.
type FakeMirror struct {
	Writes     [][]bool
	WriteError error
	Closed     bool
}

// WriteLevels records a copy of levels, or returns WriteError if set.
func (f *FakeMirror) WriteLevels(levels []bool) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	cp := make([]bool, len(levels))
	copy(cp, levels)
	f.Writes = append(f.Writes, cp)
	return nil
}

// Close marks the mirror as closed.
func (f *FakeMirror) Close() error {
	f.Closed = true
	return nil
}
