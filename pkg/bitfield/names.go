package bitfield

import "fmt"

// NamedValue associates a symbolic name with a numeric field value.
type NamedValue struct {
	Value uint32
	Name  string
}

// V is shorthand for a NamedValue literal in descriptor tables.
func V(value uint32, name string) NamedValue {
	return NamedValue{Value: value, Name: name}
}

// NameTable is a bidirectional mapping between field values and names.
// A nil *NameTable behaves as an empty table.
type NameTable struct {
	byValue map[uint32]string
	byName  map[string]uint32
	entries []NamedValue
}

// NewNameTable builds a table from entries. Each value and each name may
// appear only once.
func NewNameTable(entries ...NamedValue) (*NameTable, error) {
	t := &NameTable{
		byValue: make(map[uint32]string, len(entries)),
		byName:  make(map[string]uint32, len(entries)),
		entries: make([]NamedValue, 0, len(entries)),
	}
	for _, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("%w: empty name for value %d", ErrConfiguration, e.Value)
		}
		if prev, ok := t.byValue[e.Value]; ok {
			return nil, fmt.Errorf("%w: value %d named both %q and %q", ErrConfiguration, e.Value, prev, e.Name)
		}
		if prev, ok := t.byName[e.Name]; ok {
			return nil, fmt.Errorf("%w: name %q used for both %d and %d", ErrConfiguration, e.Name, prev, e.Value)
		}
		t.byValue[e.Value] = e.Name
		t.byName[e.Name] = e.Value
		t.entries = append(t.entries, e)
	}
	return t, nil
}

// Name returns the name registered for value.
func (t *NameTable) Name(value uint32) (string, bool) {
	if t == nil {
		return "", false
	}
	name, ok := t.byValue[value]
	return name, ok
}

// Value returns the value registered for name.
func (t *NameTable) Value(name string) (uint32, bool) {
	if t == nil {
		return 0, false
	}
	v, ok := t.byName[name]
	return v, ok
}

// Len returns the number of entries.
func (t *NameTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Entries returns the entries in the order they were declared.
func (t *NameTable) Entries() []NamedValue {
	if t == nil {
		return nil
	}
	out := make([]NamedValue, len(t.entries))
	copy(out, t.entries)
	return out
}
