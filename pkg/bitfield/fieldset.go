package bitfield

import "fmt"

// MaxBits is the widest register a FieldSet can describe.
const MaxBits = 32

// FieldSpec is one entry of a register descriptor. An empty Name reserves
// Width padding bits with no accessor.
type FieldSpec struct {
	Name   string
	Width  uint32
	Values []NamedValue
}

// F describes a named field.
func F(name string, width uint32, values ...NamedValue) FieldSpec {
	return FieldSpec{Name: name, Width: width, Values: values}
}

// Pad describes width reserved bits.
func Pad(width uint32) FieldSpec {
	return FieldSpec{Width: width}
}

// FieldSet is the immutable layout of a register: its width and its named
// fields.
type FieldSet struct {
	bits   uint32
	fields map[string]*Field
	order  []string
}

// NewFieldSet lays out specs from bit 0 upwards and verifies that their
// widths add up to bits. Any descriptor problem wraps ErrConfiguration.
func NewFieldSet(bits uint32, specs []FieldSpec) (*FieldSet, error) {
	if bits == 0 || bits > MaxBits {
		return nil, fmt.Errorf("%w: register width %d outside 1..%d", ErrConfiguration, bits, MaxBits)
	}

	s := &FieldSet{
		bits:   bits,
		fields: make(map[string]*Field, len(specs)),
	}

	var offset uint32
	for _, spec := range specs {
		if spec.Name != "" {
			if spec.Width == 0 {
				return nil, fmt.Errorf("%w: field %s has zero width", ErrConfiguration, spec.Name)
			}
			if _, dup := s.fields[spec.Name]; dup {
				return nil, fmt.Errorf("%w: duplicate field %s", ErrConfiguration, spec.Name)
			}
			names, err := NewNameTable(spec.Values...)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", spec.Name, err)
			}
			for _, e := range spec.Values {
				if e.Value > lowMask(spec.Width) {
					return nil, fmt.Errorf("%w: field %s value %d (%s) exceeds %d bits",
						ErrConfiguration, spec.Name, e.Value, e.Name, spec.Width)
				}
			}
			s.fields[spec.Name] = newField(spec.Name, offset, spec.Width, bits, names)
			s.order = append(s.order, spec.Name)
		} else if len(spec.Values) > 0 {
			return nil, fmt.Errorf("%w: padding at bit %d has value names", ErrConfiguration, offset)
		}
		offset += spec.Width
		if offset > bits {
			break
		}
	}

	if offset != bits {
		return nil, fmt.Errorf("%w: invalid number of bits (%d, expected %d)", ErrConfiguration, sumWidths(specs), bits)
	}
	return s, nil
}

// MustFieldSet is like NewFieldSet but panics on error. It is intended for
// static register tables.
func MustFieldSet(bits uint32, specs []FieldSpec) *FieldSet {
	s, err := NewFieldSet(bits, specs)
	if err != nil {
		panic(err)
	}
	return s
}

func sumWidths(specs []FieldSpec) uint64 {
	var n uint64
	for _, spec := range specs {
		n += uint64(spec.Width)
	}
	return n
}

// Bits returns the register width.
func (s *FieldSet) Bits() uint32 { return s.bits }

// Mask returns a value with all register bits set.
func (s *FieldSet) Mask() uint32 { return lowMask(s.bits) }

// Field returns the named field.
func (s *FieldSet) Field(name string) (*Field, error) {
	f, ok := s.fields[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	return f, nil
}

// Names returns the field names in descriptor order.
func (s *FieldSet) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// EncodeFields builds a fresh raw value from values. Fields not present in
// values contribute zero bits; nothing is merged with an existing register.
func (s *FieldSet) EncodeFields(values map[string]any) (uint32, error) {
	var raw uint32
	for name, v := range values {
		f, err := s.Field(name)
		if err != nil {
			return 0, err
		}
		bits, err := f.Encode(v)
		if err != nil {
			return 0, err
		}
		raw |= bits
	}
	return raw, nil
}

// FieldValue is the decoded state of one field.
type FieldValue struct {
	Name  string
	Value uint32
	Hex   string
	// Label is the symbolic name of Value, empty if it has none.
	Label string
}

// Describe decodes every field of raw in descriptor order.
func (s *FieldSet) Describe(raw uint32) []FieldValue {
	out := make([]FieldValue, 0, len(s.order))
	for _, name := range s.order {
		f := s.fields[name]
		v := f.Decode(raw)
		label, _ := f.names.Name(v)
		out = append(out, FieldValue{
			Name:  name,
			Value: v,
			Hex:   f.Hex(raw),
			Label: label,
		})
	}
	return out
}
