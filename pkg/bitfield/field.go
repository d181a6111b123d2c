package bitfield

import "fmt"

// Field is one contiguous bit range inside a register. Fields are created by
// NewFieldSet and are immutable.
type Field struct {
	name    string
	offset  uint32
	width   uint32
	mask    uint32
	shifted uint32
	inverse uint32
	names   *NameTable
}

func newField(name string, offset, width, bits uint32, names *NameTable) *Field {
	mask := lowMask(width)
	shifted := mask << offset
	return &Field{
		name:    name,
		offset:  offset,
		width:   width,
		mask:    mask,
		shifted: shifted,
		inverse: lowMask(bits) ^ shifted,
		names:   names,
	}
}

// lowMask returns a value with the low n bits set.
func lowMask(n uint32) uint32 {
	return uint32((uint64(1) << n) - 1)
}

// Name returns the field name.
func (f *Field) Name() string { return f.name }

// Offset returns the bit position of the field's least significant bit.
func (f *Field) Offset() uint32 { return f.offset }

// Width returns the number of bits in the field.
func (f *Field) Width() uint32 { return f.width }

// Mask returns the unshifted field mask.
func (f *Field) Mask() uint32 { return f.mask }

// ShiftedMask returns the field mask at its position in the register.
func (f *Field) ShiftedMask() uint32 { return f.shifted }

// InverseMask returns the register bits outside the field.
func (f *Field) InverseMask() uint32 { return f.inverse }

// Names returns the field's value name table (possibly empty).
func (f *Field) Names() *NameTable { return f.names }

// Decode extracts the field's numeric value from raw.
func (f *Field) Decode(raw uint32) uint32 {
	return (raw >> f.offset) & f.mask
}

// DecodeNamed returns the symbolic name of the field's value as a string.
// When the value has no name, it returns the numeric value as a uint32 if
// fallback is set, and nil otherwise.
func (f *Field) DecodeNamed(raw uint32, fallback bool) any {
	v := f.Decode(raw)
	if name, ok := f.names.Name(v); ok {
		return name
	}
	if fallback {
		return v
	}
	return nil
}

// Encode converts v to the field's bits, shifted into position. Accepted
// inputs are any Go integer type (truncated to the field width), bool, and a
// name registered in the field's table.
func (f *Field) Encode(v any) (uint32, error) {
	n, err := f.numeric(v)
	if err != nil {
		return 0, err
	}
	return (n & f.mask) << f.offset, nil
}

func (f *Field) numeric(v any) (uint32, error) {
	switch x := v.(type) {
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case int:
		return uint32(x), nil
	case int8:
		return uint32(x), nil
	case int16:
		return uint32(x), nil
	case int32:
		return uint32(x), nil
	case int64:
		return uint32(x), nil
	case uint:
		return uint32(x), nil
	case uint8:
		return uint32(x), nil
	case uint16:
		return uint32(x), nil
	case uint32:
		return x, nil
	case uint64:
		return uint32(x), nil
	case string:
		if n, ok := f.names.Value(x); ok {
			return n, nil
		}
		return 0, fmt.Errorf("%w: %q for field %s", ErrUnknownFieldValue, x, f.name)
	default:
		return 0, fmt.Errorf("%w: %T for field %s", ErrUnknownFieldValue, v, f.name)
	}
}

// Merge replaces the field's bits in raw with the encoding of v. Bits outside
// the field are preserved.
func (f *Field) Merge(raw uint32, v any) (uint32, error) {
	bits, err := f.Encode(v)
	if err != nil {
		return 0, err
	}
	return (raw & f.inverse) | bits, nil
}

// Hex formats the field's value as a zero padded hex literal with one digit
// per started nibble of field width.
func (f *Field) Hex(raw uint32) string {
	return fmt.Sprintf("0x%0*x", int((f.width+3)/4), f.Decode(raw))
}
