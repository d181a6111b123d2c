package bitfield

// Bitfield binds a FieldSet to a raw value source.
type Bitfield struct {
	set   *FieldSet
	store RawStore
}

// New returns a Bitfield holding raw in memory.
func New(set *FieldSet, raw uint32) *Bitfield {
	return &Bitfield{set: set, store: NewValue(raw)}
}

// NewEmpty returns an in-memory Bitfield with no raw value. Reads fail with
// ErrRawNotSet until a value is set with SetRaw.
func NewEmpty(set *FieldSet) *Bitfield {
	return &Bitfield{set: set, store: &Value{}}
}

// NewWithStore returns a Bitfield backed by store.
func NewWithStore(set *FieldSet, store RawStore) *Bitfield {
	return &Bitfield{set: set, store: store}
}

// FieldSet returns the register layout.
func (b *Bitfield) FieldSet() *FieldSet { return b.set }

// Raw returns the full raw value.
func (b *Bitfield) Raw() (uint32, error) {
	return b.store.Load()
}

// SetRaw replaces the full raw value.
func (b *Bitfield) SetRaw(raw uint32) error {
	return b.store.Store(raw)
}

// Get returns the numeric value of a field.
func (b *Bitfield) Get(field string) (uint32, error) {
	f, err := b.set.Field(field)
	if err != nil {
		return 0, err
	}
	raw, err := b.store.Load()
	if err != nil {
		return 0, err
	}
	return f.Decode(raw), nil
}

// GetNamed returns the symbolic value of a field; see Field.DecodeNamed.
func (b *Bitfield) GetNamed(field string, fallback bool) (any, error) {
	f, err := b.set.Field(field)
	if err != nil {
		return nil, err
	}
	raw, err := b.store.Load()
	if err != nil {
		return nil, err
	}
	return f.DecodeNamed(raw, fallback), nil
}

// Hex returns a field value formatted by Field.Hex.
func (b *Bitfield) Hex(field string) (string, error) {
	f, err := b.set.Field(field)
	if err != nil {
		return "", err
	}
	raw, err := b.store.Load()
	if err != nil {
		return "", err
	}
	return f.Hex(raw), nil
}

// Set updates one field and preserves all other bits: one Load and one
// Store. The value is encoded before the store is read, so an invalid value
// causes no access at all.
func (b *Bitfield) Set(field string, v any) error {
	f, err := b.set.Field(field)
	if err != nil {
		return err
	}
	bits, err := f.Encode(v)
	if err != nil {
		return err
	}
	raw, err := b.store.Load()
	if err != nil {
		return err
	}
	return b.store.Store((raw & f.InverseMask()) | bits)
}

// SetBits overwrites the whole raw value with FieldSet.EncodeFields(values).
// The previous content is not read.
func (b *Bitfield) SetBits(values map[string]any) error {
	raw, err := b.set.EncodeFields(values)
	if err != nil {
		return err
	}
	return b.store.Store(raw)
}

// Describe decodes all fields of the current raw value.
func (b *Bitfield) Describe() ([]FieldValue, error) {
	raw, err := b.store.Load()
	if err != nil {
		return nil, err
	}
	return b.set.Describe(raw), nil
}
