package bitfield

import (
	"encoding/binary"
	"fmt"
)

// RawStore is the backing store of a register's raw value.
type RawStore interface {
	Load() (uint32, error)
	Store(raw uint32) error
}

// Value holds a raw value in memory. The zero Value holds nothing.
type Value struct {
	raw   uint32
	valid bool
}

// NewValue returns a Value holding raw.
func NewValue(raw uint32) *Value {
	return &Value{raw: raw, valid: true}
}

// Load returns the held value or ErrRawNotSet.
func (v *Value) Load() (uint32, error) {
	if !v.valid {
		return 0, ErrRawNotSet
	}
	return v.raw, nil
}

// Store replaces the held value. It never fails.
func (v *Value) Store(raw uint32) error {
	v.set(raw)
	return nil
}

func (v *Value) set(raw uint32) {
	v.raw = raw
	v.valid = true
}

// Valid reports whether a value is held.
func (v *Value) Valid() bool { return v.valid }

// Clear drops the held value.
func (v *Value) Clear() {
	v.raw = 0
	v.valid = false
}

// DeviceRegister reads and writes a register through a MemoryDriver. Every
// Load and Store is exactly one driver call.
type DeviceRegister struct {
	drv     MemoryDriver
	address uint32
	bits    uint32
}

// NewDeviceRegister binds a register of the given width to address. The
// width must be a whole number of bytes.
func NewDeviceRegister(drv MemoryDriver, address, bits uint32) (*DeviceRegister, error) {
	if bits == 0 || bits > MaxBits || bits%8 != 0 {
		return nil, fmt.Errorf("%w: device register width %d is not 8, 16, 24 or 32", ErrConfiguration, bits)
	}
	if drv == nil {
		return nil, fmt.Errorf("%w: nil memory driver", ErrConfiguration)
	}
	return &DeviceRegister{drv: drv, address: address, bits: bits}, nil
}

// Address returns the register address.
func (r *DeviceRegister) Address() uint32 { return r.address }

// Bits returns the register width.
func (r *DeviceRegister) Bits() uint32 { return r.bits }

// word reports whether the 32-bit access path applies.
func (r *DeviceRegister) word() bool {
	return r.address%4 == 0 && r.bits == 32
}

// Load reads the register from the device.
func (r *DeviceRegister) Load() (uint32, error) {
	if r.word() {
		return r.drv.GetMem32(r.address)
	}
	size := r.bits / 8
	data, err := r.drv.ReadMem(r.address, size)
	if err != nil {
		return 0, err
	}
	if uint32(len(data)) < size {
		return 0, fmt.Errorf("%w: got %d of %d bytes at 0x%08x", ErrShortRead, len(data), size, r.address)
	}
	var buf [4]byte
	copy(buf[:], data[:size])
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// Store writes raw to the device.
func (r *DeviceRegister) Store(raw uint32) error {
	if r.word() {
		return r.drv.SetMem32(r.address, raw)
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], raw)
	return r.drv.WriteMem(r.address, buf[:r.bits/8])
}

var (
	_ RawStore = (*Value)(nil)
	_ RawStore = (*DeviceRegister)(nil)
)
