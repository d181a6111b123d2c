package device

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Size units.
const (
	KiB = 1024
	MiB = 1024 * KiB
)

// Kind classifies a memory region.
type Kind string

// Region kinds.
const (
	KindFlash  Kind = "FLASH"
	KindSRAM   Kind = "SRAM"
	KindEEPROM Kind = "EEPROM"
	KindOTP    Kind = "OTP"
)

// IsValid returns true for a known kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindFlash, KindSRAM, KindEEPROM, KindOTP:
		return true
	}
	return false
}

// UnmarshalYAML accepts kind names case-insensitively.
func (k *Kind) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	kind := Kind(strings.ToUpper(s))
	if !kind.IsValid() {
		return fmt.Errorf("line %d: unknown memory kind %q", node.Line, s)
	}
	*k = kind
	return nil
}

// Region is one memory area of an MCU.
type Region struct {
	// Name defaults to the kind.
	Name     string
	Kind     Kind
	Address  uint32
	Size     uint32
	PageSize uint32
}

// End returns the first address past the region.
func (r Region) End() uint64 { return uint64(r.Address) + uint64(r.Size) }

// MCU is one part number.
type MCU struct {
	Name          string
	DevID         uint16
	FlashSizeReg  uint32
	Memory        []Region
	FreqMHz       uint32
	FlashPageSize uint32
	SVDFile       string
}

// Regions returns the regions of the given kind.
func (m *MCU) Regions(kind Kind) []Region {
	var out []Region
	for _, r := range m.Memory {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// FlashSize returns the total flash size in bytes.
func (m *MCU) FlashSize() uint32 {
	var total uint32
	for _, r := range m.Regions(KindFlash) {
		total += r.Size
	}
	return total
}

// Family groups MCUs identified through the same IDCODE register.
type Family struct {
	Name         string
	IDCodeReg    uint32
	FlashSizeReg uint32
	FreqMHz      uint32
	MCUs         []*MCU
}

// ByDevID returns the MCUs with the given device ID.
func (f *Family) ByDevID(devID uint16) []*MCU {
	var out []*MCU
	for _, m := range f.MCUs {
		if m.DevID == devID {
			out = append(out, m)
		}
	}
	return out
}

// Lookup returns the MCUs matching a device ID and flash size in KiB. Some
// part numbers share both, so more than one MCU may match.
func (f *Family) Lookup(devID uint16, flashKiB uint32) []*MCU {
	var out []*MCU
	for _, m := range f.ByDevID(devID) {
		if m.FlashSize() == flashKiB*KiB {
			out = append(out, m)
		}
	}
	return out
}

// MCU returns the part with the given name.
func (f *Family) MCU(name string) (*MCU, bool) {
	for _, m := range f.MCUs {
		if strings.EqualFold(m.Name, name) {
			return m, true
		}
	}
	return nil, false
}
