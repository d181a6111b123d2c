package device

import (
	"errors"
	"fmt"

	"github.com/swdkit/swd-go/pkg/bitfield"
)

// ErrUnknownMCU indicates a target that matches no table entry.
var ErrUnknownMCU = errors.New("unknown MCU")

// IDCodeFields is the layout of the DBGMCU IDCODE register.
var IDCodeFields = bitfield.MustFieldSet(32, []bitfield.FieldSpec{
	bitfield.F("DEV_ID", 12),
	bitfield.Pad(4),
	bitfield.F("REV_ID", 16),
})

// FlashSizeFields is the layout of the 16-bit flash size register (KiB).
var FlashSizeFields = bitfield.MustFieldSet(16, []bitfield.FieldSpec{
	bitfield.F("SIZE", 16),
})

// Identity is the result of Identify.
type Identity struct {
	Family   *Family
	DevID    uint16
	RevID    uint16
	FlashKiB uint32

	// Candidates holds every MCU matching DevID and FlashKiB.
	Candidates []*MCU
}

// MCU returns the first candidate.
func (id *Identity) MCU() *MCU {
	if len(id.Candidates) == 0 {
		return nil
	}
	return id.Candidates[0]
}

// Identify reads the target's IDCODE and flash size and matches them
// against families (all built-in families when none are given). Families
// are tried in order and the first one with a matching MCU wins.
func Identify(drv bitfield.MemoryDriver, families ...*Family) (*Identity, error) {
	if len(families) == 0 {
		all, err := Families()
		if err != nil {
			return nil, err
		}
		families = all
	}

	idcodes := make(map[uint32]*bitfield.Bitfield)
	var seen []string
	for _, f := range families {
		idcode, ok := idcodes[f.IDCodeReg]
		if !ok {
			reg, err := bitfield.NewCachedBitfield("IDCODE", IDCodeFields, drv, f.IDCodeReg)
			if err != nil {
				return nil, err
			}
			// One device read; both fields come from the snapshot.
			if idcode, err = reg.Cached(); err != nil {
				return nil, err
			}
			idcodes[f.IDCodeReg] = idcode
		}

		devID, err := idcode.Get("DEV_ID")
		if err != nil {
			return nil, err
		}
		revID, err := idcode.Get("REV_ID")
		if err != nil {
			return nil, err
		}

		byDev := f.ByDevID(uint16(devID))
		if len(byDev) == 0 {
			seen = append(seen, fmt.Sprintf("%s dev 0x%03x", f.Name, devID))
			continue
		}

		id := &Identity{Family: f, DevID: uint16(devID), RevID: uint16(revID)}
		sizes := make(map[uint32]uint32)
		for _, m := range byDev {
			size, ok := sizes[m.FlashSizeReg]
			if !ok {
				if size, err = readFlashSize(drv, m.FlashSizeReg); err != nil {
					return nil, err
				}
				sizes[m.FlashSizeReg] = size
			}
			if m.FlashSize() == size*KiB {
				id.FlashKiB = size
				id.Candidates = append(id.Candidates, m)
			}
		}
		if len(id.Candidates) == 0 {
			seen = append(seen, fmt.Sprintf("%s dev 0x%03x with flash size %v KiB", f.Name, devID, values(sizes)))
			continue
		}
		return id, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownMCU, seen)
}

func readFlashSize(drv bitfield.MemoryDriver, address uint32) (uint32, error) {
	reg, err := bitfield.NewCachedBitfield("FLASH_SIZE", FlashSizeFields, drv, address)
	if err != nil {
		return 0, err
	}
	return reg.Get("SIZE")
}

func values(m map[uint32]uint32) []uint32 {
	out := make([]uint32, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}
