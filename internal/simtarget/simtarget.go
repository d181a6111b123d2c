// Package simtarget builds simulated targets from register maps and MCU
// tables.
package simtarget

import (
	"fmt"

	"github.com/swdkit/swd-go/pkg/bitfield"
	"github.com/swdkit/swd-go/pkg/device"
	"github.com/swdkit/swd-go/pkg/memdrv"
	"github.com/swdkit/swd-go/pkg/regmap"
)

// Config describes the simulated target.
type Config struct {
	// Registers are mapped and seeded with their reset values.
	Registers *regmap.Map

	// Family and MCU, when set, map the MCU's memories and make the
	// IDCODE and flash size registers identify it.
	Family *device.Family
	MCU    *device.MCU

	// RevID is reported in IDCODE when MCU is set.
	RevID uint16
}

// New creates and seeds a simulated target.
func New(config Config) (*memdrv.Sim, error) {
	var regions []memdrv.Region
	if config.Registers != nil {
		for _, r := range config.Registers.Registers() {
			regions = append(regions, memdrv.Region{
				Name:    r.Name,
				Address: r.Address,
				Size:    r.Bits() / 8,
			})
		}
	}

	if config.MCU != nil {
		if config.Family == nil {
			return nil, fmt.Errorf("MCU %s requires a family", config.MCU.Name)
		}
		for _, m := range config.MCU.Memory {
			regions = append(regions, memdrv.Region{Name: m.Name, Address: m.Address, Size: m.Size})
		}
		regions = appendMissing(regions, config.Family.IDCodeReg, 4, "IDCODE")
		regions = appendMissing(regions, config.MCU.FlashSizeReg, 2, "FLASH_SIZE")
	}

	sim := memdrv.NewSim(regions...)

	if config.Registers != nil {
		Seed(sim, config.Registers)
	}
	if config.MCU != nil {
		if err := seedIdentity(sim, config); err != nil {
			return nil, err
		}
	}
	return sim, nil
}

// Seed loads every register's reset value into sim.
func Seed(sim *memdrv.Sim, regs *regmap.Map) {
	for _, r := range regs.Registers() {
		sim.Load(r.Address, r.ResetBytes())
	}
}

func seedIdentity(sim *memdrv.Sim, config Config) error {
	fam, mcu := config.Family, config.MCU

	idcode := bitfield.New(device.IDCodeFields, sim.PeekWord(fam.IDCodeReg))
	if err := idcode.SetBits(map[string]any{
		"DEV_ID": uint32(mcu.DevID),
		"REV_ID": uint32(config.RevID),
	}); err != nil {
		return fmt.Errorf("IDCODE: %w", err)
	}
	raw, _ := idcode.Raw()
	sim.LoadWord(fam.IDCodeReg, raw)

	size := bitfield.New(device.FlashSizeFields, 0)
	if err := size.Set("SIZE", mcu.FlashSize()/device.KiB); err != nil {
		return fmt.Errorf("flash size: %w", err)
	}
	raw, _ = size.Raw()
	sim.Load(mcu.FlashSizeReg, []byte{byte(raw), byte(raw >> 8)})
	return nil
}

func appendMissing(regions []memdrv.Region, address, size uint32, name string) []memdrv.Region {
	for _, r := range regions {
		if address >= r.Address && uint64(address)+uint64(size) <= r.End() {
			return regions
		}
	}
	return append(regions, memdrv.Region{Name: name, Address: address, Size: size})
}
