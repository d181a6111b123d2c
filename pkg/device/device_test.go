package device

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swdkit/swd-go/pkg/bitfield"
	"github.com/swdkit/swd-go/pkg/memdrv"
)

func TestBuiltinFamilies(t *testing.T) {
	all, err := Families()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "STM32F1", all[0].Name)
	assert.Equal(t, "STM32L1", all[1].Name)

	f1 := all[0]
	assert.Equal(t, uint32(0xE0042000), f1.IDCodeReg)
	assert.Equal(t, uint32(0x1FFFF7E0), f1.FlashSizeReg)
	assert.Empty(t, f1.MCUs)

	l1, err := FamilyByName("stm32l1")
	require.NoError(t, err)
	assert.Len(t, l1.MCUs, 34)

	m, ok := l1.MCU("STM32L100x6")
	require.True(t, ok)
	assert.Equal(t, uint16(0x416), m.DevID)
	assert.Equal(t, uint32(0x1FF8004C), m.FlashSizeReg)
	assert.Equal(t, uint32(32), m.FreqMHz)
	assert.Equal(t, uint32(256), m.FlashPageSize)
	assert.Equal(t, uint32(32*KiB), m.FlashSize())
	require.Len(t, m.Memory, 4)

	otp := m.Regions(KindOTP)
	require.Len(t, otp, 1)
	assert.Equal(t, "SYSTEM_MEMORY", otp[0].Name)
	assert.Equal(t, uint32(0x1FF00000), otp[0].Address)
	assert.Equal(t, "SRAM", m.Regions(KindSRAM)[0].Name)
	assert.Equal(t, uint32(256), m.Regions(KindFlash)[0].PageSize)

	_, err = FamilyByName("STM32H7")
	assert.ErrorIs(t, err, ErrUnknownFamily)
}

func TestLookup(t *testing.T) {
	l1, err := FamilyByName("STM32L1")
	require.NoError(t, err)

	got := l1.Lookup(0x416, 128)
	var names []string
	for _, m := range got {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"STM32L100xB", "STM32L151xB", "STM32L152xB"}, names)

	assert.Empty(t, l1.Lookup(0x416, 512))
	assert.Empty(t, l1.Lookup(0x999, 128))
}

func TestParseFamilyErrors(t *testing.T) {
	tests := map[string]string{
		"bad yaml":      "family: [",
		"no name":       "idcode_reg: 0xE0042000",
		"unknown kind":  "family: X\nmcus: [{name: A, memory: [{kind: ROM}]}]",
		"unnamed mcu":   "family: X\nmcus: [{dev_id: 1}]",
		"duplicate mcu": "family: X\nmcus: [{name: A}, {name: A}]",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseFamily([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestParseFamilyInheritsDefaults(t *testing.T) {
	f, err := ParseFamily([]byte(`
family: TEST
idcode_reg: 0xE0042000
flash_size_reg: 0x1FFFF7E0
freq_mhz: 72
mcus:
  - name: PART
    dev_id: 0x410
    memory:
      - {kind: flash, address: 0x08000000, size_kib: 64}
`))
	require.NoError(t, err)
	m := f.MCUs[0]
	assert.Equal(t, uint32(0x1FFFF7E0), m.FlashSizeReg)
	assert.Equal(t, uint32(72), m.FreqMHz)
	assert.Equal(t, KindFlash, m.Memory[0].Kind)
	assert.Equal(t, "FLASH", m.Memory[0].Name)
	assert.Equal(t, uint64(0x08010000), m.Memory[0].End())
}

func newTarget(idcode uint32, sizeReg uint32, flashKiB uint16) *memdrv.Sim {
	sim := memdrv.NewSim()
	sim.LoadWord(0xE0042000, idcode)
	sim.Load(sizeReg, []byte{byte(flashKiB), byte(flashKiB >> 8)})
	return sim
}

func TestIdentify(t *testing.T) {
	sim := newTarget(0x10180416, 0x1FF8004C, 64)

	id, err := Identify(sim)
	require.NoError(t, err)
	assert.Equal(t, "STM32L1", id.Family.Name)
	assert.Equal(t, uint16(0x416), id.DevID)
	assert.Equal(t, uint16(0x1018), id.RevID)
	assert.Equal(t, uint32(64), id.FlashKiB)
	require.NotNil(t, id.MCU())
	assert.Equal(t, "STM32L100x8", id.MCU().Name)
	assert.Len(t, id.Candidates, 3)

	// IDCODE is read once for both families sharing the register.
	stats := sim.Stats()
	assert.Equal(t, 1, stats.GetMem32)
	assert.Equal(t, 1, stats.ReadMem)
}

func TestIdentifyPerMCUFlashSizeRegister(t *testing.T) {
	sim := newTarget(0x10000437, 0x1FF800CC, 512)

	l1, err := FamilyByName("STM32L1")
	require.NoError(t, err)
	id, err := Identify(sim, l1)
	require.NoError(t, err)
	assert.Equal(t, "STM32L151xE", id.MCU().Name)
}

func TestIdentifyUnknown(t *testing.T) {
	_, err := Identify(newTarget(0x10000999, 0x1FF8004C, 64))
	assert.ErrorIs(t, err, ErrUnknownMCU)

	_, err = Identify(newTarget(0x10180416, 0x1FF8004C, 1000))
	assert.ErrorIs(t, err, ErrUnknownMCU)
}

func TestIdentifyDriverError(t *testing.T) {
	sim := memdrv.NewSim(memdrv.Region{Name: "SRAM", Address: 0x20000000, Size: 0x1000})
	_, err := Identify(sim)
	assert.ErrorIs(t, err, memdrv.ErrAccessFault)
}

func TestIDCodeLayout(t *testing.T) {
	b := bitfield.New(IDCodeFields, 0x20036410)
	dev, err := b.Get("DEV_ID")
	require.NoError(t, err)
	assert.Equal(t, uint32(0x410), dev)
	rev, err := b.Get("REV_ID")
	require.NoError(t, err)
	assert.Equal(t, uint32(0x2003), rev)
}

func TestIdentifyFallsThroughFamilies(t *testing.T) {
	parse := func(name string, kib int) *Family {
		f, err := ParseFamily([]byte(fmt.Sprintf(`
family: %s
idcode_reg: 0xE0042000
flash_size_reg: 0x1FFFF7E0
mcus:
  - name: %s_PART
    dev_id: 0x410
    memory:
      - {kind: flash, address: 0x08000000, size_kib: %d}
`, name, name, kib)))
		require.NoError(t, err)
		return f
	}
	small, large := parse("SMALL", 64), parse("LARGE", 128)

	id, err := Identify(newTarget(0x20000410, 0x1FFFF7E0, 128), small, large)
	require.NoError(t, err)
	assert.Equal(t, "LARGE", id.Family.Name)
	assert.Equal(t, "LARGE_PART", id.MCU().Name)
	assert.Equal(t, uint32(128), id.FlashKiB)

	_, err = Identify(newTarget(0x20000410, 0x1FFFF7E0, 256), small, large)
	assert.ErrorIs(t, err, ErrUnknownMCU)
	assert.ErrorContains(t, err, "SMALL")
	assert.ErrorContains(t, err, "LARGE")
}
