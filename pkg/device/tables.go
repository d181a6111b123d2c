package device

import (
	"embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/swdkit/swd-go/pkg/bitfield"
	"gopkg.in/yaml.v3"
)

// ErrUnknownFamily indicates a family without a table.
var ErrUnknownFamily = errors.New("unknown MCU family")

//go:embed families/*.yaml
var familyFS embed.FS

type rawFamily struct {
	Family       string   `yaml:"family"`
	IDCodeReg    uint32   `yaml:"idcode_reg"`
	FlashSizeReg uint32   `yaml:"flash_size_reg"`
	FreqMHz      uint32   `yaml:"freq_mhz"`
	MCUs         []rawMCU `yaml:"mcus"`
}

type rawMCU struct {
	Name          string      `yaml:"name"`
	DevID         uint16      `yaml:"dev_id"`
	FlashSizeReg  uint32      `yaml:"flash_size_reg"`
	FreqMHz       uint32      `yaml:"freq_mhz"`
	FlashPageSize uint32      `yaml:"flash_page_size"`
	SVDFile       string      `yaml:"svd_file"`
	Memory        []rawRegion `yaml:"memory"`
}

type rawRegion struct {
	Name     string `yaml:"name"`
	Kind     Kind   `yaml:"kind"`
	Address  uint32 `yaml:"address"`
	SizeKiB  uint32 `yaml:"size_kib"`
	PageSize uint32 `yaml:"page_size"`
}

// ParseFamily parses a family table. MCU entries inherit the family's
// flash size register and frequency when they omit their own.
func ParseFamily(data []byte) (*Family, error) {
	var raw rawFamily
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse family: %w", err)
	}
	if raw.Family == "" {
		return nil, fmt.Errorf("%w: family name is required", bitfield.ErrConfiguration)
	}

	f := &Family{
		Name:         raw.Family,
		IDCodeReg:    raw.IDCodeReg,
		FlashSizeReg: raw.FlashSizeReg,
		FreqMHz:      raw.FreqMHz,
	}
	seen := make(map[string]bool, len(raw.MCUs))
	for _, rm := range raw.MCUs {
		if rm.Name == "" {
			return nil, fmt.Errorf("%w: %s: MCU without a name", bitfield.ErrConfiguration, f.Name)
		}
		if seen[rm.Name] {
			return nil, fmt.Errorf("%w: %s: duplicate MCU %s", bitfield.ErrConfiguration, f.Name, rm.Name)
		}
		seen[rm.Name] = true

		m := &MCU{
			Name:          rm.Name,
			DevID:         rm.DevID,
			FlashSizeReg:  rm.FlashSizeReg,
			FreqMHz:       rm.FreqMHz,
			FlashPageSize: rm.FlashPageSize,
			SVDFile:       rm.SVDFile,
		}
		if m.FlashSizeReg == 0 {
			m.FlashSizeReg = f.FlashSizeReg
		}
		if m.FreqMHz == 0 {
			m.FreqMHz = f.FreqMHz
		}
		for _, rr := range rm.Memory {
			name := rr.Name
			if name == "" {
				name = string(rr.Kind)
			}
			m.Memory = append(m.Memory, Region{
				Name:     name,
				Kind:     rr.Kind,
				Address:  rr.Address,
				Size:     rr.SizeKiB * KiB,
				PageSize: rr.PageSize,
			})
		}
		f.MCUs = append(f.MCUs, m)
	}
	return f, nil
}

var (
	familiesOnce sync.Once
	families     []*Family
	familiesErr  error
)

// Families returns the built-in families sorted by name.
func Families() ([]*Family, error) {
	familiesOnce.Do(func() {
		entries, err := familyFS.ReadDir("families")
		if err != nil {
			familiesErr = err
			return
		}
		for _, e := range entries {
			data, err := familyFS.ReadFile("families/" + e.Name())
			if err != nil {
				familiesErr = err
				return
			}
			f, err := ParseFamily(data)
			if err != nil {
				familiesErr = fmt.Errorf("%s: %w", e.Name(), err)
				return
			}
			families = append(families, f)
		}
		sort.Slice(families, func(i, j int) bool { return families[i].Name < families[j].Name })
	})
	return families, familiesErr
}

// FamilyByName returns a built-in family. The name is case-insensitive.
func FamilyByName(name string) (*Family, error) {
	all, err := Families()
	if err != nil {
		return nil, err
	}
	for _, f := range all {
		if strings.EqualFold(f.Name, name) {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownFamily, name)
}
