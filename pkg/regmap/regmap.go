package regmap

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/swdkit/swd-go/pkg/bitfield"
	"gopkg.in/yaml.v3"
)

// RawMap is a register map as written in YAML.
type RawMap struct {
	Device      string        `yaml:"device"`
	Description string        `yaml:"description"`
	Registers   []RawRegister `yaml:"registers"`
}

// RawRegister is one register entry.
type RawRegister struct {
	Name        string     `yaml:"name"`
	Address     uint32     `yaml:"address"`
	Bits        uint32     `yaml:"bits"` // 32 when omitted
	Reset       uint32     `yaml:"reset"`
	Description string     `yaml:"description"`
	Fields      []RawField `yaml:"fields"`
}

// RawField is one field; an entry without a name is padding.
type RawField struct {
	Name   string          `yaml:"name"`
	Width  uint32          `yaml:"width"`
	Values []RawFieldValue `yaml:"values"`
}

// RawFieldValue names one value of a field.
type RawFieldValue struct {
	Value uint32 `yaml:"value"`
	Name  string `yaml:"name"`
}

// RegisterDef is a validated register.
type RegisterDef struct {
	Name        string
	Address     uint32
	Reset       uint32
	Description string
	Set         *bitfield.FieldSet
}

// Bits returns the register width.
func (r *RegisterDef) Bits() uint32 { return r.Set.Bits() }

// ResetBytes returns the reset value as it appears in target memory.
func (r *RegisterDef) ResetBytes() []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], r.Reset)
	return buf[:r.Bits()/8]
}

// Map is a validated register map for one device.
type Map struct {
	Device      string
	Description string

	registers []*RegisterDef
	byName    map[string]*RegisterDef
}

// Parse parses and validates a register map from YAML bytes.
func Parse(data []byte) (*Map, error) {
	var raw RawMap
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &LoadError{Message: "failed to parse YAML", Cause: err}
	}
	return Build(&raw)
}

// Build validates a decoded map.
func Build(raw *RawMap) (*Map, error) {
	if raw.Device == "" {
		return nil, &LoadError{Message: "device is required"}
	}
	if len(raw.Registers) == 0 {
		return nil, &LoadError{Message: "map must have at least one register"}
	}

	m := &Map{
		Device:      raw.Device,
		Description: raw.Description,
		byName:      make(map[string]*RegisterDef, len(raw.Registers)),
	}
	for i := range raw.Registers {
		def, err := buildRegister(&raw.Registers[i])
		if err != nil {
			return nil, err
		}
		if _, dup := m.byName[def.Name]; dup {
			return nil, &LoadError{Register: def.Name, Message: "duplicate register", Cause: bitfield.ErrConfiguration}
		}
		m.registers = append(m.registers, def)
		m.byName[def.Name] = def
	}
	return m, nil
}

func buildRegister(r *RawRegister) (*RegisterDef, error) {
	if r.Name == "" {
		return nil, &LoadError{Message: fmt.Sprintf("register at 0x%08x has no name", r.Address)}
	}
	bits := r.Bits
	if bits == 0 {
		bits = bitfield.MaxBits
	}
	if bits%8 != 0 {
		return nil, &LoadError{
			Register: r.Name,
			Message:  fmt.Sprintf("width %d is not a whole number of bytes", bits),
			Cause:    bitfield.ErrConfiguration,
		}
	}

	specs := make([]bitfield.FieldSpec, 0, len(r.Fields))
	for _, f := range r.Fields {
		values := make([]bitfield.NamedValue, 0, len(f.Values))
		for _, v := range f.Values {
			values = append(values, bitfield.V(v.Value, v.Name))
		}
		specs = append(specs, bitfield.F(f.Name, f.Width, values...))
	}

	set, err := bitfield.NewFieldSet(bits, specs)
	if err != nil {
		return nil, &LoadError{Register: r.Name, Message: "invalid layout", Cause: err}
	}
	if r.Reset&^set.Mask() != 0 {
		return nil, &LoadError{
			Register: r.Name,
			Message:  fmt.Sprintf("reset value 0x%x does not fit in %d bits", r.Reset, bits),
			Cause:    bitfield.ErrConfiguration,
		}
	}

	return &RegisterDef{
		Name:        r.Name,
		Address:     r.Address,
		Reset:       r.Reset,
		Description: r.Description,
		Set:         set,
	}, nil
}

// Load loads a register map from a file.
func Load(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{File: path, Message: "failed to read file", Cause: err}
	}

	m, err := Parse(data)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.File = path
			return nil, le
		}
		return nil, &LoadError{File: path, Message: err.Error()}
	}
	return m, nil
}

// LoadDirectory loads every map in dir.
// Only files with .yaml or .yml extensions are loaded.
func LoadDirectory(dir string) ([]*Map, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &LoadError{File: dir, Message: "failed to read directory", Cause: err}
	}

	var maps []*Map
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		m, err := Load(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		maps = append(maps, m)
	}
	return maps, nil
}

// Register returns the named register.
func (m *Map) Register(name string) (*RegisterDef, error) {
	def, ok := m.byName[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w %q", m.Device, ErrUnknownRegister, name)
	}
	return def, nil
}

// FieldSet returns the layout of the named register.
func (m *Map) FieldSet(name string) (*bitfield.FieldSet, error) {
	def, err := m.Register(name)
	if err != nil {
		return nil, err
	}
	return def.Set, nil
}

// Open binds the named register to drv.
func (m *Map) Open(drv bitfield.MemoryDriver, name string) (*bitfield.CachedBitfield, error) {
	def, err := m.Register(name)
	if err != nil {
		return nil, err
	}
	return bitfield.NewCachedBitfield(def.Name, def.Set, drv, def.Address)
}

// Names returns register names in map order.
func (m *Map) Names() []string {
	names := make([]string, len(m.registers))
	for i, r := range m.registers {
		names[i] = r.Name
	}
	return names
}

// Registers returns the registers in map order.
func (m *Map) Registers() []*RegisterDef {
	return append([]*RegisterDef(nil), m.registers...)
}

// Lookup finds the register at address.
func (m *Map) Lookup(address uint32) (*RegisterDef, bool) {
	for _, r := range m.registers {
		if r.Address == address {
			return r, true
		}
	}
	return nil, false
}
