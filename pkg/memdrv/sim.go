package memdrv

import (
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	"github.com/swdkit/swd-go/pkg/bitfield"
)

// DefaultMaxTransfer matches the probe limit for 32-bit block transfers.
const DefaultMaxTransfer = 1024

// Region is an address range of the simulated target.
type Region struct {
	Name    string
	Address uint32
	Size    uint32
}

// End returns the first address past the region.
func (r Region) End() uint64 {
	return uint64(r.Address) + uint64(r.Size)
}

func (r Region) contains(address, size uint32) bool {
	return address >= r.Address && uint64(address)+uint64(size) <= r.End()
}

// Stats counts driver calls.
type Stats struct {
	ReadMem  int
	WriteMem int
	GetMem32 int
	SetMem32 int
}

// Total returns the number of calls of any kind.
func (s Stats) Total() int {
	return s.ReadMem + s.WriteMem + s.GetMem32 + s.SetMem32
}

// Sim is a simulated target memory. Unwritten bytes read as zero. Sim is
// safe for concurrent use.
type Sim struct {
	mu          sync.Mutex
	mem         map[uint32]byte
	regions     []Region
	maxTransfer uint32
	stats       Stats
}

// NewSim creates a simulated target. With no regions every address is
// mapped; otherwise accesses must fall entirely inside one region.
func NewSim(regions ...Region) *Sim {
	r := append([]Region(nil), regions...)
	sort.Slice(r, func(i, j int) bool { return r[i].Address < r[j].Address })
	return &Sim{
		mem:         make(map[uint32]byte),
		regions:     r,
		maxTransfer: DefaultMaxTransfer,
	}
}

// SetMaxTransfer changes the largest ReadMem/WriteMem size.
func (s *Sim) SetMaxTransfer(n uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxTransfer = n
}

// Regions returns the mapped regions sorted by address.
func (s *Sim) Regions() []Region {
	return append([]Region(nil), s.regions...)
}

// Load stores data at address without counting an access or checking
// regions. It is meant for seeding the target.
func (s *Sim) Load(address uint32, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store(address, data)
}

// LoadWord stores a little-endian word at address, like Load.
func (s *Sim) LoadWord(address, value uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], value)
	s.Load(address, buf[:])
}

// Peek returns size bytes at address without counting an access.
func (s *Sim) Peek(address, size uint32) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetch(address, size)
}

// PeekWord returns the little-endian word at address without counting an
// access.
func (s *Sim) PeekWord(address uint32) uint32 {
	return binary.LittleEndian.Uint32(s.Peek(address, 4))
}

// Stats returns the call counters.
func (s *Sim) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// ResetStats clears the call counters.
func (s *Sim) ResetStats() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = Stats{}
}

// ReadMem implements bitfield.MemoryDriver.
func (s *Sim) ReadMem(address, size uint32) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.ReadMem++

	if err := s.checkTransfer(address, size); err != nil {
		return nil, err
	}
	return s.fetch(address, size), nil
}

// WriteMem implements bitfield.MemoryDriver.
func (s *Sim) WriteMem(address uint32, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.WriteMem++

	if err := s.checkTransfer(address, uint32(len(data))); err != nil {
		return err
	}
	s.store(address, data)
	return nil
}

// GetMem32 implements bitfield.MemoryDriver.
func (s *Sim) GetMem32(address uint32) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.GetMem32++

	if err := s.checkWord(address); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(s.fetch(address, 4)), nil
}

// SetMem32 implements bitfield.MemoryDriver.
func (s *Sim) SetMem32(address, value uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.SetMem32++

	if err := s.checkWord(address); err != nil {
		return err
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], value)
	s.store(address, buf[:])
	return nil
}

func (s *Sim) checkTransfer(address, size uint32) error {
	if size == 0 {
		return fmt.Errorf("%w at 0x%08x", ErrEmptyTransfer, address)
	}
	if size > s.maxTransfer {
		return fmt.Errorf("%w: %d bytes (maximum is %d)", ErrTooLarge, size, s.maxTransfer)
	}
	return s.checkMapped(address, size)
}

func (s *Sim) checkWord(address uint32) error {
	if address%4 != 0 {
		return fmt.Errorf("%w: address 0x%08x is not aligned to 4 bytes", ErrAlignment, address)
	}
	return s.checkMapped(address, 4)
}

func (s *Sim) checkMapped(address, size uint32) error {
	if uint64(address)+uint64(size) > 1<<32 {
		return fmt.Errorf("%w: 0x%08x+%d wraps the address space", ErrAccessFault, address, size)
	}
	if len(s.regions) == 0 {
		return nil
	}
	for _, r := range s.regions {
		if r.contains(address, size) {
			return nil
		}
	}
	return fmt.Errorf("%w: 0x%08x+%d is not mapped", ErrAccessFault, address, size)
}

func (s *Sim) fetch(address, size uint32) []byte {
	out := make([]byte, size)
	for i := range out {
		out[i] = s.mem[address+uint32(i)]
	}
	return out
}

func (s *Sim) store(address uint32, data []byte) {
	for i, b := range data {
		s.mem[address+uint32(i)] = b
	}
}

// Compile-time interface satisfaction check.
var _ bitfield.MemoryDriver = (*Sim)(nil)
