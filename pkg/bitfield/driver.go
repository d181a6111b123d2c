package bitfield

// MemoryDriver is the access path to target memory, typically a debug probe.
// Errors returned by a driver are passed to callers of this package
// unchanged.
type MemoryDriver interface {
	// ReadMem reads size bytes starting at address.
	ReadMem(address, size uint32) ([]byte, error)

	// WriteMem writes data starting at address.
	WriteMem(address uint32, data []byte) error

	// GetMem32 reads one 32-bit word with a single aligned access.
	GetMem32(address uint32) (uint32, error)

	// SetMem32 writes one 32-bit word with a single aligned access.
	SetMem32(address, value uint32) error
}
