package wire

// Operation is a memory access operation.
type Operation uint8

const (
	// OpReadMem reads a byte range.
	OpReadMem Operation = 1

	// OpWriteMem writes a byte range.
	OpWriteMem Operation = 2

	// OpGetMem32 reads one aligned 32-bit word.
	OpGetMem32 Operation = 3

	// OpSetMem32 writes one aligned 32-bit word.
	OpSetMem32 Operation = 4
)

// String returns the operation name.
func (o Operation) String() string {
	switch o {
	case OpReadMem:
		return "ReadMem"
	case OpWriteMem:
		return "WriteMem"
	case OpGetMem32:
		return "GetMem32"
	case OpSetMem32:
		return "SetMem32"
	default:
		return "Unknown"
	}
}

// IsValid returns true if the operation is known.
func (o Operation) IsValid() bool {
	return o >= OpReadMem && o <= OpSetMem32
}

// IsWrite returns true for operations that modify target memory.
func (o Operation) IsWrite() bool {
	return o == OpWriteMem || o == OpSetMem32
}
