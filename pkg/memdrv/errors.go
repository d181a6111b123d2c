package memdrv

import "errors"

var (
	// ErrAccessFault indicates an access outside every mapped region.
	ErrAccessFault = errors.New("access fault")

	// ErrAlignment indicates a 32-bit access to an unaligned address.
	ErrAlignment = errors.New("unaligned access")

	// ErrTooLarge indicates a transfer longer than the driver allows.
	ErrTooLarge = errors.New("transfer too large")

	// ErrEmptyTransfer indicates a zero-length transfer.
	ErrEmptyTransfer = errors.New("empty transfer")
)
