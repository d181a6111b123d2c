package bitfield

import "errors"

var (
	// ErrConfiguration indicates an invalid register descriptor. It is
	// returned at construction time and is not recoverable.
	ErrConfiguration = errors.New("invalid bitfield configuration")

	// ErrUnknownFieldValue indicates a value that cannot be encoded into a
	// field: an unsupported type or a name missing from the field's table.
	ErrUnknownFieldValue = errors.New("unknown field value")

	// ErrUnknownField indicates a field name not present in the field set.
	ErrUnknownField = errors.New("unknown field")

	// ErrCacheNotValid indicates a write-back of a cache that holds no value.
	ErrCacheNotValid = errors.New("cache is not valid")

	// ErrRawNotSet indicates a read of an in-memory value that was never set.
	ErrRawNotSet = errors.New("raw value not set")

	// ErrShortRead indicates a memory driver returned fewer bytes than the
	// register width.
	ErrShortRead = errors.New("short read from memory driver")
)
