package wire

// Status represents a response status code.
type Status uint8

const (
	// StatusSuccess indicates the access completed.
	StatusSuccess Status = 0

	// StatusInvalidRequest indicates a malformed request.
	StatusInvalidRequest Status = 1

	// StatusAccessFault indicates the address is not mapped on the target.
	StatusAccessFault Status = 2

	// StatusAlignment indicates an address or size violates the access
	// alignment.
	StatusAlignment Status = 3

	// StatusTooLarge indicates the transfer exceeds the probe limit.
	StatusTooLarge Status = 4

	// StatusInternal indicates any other driver failure.
	StatusInternal Status = 5
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusInvalidRequest:
		return "INVALID_REQUEST"
	case StatusAccessFault:
		return "ACCESS_FAULT"
	case StatusAlignment:
		return "ALIGNMENT"
	case StatusTooLarge:
		return "TOO_LARGE"
	case StatusInternal:
		return "INTERNAL"
	default:
		return "UNKNOWN"
	}
}

// IsSuccess returns true if the status indicates success.
func (s Status) IsSuccess() bool {
	return s == StatusSuccess
}
