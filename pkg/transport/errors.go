package transport

import (
	"errors"
	"fmt"

	"github.com/swdkit/swd-go/pkg/bitfield"
	"github.com/swdkit/swd-go/pkg/memdrv"
	"github.com/swdkit/swd-go/pkg/wire"
)

// Transport errors.
var (
	// ErrConnectionClosed indicates use of a closed client.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrTimeout indicates the server did not answer in time.
	ErrTimeout = errors.New("request timed out")

	// ErrRemote wraps every failure status reported by a server.
	ErrRemote = errors.New("remote error")

	// ErrUnexpectedResponse indicates a response for a different request.
	ErrUnexpectedResponse = errors.New("unexpected response")

	// ErrServerRunning indicates Start on a running server.
	ErrServerRunning = errors.New("server already running")
)

// StatusFor maps a driver error to the status sent on the wire.
func StatusFor(err error) wire.Status {
	switch {
	case err == nil:
		return wire.StatusSuccess
	case errors.Is(err, memdrv.ErrAccessFault):
		return wire.StatusAccessFault
	case errors.Is(err, memdrv.ErrAlignment):
		return wire.StatusAlignment
	case errors.Is(err, memdrv.ErrTooLarge):
		return wire.StatusTooLarge
	case errors.Is(err, memdrv.ErrEmptyTransfer):
		return wire.StatusInvalidRequest
	default:
		return wire.StatusInternal
	}
}

// ErrorFor rebuilds a client-side error from a failure response. The
// result wraps ErrRemote and, where one exists, the matching memdrv
// sentinel so callers can test it with errors.Is as if the driver were
// local.
func ErrorFor(status wire.Status, message string) error {
	var cause error
	switch status {
	case wire.StatusSuccess:
		return nil
	case wire.StatusAccessFault:
		cause = memdrv.ErrAccessFault
	case wire.StatusAlignment:
		cause = memdrv.ErrAlignment
	case wire.StatusTooLarge:
		cause = memdrv.ErrTooLarge
	case wire.StatusInvalidRequest:
		cause = errors.New("invalid request")
	default:
		cause = errors.New(status.String())
	}
	if message == "" {
		return fmt.Errorf("%w: %w", ErrRemote, cause)
	}
	return fmt.Errorf("%w: %w: %s", ErrRemote, cause, message)
}

// shortRead reports a response carrying fewer bytes than requested.
func shortRead(address uint32, got, want int) error {
	return fmt.Errorf("%w: 0x%08x returned %d of %d bytes", bitfield.ErrShortRead, address, got, want)
}
