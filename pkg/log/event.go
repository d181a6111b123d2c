package log

import (
	"time"

	"github.com/swdkit/swd-go/pkg/wire"
)

// Event is a captured memory traffic event.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the driver session or connection (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Direction of data flow relative to the target.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// Target names the device being accessed.
	Target string `cbor:"6,keyasint,omitempty"`

	// RemoteAddr is the peer address for network sessions.
	RemoteAddr string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Access      *AccessEvent      `cbor:"10,keyasint,omitempty"`
	Frame       *FrameEvent       `cbor:"11,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"13,keyasint,omitempty"`
}

// Direction indicates which way data moved.
type Direction uint8

const (
	// DirectionIn is data read from the target or received from a peer.
	DirectionIn Direction = 0
	// DirectionOut is data written to the target or sent to a peer.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates where the event was captured.
type Layer uint8

const (
	// LayerDriver is a direct MemoryDriver call.
	LayerDriver Layer = 0
	// LayerWire is a decoded protocol message.
	LayerWire Layer = 1
	// LayerTransport is the framing layer (raw bytes).
	LayerTransport Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerDriver:
		return "DRIVER"
	case LayerWire:
		return "WIRE"
	case LayerTransport:
		return "TRANSPORT"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryAccess is a memory access or a frame carrying one.
	CategoryAccess Category = 0
	// CategoryState is a state change.
	CategoryState Category = 1
	// CategoryError is a failure.
	CategoryError Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryAccess:
		return "ACCESS"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// AccessEvent captures one memory operation.
type AccessEvent struct {
	Operation wire.Operation `cbor:"1,keyasint"`

	// MessageID correlates wire requests and responses (0 at driver layer).
	MessageID uint32 `cbor:"2,keyasint,omitempty"`

	Address uint32 `cbor:"3,keyasint"`

	// Size is the number of bytes accessed.
	Size uint32 `cbor:"4,keyasint,omitempty"`

	// Data holds the bytes read or written by ReadMem/WriteMem.
	Data []byte `cbor:"5,keyasint,omitempty"`

	// Value holds the word read or written by GetMem32/SetMem32.
	Value *uint32 `cbor:"6,keyasint,omitempty"`

	// Status is set for wire responses.
	Status *wire.Status `cbor:"7,keyasint,omitempty"`

	// Duration of the access, stored as nanoseconds.
	Duration time.Duration `cbor:"8,keyasint,omitempty"`
}

// FrameEvent captures raw frame data at the transport layer.
type FrameEvent struct {
	// Size is the frame size in bytes (including length prefix).
	Size int `cbor:"1,keyasint"`

	// Data is the raw frame bytes (may be truncated for large frames).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// StateChangeEvent captures connection and session lifecycle events.
type StateChangeEvent struct {
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what changed state.
type StateEntity uint8

const (
	// StateEntityConnection is a transport connection.
	StateEntityConnection StateEntity = 0
	// StateEntitySession is a driver session.
	StateEntitySession StateEntity = 1
	// StateEntityServer is a memory server.
	StateEntityServer StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityConnection:
		return "CONNECTION"
	case StateEntitySession:
		return "SESSION"
	case StateEntityServer:
		return "SERVER"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	Layer Layer `cbor:"1,keyasint"`

	Message string `cbor:"2,keyasint"`

	// Operation that failed, if the error came from a memory access.
	Operation *wire.Operation `cbor:"3,keyasint,omitempty"`

	// Address of the failed access.
	Address *uint32 `cbor:"4,keyasint,omitempty"`

	// Context describes what was being done.
	Context string `cbor:"5,keyasint,omitempty"`
}
