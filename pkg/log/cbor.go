package log

import (
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// logEncMode is the CBOR encoder mode for log events.
// Configured for nanosecond-precision timestamps and deterministic encoding.
var logEncMode cbor.EncMode

// logDecMode is the CBOR decoder mode for log events.
var logDecMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	logEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create log CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	logDecMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create log CBOR decoder mode: %v", err))
	}
}

// EncodeEvent encodes an Event to CBOR bytes.
func EncodeEvent(event Event) ([]byte, error) {
	return logEncMode.Marshal(event)
}

// NewEncoder creates a CBOR encoder for log events that writes to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return logEncMode.NewEncoder(w)
}

// NewDecoder creates a CBOR decoder for log events that reads from r.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return logDecMode.NewDecoder(r)
}

// Log files start with a header record identifying the format.
const (
	FormatName    = "swdlog"
	FormatVersion = 1
)

var (
	// ErrNotLogFile indicates a file without a valid header.
	ErrNotLogFile = errors.New("not an access log file")

	// ErrUnsupportedVersion indicates a log written by a newer format.
	ErrUnsupportedVersion = errors.New("unsupported log format version")
)

// FileHeader is the first record of every log file.
type FileHeader struct {
	Format  string `cbor:"1,keyasint"`
	Version uint8  `cbor:"2,keyasint"`
}

func writeHeader(enc *cbor.Encoder) error {
	return enc.Encode(FileHeader{Format: FormatName, Version: FormatVersion})
}

// readHeader consumes and checks the header. It returns io.EOF for an empty
// file.
func readHeader(dec *cbor.Decoder) error {
	var hdr FileHeader
	if err := dec.Decode(&hdr); err != nil {
		if err == io.EOF {
			return io.EOF
		}
		return fmt.Errorf("%w: %v", ErrNotLogFile, err)
	}
	if hdr.Format != FormatName {
		return fmt.Errorf("%w: format %q", ErrNotLogFile, hdr.Format)
	}
	if hdr.Version > FormatVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, hdr.Version)
	}
	return nil
}
