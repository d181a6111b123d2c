package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/swdkit/swd-go/pkg/log"
)

// Framing constants.
const (
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4

	// DefaultMaxMessageSize fits a full-size transfer plus CBOR overhead.
	DefaultMaxMessageSize = 4096

	// MaxLogFrameDataSize is the maximum frame data size copied into log events.
	MaxLogFrameDataSize = 512
)

// Framing errors.
var (
	// ErrMessageTooLarge indicates the message exceeds the maximum size.
	ErrMessageTooLarge = errors.New("message too large")

	// ErrMessageEmpty indicates an empty message.
	ErrMessageEmpty = errors.New("message is empty")

	// ErrFrameTruncated indicates the peer closed mid-frame.
	ErrFrameTruncated = errors.New("frame truncated")
)

// frameTap emits transport-layer log events for frames.
type frameTap struct {
	logger    log.Logger
	sessionID string
	target    string
}

func (t *frameTap) emit(data []byte, dir log.Direction) {
	if t.logger == nil {
		return
	}
	logged := data
	truncated := false
	if len(logged) > MaxLogFrameDataSize {
		logged = logged[:MaxLogFrameDataSize]
		truncated = true
	}
	t.logger.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: t.sessionID,
		Direction: dir,
		Layer:     log.LayerTransport,
		Category:  log.CategoryAccess,
		Target:    t.target,
		Frame: &log.FrameEvent{
			Size:      FrameSize(len(data)),
			Data:      append([]byte(nil), logged...),
			Truncated: truncated,
		},
	})
}

// FrameWriter writes length-prefixed frames to an underlying writer.
type FrameWriter struct {
	w       io.Writer
	maxSize uint32
	mu      sync.Mutex
	tap     frameTap
}

// NewFrameWriter creates a frame writer. A maxSize of 0 selects
// DefaultMaxMessageSize.
func NewFrameWriter(w io.Writer, maxSize uint32) *FrameWriter {
	if maxSize == 0 {
		maxSize = DefaultMaxMessageSize
	}
	return &FrameWriter{w: w, maxSize: maxSize}
}

// SetLogger configures frame logging. Pass nil to disable it.
func (fw *FrameWriter) SetLogger(logger log.Logger, sessionID, target string) {
	fw.tap = frameTap{logger: logger, sessionID: sessionID, target: target}
}

// WriteFrame writes one frame. Safe for concurrent use.
func (fw *FrameWriter) WriteFrame(data []byte) error {
	if len(data) == 0 {
		return ErrMessageEmpty
	}
	if uint64(len(data)) > uint64(fw.maxSize) {
		return fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, len(data), fw.maxSize)
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()

	// Prefix and payload go out in one write so a frame is never split
	// across concurrent writers at the syscall level.
	buf := make([]byte, FrameSize(len(data)))
	binary.BigEndian.PutUint32(buf, uint32(len(data)))
	copy(buf[LengthPrefixSize:], data)
	if _, err := fw.w.Write(buf); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}

	fw.tap.emit(data, log.DirectionOut)
	return nil
}

// FrameReader reads length-prefixed frames from an underlying reader.
type FrameReader struct {
	r       io.Reader
	maxSize uint32
	prefix  [LengthPrefixSize]byte
	tap     frameTap
}

// NewFrameReader creates a frame reader. A maxSize of 0 selects
// DefaultMaxMessageSize.
func NewFrameReader(r io.Reader, maxSize uint32) *FrameReader {
	if maxSize == 0 {
		maxSize = DefaultMaxMessageSize
	}
	return &FrameReader{r: r, maxSize: maxSize}
}

// SetLogger configures frame logging. Pass nil to disable it.
func (fr *FrameReader) SetLogger(logger log.Logger, sessionID, target string) {
	fr.tap = frameTap{logger: logger, sessionID: sessionID, target: target}
}

// ReadFrame reads one frame and returns its payload. A clean close between
// frames yields io.EOF.
func (fr *FrameReader) ReadFrame() ([]byte, error) {
	if _, err := io.ReadFull(fr.r, fr.prefix[:]); err != nil {
		if err == io.EOF {
			return nil, err
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrFrameTruncated
		}
		return nil, fmt.Errorf("failed to read length prefix: %w", err)
	}

	length := binary.BigEndian.Uint32(fr.prefix[:])
	if length == 0 {
		return nil, ErrMessageEmpty
	}
	if length > fr.maxSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, length, fr.maxSize)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(fr.r, payload); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || err == io.EOF {
			return nil, ErrFrameTruncated
		}
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}

	fr.tap.emit(payload, log.DirectionIn)
	return payload, nil
}

// Framer combines frame reading and writing on one stream.
type Framer struct {
	*FrameReader
	*FrameWriter
}

// NewFramer creates a framer for bidirectional communication.
func NewFramer(rw io.ReadWriter, maxSize uint32) *Framer {
	return &Framer{
		FrameReader: NewFrameReader(rw, maxSize),
		FrameWriter: NewFrameWriter(rw, maxSize),
	}
}

// SetLogger configures logging for both directions.
func (f *Framer) SetLogger(logger log.Logger, sessionID, target string) {
	f.FrameReader.SetLogger(logger, sessionID, target)
	f.FrameWriter.SetLogger(logger, sessionID, target)
}

// FrameSize returns the total frame size including the length prefix.
func FrameSize(payloadSize int) int {
	return LengthPrefixSize + payloadSize
}
