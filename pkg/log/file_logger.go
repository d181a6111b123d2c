package log

import (
	"bufio"
	"fmt"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// FileLogger appends events to a CBOR log file. Access events are buffered;
// state and error events, Flush and Close write the buffer out.
// It is safe for concurrent use from multiple goroutines.
type FileLogger struct {
	mu      sync.Mutex
	file    *os.File
	buf     *bufio.Writer
	encoder *cbor.Encoder
	closed  bool
	dropped uint64
}

// NewFileLogger opens the log at path for appending, creating it with
// permissions 0644 and a header if it is new or empty.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	buf := bufio.NewWriter(f)
	l := &FileLogger{file: f, buf: buf, encoder: NewEncoder(buf)}
	if info.Size() == 0 {
		if err := writeHeader(l.encoder); err == nil {
			err = buf.Flush()
		}
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("write log header: %w", err)
		}
	}
	return l, nil
}

// Log writes an event to the log file.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}

	// Logging must not disrupt target access; failures are only counted.
	if err := l.encoder.Encode(event); err != nil {
		l.dropped++
		return
	}
	if event.Category != CategoryAccess {
		if err := l.buf.Flush(); err != nil {
			l.dropped++
		}
	}
}

// Flush writes buffered events to the file.
func (l *FileLogger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	return l.buf.Flush()
}

// Dropped returns the number of events that could not be written.
func (l *FileLogger) Dropped() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

// Close flushes and closes the log file. It is safe to call Close multiple
// times; later Log calls are ignored.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	flushErr := l.buf.Flush()
	if err := l.file.Close(); err != nil {
		return err
	}
	return flushErr
}

// Compile-time interface satisfaction check.
var _ Logger = (*FileLogger)(nil)
