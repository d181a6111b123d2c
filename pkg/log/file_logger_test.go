package log

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/swdkit/swd-go/pkg/wire"
)

func TestFileLoggerWritesCBOR(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.swdlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	value := uint32(0x00000416)
	event := Event{
		Timestamp: time.Now(),
		SessionID: "sess-123",
		Direction: DirectionIn,
		Layer:     LayerDriver,
		Category:  CategoryAccess,
		Target:    "STM32L1",
		Access: &AccessEvent{
			Operation: wire.OpGetMem32,
			Address:   0xe0042000,
			Size:      4,
			Value:     &value,
		},
	}

	logger.Log(event)
	logger.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	dec := NewDecoder(bytes.NewReader(data))
	var hdr FileHeader
	if err := dec.Decode(&hdr); err != nil {
		t.Fatalf("failed to decode header: %v", err)
	}
	if hdr.Format != FormatName || hdr.Version != FormatVersion {
		t.Errorf("header: got %+v", hdr)
	}
	var decoded Event
	if err := dec.Decode(&decoded); err != nil {
		t.Fatalf("failed to decode event: %v", err)
	}

	if decoded.SessionID != event.SessionID || decoded.Target != "STM32L1" {
		t.Errorf("got %+v", decoded)
	}
	if decoded.Access == nil {
		t.Fatal("Access is nil")
	}
	if decoded.Access.Address != 0xe0042000 || decoded.Access.Value == nil || *decoded.Access.Value != value {
		t.Errorf("Access: got %+v", decoded.Access)
	}
	if !decoded.Timestamp.Equal(event.Timestamp) {
		t.Errorf("Timestamp: got %v, want %v", decoded.Timestamp, event.Timestamp)
	}
}

func TestFileLoggerAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.swdlog")

	for i := 0; i < 2; i++ {
		logger, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("NewFileLogger failed: %v", err)
		}
		logger.Log(Event{Timestamp: time.Now(), SessionID: "s"})
		logger.Close()
	}

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	count := 0
	for {
		_, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		count++
	}
	if count != 2 {
		t.Errorf("got %d events, want 2", count)
	}
}

func TestFileLoggerCloseTwiceAndLogAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.swdlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}

	logger.Log(Event{SessionID: "ignored"})

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	header, _ := logEncMode.Marshal(FileHeader{Format: FormatName, Version: FormatVersion})
	if info.Size() != int64(len(header)) {
		t.Errorf("file size = %d, want header only (%d)", info.Size(), len(header))
	}
}

func TestFileLoggerConcurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.swdlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				logger.Log(Event{
					Timestamp: time.Now(),
					SessionID: "s",
					Access:    &AccessEvent{Operation: wire.OpReadMem, Address: uint32(i*100 + j), Size: 1},
				})
			}
		}(i)
	}
	wg.Wait()
	logger.Close()

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	count := 0
	for {
		if _, err := reader.Next(); err != nil {
			if err != io.EOF {
				t.Fatalf("Next failed: %v", err)
			}
			break
		}
		count++
	}
	if count != 200 {
		t.Errorf("got %d events, want 200", count)
	}
}

func TestFileLoggerBuffersAccessEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.swdlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer logger.Close()

	countEvents := func() int {
		r, err := NewReader(path)
		if err != nil {
			t.Fatalf("NewReader failed: %v", err)
		}
		defer r.Close()
		n := 0
		for {
			if _, err := r.Next(); err != nil {
				return n
			}
			n++
		}
	}

	logger.Log(Event{SessionID: "s", Category: CategoryAccess, Access: &AccessEvent{Operation: wire.OpGetMem32}})
	if n := countEvents(); n != 0 {
		t.Errorf("before flush: got %d events, want 0", n)
	}

	logger.Log(Event{SessionID: "s", Category: CategoryState, StateChange: &StateChangeEvent{NewState: "CLOSED"}})
	if n := countEvents(); n != 2 {
		t.Errorf("after state event: got %d events, want 2", n)
	}

	logger.Log(Event{SessionID: "s", Category: CategoryAccess, Access: &AccessEvent{Operation: wire.OpSetMem32}})
	if err := logger.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if n := countEvents(); n != 3 {
		t.Errorf("after Flush: got %d events, want 3", n)
	}
	if logger.Dropped() != 0 {
		t.Errorf("Dropped = %d, want 0", logger.Dropped())
	}
}

func TestReaderChecksHeader(t *testing.T) {
	dir := t.TempDir()

	t.Run("not a log", func(t *testing.T) {
		path := filepath.Join(dir, "text.swdlog")
		if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := NewReader(path); !errors.Is(err, ErrNotLogFile) {
			t.Errorf("got %v, want ErrNotLogFile", err)
		}
	})

	t.Run("headerless events", func(t *testing.T) {
		data, err := EncodeEvent(Event{SessionID: "s"})
		if err != nil {
			t.Fatal(err)
		}
		path := filepath.Join(dir, "raw.swdlog")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := NewReader(path); !errors.Is(err, ErrNotLogFile) {
			t.Errorf("got %v, want ErrNotLogFile", err)
		}
	})

	t.Run("newer version", func(t *testing.T) {
		data, _ := logEncMode.Marshal(FileHeader{Format: FormatName, Version: FormatVersion + 1})
		path := filepath.Join(dir, "v2.swdlog")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := NewReader(path); !errors.Is(err, ErrUnsupportedVersion) {
			t.Errorf("got %v, want ErrUnsupportedVersion", err)
		}
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(dir, "empty.swdlog")
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			t.Fatal(err)
		}
		r, err := NewReader(path)
		if err != nil {
			t.Fatalf("NewReader failed: %v", err)
		}
		defer r.Close()
		if _, err := r.Next(); err != io.EOF {
			t.Errorf("Next: got %v, want io.EOF", err)
		}
	})
}
