package memdrv

import (
	"time"

	"github.com/google/uuid"
	"github.com/swdkit/swd-go/pkg/bitfield"
	"github.com/swdkit/swd-go/pkg/log"
	"github.com/swdkit/swd-go/pkg/wire"
)

// Logged is a MemoryDriver decorator that records every call. Results and
// errors of the wrapped driver are returned unchanged.
type Logged struct {
	drv       bitfield.MemoryDriver
	logger    log.Logger
	target    string
	sessionID string
}

// NewLogged wraps drv. Each Logged gets its own session ID.
func NewLogged(drv bitfield.MemoryDriver, logger log.Logger, target string) *Logged {
	if logger == nil {
		logger = log.NoopLogger{}
	}
	return &Logged{
		drv:       drv,
		logger:    logger,
		target:    target,
		sessionID: uuid.New().String(),
	}
}

// SessionID returns the ID stamped on this driver's events.
func (l *Logged) SessionID() string { return l.sessionID }

// ReadMem implements bitfield.MemoryDriver.
func (l *Logged) ReadMem(address, size uint32) ([]byte, error) {
	start := time.Now()
	data, err := l.drv.ReadMem(address, size)
	if err != nil {
		l.logError(wire.OpReadMem, address, err)
		return data, err
	}
	l.logAccess(log.DirectionIn, &log.AccessEvent{
		Operation: wire.OpReadMem,
		Address:   address,
		Size:      size,
		Data:      append([]byte(nil), data...),
		Duration:  time.Since(start),
	})
	return data, nil
}

// WriteMem implements bitfield.MemoryDriver.
func (l *Logged) WriteMem(address uint32, data []byte) error {
	start := time.Now()
	if err := l.drv.WriteMem(address, data); err != nil {
		l.logError(wire.OpWriteMem, address, err)
		return err
	}
	l.logAccess(log.DirectionOut, &log.AccessEvent{
		Operation: wire.OpWriteMem,
		Address:   address,
		Size:      uint32(len(data)),
		Data:      append([]byte(nil), data...),
		Duration:  time.Since(start),
	})
	return nil
}

// GetMem32 implements bitfield.MemoryDriver.
func (l *Logged) GetMem32(address uint32) (uint32, error) {
	start := time.Now()
	value, err := l.drv.GetMem32(address)
	if err != nil {
		l.logError(wire.OpGetMem32, address, err)
		return value, err
	}
	l.logAccess(log.DirectionIn, &log.AccessEvent{
		Operation: wire.OpGetMem32,
		Address:   address,
		Size:      4,
		Value:     &value,
		Duration:  time.Since(start),
	})
	return value, nil
}

// SetMem32 implements bitfield.MemoryDriver.
func (l *Logged) SetMem32(address, value uint32) error {
	start := time.Now()
	if err := l.drv.SetMem32(address, value); err != nil {
		l.logError(wire.OpSetMem32, address, err)
		return err
	}
	l.logAccess(log.DirectionOut, &log.AccessEvent{
		Operation: wire.OpSetMem32,
		Address:   address,
		Size:      4,
		Value:     &value,
		Duration:  time.Since(start),
	})
	return nil
}

func (l *Logged) logAccess(dir log.Direction, acc *log.AccessEvent) {
	l.logger.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: l.sessionID,
		Direction: dir,
		Layer:     log.LayerDriver,
		Category:  log.CategoryAccess,
		Target:    l.target,
		Access:    acc,
	})
}

func (l *Logged) logError(op wire.Operation, address uint32, err error) {
	dir := log.DirectionIn
	if op.IsWrite() {
		dir = log.DirectionOut
	}
	l.logger.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: l.sessionID,
		Direction: dir,
		Layer:     log.LayerDriver,
		Category:  log.CategoryError,
		Target:    l.target,
		Error: &log.ErrorEventData{
			Layer:     log.LayerDriver,
			Message:   err.Error(),
			Operation: &op,
			Address:   &address,
		},
	})
}

// Compile-time interface satisfaction check.
var _ bitfield.MemoryDriver = (*Logged)(nil)
