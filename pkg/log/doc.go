// Package log provides structured capture of target memory traffic.
//
// This package defines the Logger interface and Event types for recording
// every memory access made against a target, at the driver, wire and
// transport layers. It is separate from operational logging (slog): the
// capture is a complete machine-readable trace for debugging register
// sequences after the fact.
//
// # Basic Usage
//
//	// For development: log to console via slog
//	drv = memdrv.NewLogged(drv, log.NewSlogAdapter(slog.Default()), "stm32l1")
//
//	// For later analysis: write to a binary file
//	fl, _ := log.NewFileLogger("session.swdlog")
//
//	// Both
//	logger := log.NewMultiLogger(log.NewSlogAdapter(slog.Default()), fl)
//
// # Event Types
//
//   - Access: one memory operation with its address, size and data
//   - Frame: raw frame bytes on a transport connection
//   - StateChange: connection and session lifecycle
//   - Error: failures at any layer
//
// # File Format
//
// Log files are a stream of CBOR encoded events with the .swdlog extension.
// The swd-log command views and summarizes them.
package log
