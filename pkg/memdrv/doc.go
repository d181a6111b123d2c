// Package memdrv provides bitfield.MemoryDriver implementations that do not
// need a physical probe.
//
// Sim is an in-process simulated target: sparse little-endian memory with
// optional mapped regions, the alignment rules of 32-bit accesses and a
// per-request transfer limit. It counts calls, which makes it the usual
// driver for tests and for the swd-memserver command.
//
// Logged wraps any driver and records each call as a log.Event.
package memdrv
