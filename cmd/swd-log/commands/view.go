package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/swdkit/swd-go/pkg/log"
	"github.com/swdkit/swd-go/pkg/regmap"
)

// RunView prints every event matching filter. A non-nil regs annotates
// access addresses with register names.
func RunView(path string, filter log.Filter, regs *regmap.Map, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event, regs)
	}
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event, regs *regmap.Map) {
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")

	var label string
	switch {
	case event.Access != nil:
		label = event.Access.Operation.String()
	case event.Frame != nil:
		label = "Frame"
	case event.StateChange != nil:
		label = "State"
	case event.Error != nil:
		label = "Error"
	default:
		label = "Unknown"
	}

	fmt.Fprintf(w, "%s [sess:%s] %-3s %s %s", ts, shortenID(event.SessionID), event.Direction, event.Layer, label)
	if event.Target != "" {
		fmt.Fprintf(w, " (%s)", event.Target)
	}
	fmt.Fprintln(w)

	switch {
	case event.Access != nil:
		formatAccessDetails(w, event.Access, regs)
	case event.Frame != nil:
		formatFrameDetails(w, event.Frame)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Error != nil:
		formatErrorDetails(w, event.Error, regs)
	}
	if event.RemoteAddr != "" {
		fmt.Fprintf(w, "  Remote: %s\n", event.RemoteAddr)
	}

	fmt.Fprintln(w) // Blank line between events
}

// shortenID returns the first 8 characters of a session ID.
func shortenID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatAddress(addr uint32, regs *regmap.Map) string {
	s := fmt.Sprintf("0x%08x", addr)
	if regs != nil {
		if def, ok := regs.Lookup(addr); ok {
			s += " " + def.Name
		}
	}
	return s
}

func formatAccessDetails(w io.Writer, acc *log.AccessEvent, regs *regmap.Map) {
	if acc.MessageID != 0 {
		fmt.Fprintf(w, "  MessageID: %d\n", acc.MessageID)
	}
	fmt.Fprintf(w, "  Address: %s\n", formatAddress(acc.Address, regs))
	if acc.Size > 0 {
		fmt.Fprintf(w, "  Size: %d bytes\n", acc.Size)
	}
	if acc.Value != nil {
		fmt.Fprintf(w, "  Value: 0x%08x\n", *acc.Value)
	}
	if len(acc.Data) > 0 {
		fmt.Fprintf(w, "  Data: %s\n", hex.EncodeToString(acc.Data))
	}
	if acc.Status != nil {
		fmt.Fprintf(w, "  Status: %s (%d)\n", acc.Status.String(), *acc.Status)
	}
	if acc.Duration > 0 {
		fmt.Fprintf(w, "  Duration: %s\n", formatDuration(acc.Duration))
	}
}

func formatFrameDetails(w io.Writer, frame *log.FrameEvent) {
	fmt.Fprintf(w, "  Size: %d bytes\n", frame.Size)
	if len(frame.Data) > 0 {
		fmt.Fprintf(w, "  Data: %s", hex.EncodeToString(frame.Data))
		if frame.Truncated {
			fmt.Fprintf(w, " (truncated)")
		}
		fmt.Fprintln(w)
	}
}

func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	fmt.Fprintf(w, "  Entity: %s\n", sc.Entity)
	if sc.OldState != "" {
		fmt.Fprintf(w, "  State: %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  State: %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func formatErrorDetails(w io.Writer, e *log.ErrorEventData, regs *regmap.Map) {
	fmt.Fprintf(w, "  Layer: %s\n", e.Layer)
	if e.Operation != nil {
		fmt.Fprintf(w, "  Operation: %s\n", e.Operation)
	}
	if e.Address != nil {
		fmt.Fprintf(w, "  Address: %s\n", formatAddress(*e.Address, regs))
	}
	fmt.Fprintf(w, "  Message: %s\n", e.Message)
	if e.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", e.Context)
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}
