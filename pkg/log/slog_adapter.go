package log

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
)

// SlogAdapter writes events to an slog.Logger.
// Useful for development when you want to watch target traffic in a console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level, or Warn level for
// error events.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("session", event.SessionID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}

	if event.Target != "" {
		attrs = append(attrs, slog.String("target", event.Target))
	}
	if event.RemoteAddr != "" {
		attrs = append(attrs, slog.String("remote", event.RemoteAddr))
	}

	level := slog.LevelDebug

	switch {
	case event.Access != nil:
		acc := event.Access
		attrs = append(attrs,
			slog.String("op", acc.Operation.String()),
			slog.String("addr", fmt.Sprintf("0x%08x", acc.Address)),
		)
		if acc.MessageID != 0 {
			attrs = append(attrs, slog.Uint64("msg_id", uint64(acc.MessageID)))
		}
		if acc.Size != 0 {
			attrs = append(attrs, slog.Uint64("size", uint64(acc.Size)))
		}
		if len(acc.Data) > 0 {
			attrs = append(attrs, slog.String("data", hex.EncodeToString(acc.Data)))
		}
		if acc.Value != nil {
			attrs = append(attrs, slog.String("value", fmt.Sprintf("0x%08x", *acc.Value)))
		}
		if acc.Status != nil {
			attrs = append(attrs, slog.String("status", acc.Status.String()))
		}
		if acc.Duration > 0 {
			attrs = append(attrs, slog.Duration("duration", acc.Duration))
		}
	case event.Frame != nil:
		attrs = append(attrs,
			slog.Int("frame_size", event.Frame.Size),
			slog.Bool("truncated", event.Frame.Truncated),
		)
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Error != nil:
		level = slog.LevelWarn
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
		)
		if event.Error.Operation != nil {
			attrs = append(attrs, slog.String("op", event.Error.Operation.String()))
		}
		if event.Error.Address != nil {
			attrs = append(attrs, slog.String("addr", fmt.Sprintf("0x%08x", *event.Error.Address)))
		}
		if event.Error.Context != "" {
			attrs = append(attrs, slog.String("error_context", event.Error.Context))
		}
	}

	a.logger.LogAttrs(context.Background(), level, "memory", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
