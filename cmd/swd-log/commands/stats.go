package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/swdkit/swd-go/pkg/log"
	"github.com/swdkit/swd-go/pkg/regmap"
	"github.com/swdkit/swd-go/pkg/wire"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	Operations        map[wire.Operation]*OperationStats
	Sessions          map[string]*SessionStats
	Addresses         map[uint32]int
	Errors            int
	BytesRead         uint64
	BytesWritten      uint64
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// OperationStats aggregates access events of one operation.
type OperationStats struct {
	Count    int
	Failed   int
	Total    time.Duration
	Max      time.Duration
	timedOps int
}

// Average returns the mean access duration of timed events.
func (o *OperationStats) Average() time.Duration {
	if o.timedOps == 0 {
		return 0
	}
	return o.Total / time.Duration(o.timedOps)
}

// SessionStats holds statistics for a single session.
type SessionStats struct {
	FirstSeen  time.Time
	LastSeen   time.Time
	Events     int
	Accesses   int
	Errors     int
	Target     string
	RemoteAddr string
}

// NewStats returns empty statistics.
func NewStats() *Stats {
	return &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		Operations:        make(map[wire.Operation]*OperationStats),
		Sessions:          make(map[string]*SessionStats),
		Addresses:         make(map[uint32]int),
	}
}

// Add accumulates one event.
func (s *Stats) Add(event log.Event) {
	s.TotalEvents++
	s.EventsByLayer[event.Layer]++
	s.EventsByCategory[event.Category]++
	s.EventsByDirection[event.Direction]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	sess, ok := s.Sessions[event.SessionID]
	if !ok {
		sess = &SessionStats{FirstSeen: event.Timestamp, LastSeen: event.Timestamp}
		s.Sessions[event.SessionID] = sess
	}
	sess.Events++
	if event.Timestamp.After(sess.LastSeen) {
		sess.LastSeen = event.Timestamp
	}
	if event.Target != "" {
		sess.Target = event.Target
	}
	if event.RemoteAddr != "" {
		sess.RemoteAddr = event.RemoteAddr
	}

	if event.Error != nil {
		s.Errors++
		sess.Errors++
	}

	acc := event.Access
	if acc == nil {
		return
	}
	sess.Accesses++
	s.Addresses[acc.Address]++

	op, ok := s.Operations[acc.Operation]
	if !ok {
		op = &OperationStats{}
		s.Operations[acc.Operation] = op
	}
	op.Count++
	failed := acc.Status != nil && !acc.Status.IsSuccess()
	if failed {
		op.Failed++
		return
	}
	if acc.Duration > 0 {
		op.timedOps++
		op.Total += acc.Duration
		if acc.Duration > op.Max {
			op.Max = acc.Duration
		}
	}

	size := uint64(acc.Size)
	if size == 0 && (acc.Operation == wire.OpGetMem32 || acc.Operation == wire.OpSetMem32) {
		size = 4
	}
	if acc.Operation.IsWrite() {
		s.BytesWritten += size
	} else {
		s.BytesRead += size
	}
}

// AddressCount is an address with its access count.
type AddressCount struct {
	Address uint32
	Count   int
}

// TopAddresses returns up to n of the most accessed addresses.
func (s *Stats) TopAddresses(n int) []AddressCount {
	out := make([]AddressCount, 0, len(s.Addresses))
	for addr, count := range s.Addresses {
		out = append(out, AddressCount{addr, count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Address < out[j].Address
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// RunStats analyzes the events matching filter and prints statistics.
func RunStats(path string, filter log.Filter, regs *regmap.Map, w io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := NewStats()
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		stats.Add(event)
	}

	printStats(w, stats, regs)
	return nil
}

func printStats(w io.Writer, stats *Stats, regs *regmap.Map) {
	fmt.Fprintln(w, "=== Log Statistics ===")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	if stats.TotalEvents == 0 {
		return
	}

	duration := stats.TimeRange.End.Sub(stats.TimeRange.Start)
	fmt.Fprintf(w, "Time Range:   %s to %s (%s)\n",
		stats.TimeRange.Start.UTC().Format(time.RFC3339),
		stats.TimeRange.End.UTC().Format(time.RFC3339),
		formatDuration(duration))
	fmt.Fprintf(w, "Errors:       %d\n", stats.Errors)
	fmt.Fprintf(w, "Bytes:        %d read, %d written\n", stats.BytesRead, stats.BytesWritten)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "By Layer:")
	for _, l := range []log.Layer{log.LayerDriver, log.LayerWire, log.LayerTransport} {
		if n := stats.EventsByLayer[l]; n > 0 {
			fmt.Fprintf(w, "  %-10s %d\n", l.String()+":", n)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "By Category:")
	for _, c := range []log.Category{log.CategoryAccess, log.CategoryState, log.CategoryError} {
		if n := stats.EventsByCategory[c]; n > 0 {
			fmt.Fprintf(w, "  %-10s %d\n", c.String()+":", n)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "By Direction:")
	for _, d := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if n := stats.EventsByDirection[d]; n > 0 {
			fmt.Fprintf(w, "  %-10s %d\n", d.String()+":", n)
		}
	}
	fmt.Fprintln(w)

	if len(stats.Operations) > 0 {
		fmt.Fprintln(w, "Operations:")
		for _, op := range []wire.Operation{wire.OpReadMem, wire.OpWriteMem, wire.OpGetMem32, wire.OpSetMem32} {
			o, ok := stats.Operations[op]
			if !ok {
				continue
			}
			fmt.Fprintf(w, "  %-10s %d", op.String()+":", o.Count)
			if o.Failed > 0 {
				fmt.Fprintf(w, " (%d failed)", o.Failed)
			}
			if avg := o.Average(); avg > 0 {
				fmt.Fprintf(w, " avg %s max %s", formatDuration(avg), formatDuration(o.Max))
			}
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w)

		fmt.Fprintln(w, "Top Addresses:")
		for _, ac := range stats.TopAddresses(10) {
			fmt.Fprintf(w, "  %-32s %d\n", formatAddress(ac.Address, regs), ac.Count)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Sessions: %d\n", len(stats.Sessions))
	ids := make([]string, 0, len(stats.Sessions))
	for id := range stats.Sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		sess := stats.Sessions[id]
		fmt.Fprintf(w, "  %s:\n", shortenID(id))
		if sess.Target != "" {
			fmt.Fprintf(w, "    Target:   %s\n", sess.Target)
		}
		if sess.RemoteAddr != "" {
			fmt.Fprintf(w, "    Remote:   %s\n", sess.RemoteAddr)
		}
		fmt.Fprintf(w, "    Events:   %d (%d accesses, %d errors)\n", sess.Events, sess.Accesses, sess.Errors)
		fmt.Fprintf(w, "    Duration: %s\n", formatDuration(sess.LastSeen.Sub(sess.FirstSeen)))
	}
}
