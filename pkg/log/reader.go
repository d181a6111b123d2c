package log

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Filter specifies criteria for filtering log events.
// Empty/nil fields match all events for that criterion.
type Filter struct {
	// SessionID filters by exact session ID match.
	SessionID string

	// Target filters by target name.
	Target string

	Direction *Direction
	Layer     *Layer
	Category  *Category

	// TimeStart filters events at or after this time.
	TimeStart *time.Time

	// TimeEnd filters events before this time.
	TimeEnd *time.Time

	// AddressMin and AddressMax bound the address of access events
	// (inclusive). Events without an address never match an address bound.
	AddressMin *uint32
	AddressMax *uint32
}

// Matches returns true if the event matches all filter criteria.
func (f *Filter) Matches(event Event) bool {
	if f.SessionID != "" && event.SessionID != f.SessionID {
		return false
	}
	if f.Target != "" && event.Target != f.Target {
		return false
	}
	if f.Direction != nil && event.Direction != *f.Direction {
		return false
	}
	if f.Layer != nil && event.Layer != *f.Layer {
		return false
	}
	if f.Category != nil && event.Category != *f.Category {
		return false
	}
	if f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart) {
		return false
	}
	if f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd) {
		return false
	}
	if f.AddressMin != nil || f.AddressMax != nil {
		addr, ok := eventAddress(event)
		if !ok {
			return false
		}
		if f.AddressMin != nil && addr < *f.AddressMin {
			return false
		}
		if f.AddressMax != nil && addr > *f.AddressMax {
			return false
		}
	}
	return true
}

func eventAddress(event Event) (uint32, bool) {
	switch {
	case event.Access != nil:
		return event.Access.Address, true
	case event.Error != nil && event.Error.Address != nil:
		return *event.Error.Address, true
	}
	return 0, false
}

// Reader streams events from a log file.
type Reader struct {
	file    *os.File
	decoder *cbor.Decoder
	filter  Filter
	empty   bool
}

// NewReader creates a Reader that reads all events from the log file.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens the log at path and checks its header. A zero
// length file reads as an empty log.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := &Reader{
		file:    f,
		decoder: NewDecoder(bufio.NewReader(f)),
		filter:  filter,
	}
	if err := readHeader(r.decoder); err != nil {
		if err != io.EOF {
			f.Close()
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		r.empty = true
	}
	return r, nil
}

// Next returns the next event that matches the filter.
// Returns io.EOF when no more events are available.
func (r *Reader) Next() (Event, error) {
	if r.empty {
		return Event{}, io.EOF
	}
	for {
		var event Event
		if err := r.decoder.Decode(&event); err != nil {
			if err == io.EOF {
				return Event{}, io.EOF
			}
			return Event{}, err
		}

		if r.filter.Matches(event) {
			return event, nil
		}
	}
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}
