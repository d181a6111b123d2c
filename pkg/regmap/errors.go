package regmap

import (
	"errors"
	"strings"
)

// ErrUnknownRegister indicates a register name missing from a map.
var ErrUnknownRegister = errors.New("unknown register")

// ErrUnknownDevice indicates a device without a built-in map.
var ErrUnknownDevice = errors.New("unknown device")

// LoadError provides details about a register map that failed to load.
type LoadError struct {
	// File is the path of the map (empty for in-memory data).
	File string

	// Register names the offending register, if any.
	Register string

	// Message describes the error.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

func (e *LoadError) Error() string {
	var b strings.Builder
	if e.File != "" {
		b.WriteString(e.File)
		b.WriteString(": ")
	}
	if e.Register != "" {
		b.WriteString("register ")
		b.WriteString(e.Register)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}
