package config

import (
	"errors"
	"fmt"
)

// ErrorKind classifies configuration load failures.
type ErrorKind int

const (
	// NotFound means the configuration file does not exist.
	NotFound ErrorKind = iota + 1
	// ParseError means the document is malformed or in an unsupported format.
	ParseError
	// Invalid means a value is present but semantically wrong.
	Invalid
)

// Sentinel errors matched by errors.Is against an *Error of the same kind.
var (
	ErrNotFound = errors.New("config file not found")
	ErrParse    = errors.New("config parse error")
	ErrInvalid  = errors.New("invalid config")
)

func (k ErrorKind) String() string {
	switch k {
	case NotFound:
		return "not found"
	case ParseError:
		return "parse error"
	case Invalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Error is returned by Load. It is always fatal at startup.
type Error struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s: %s: %v", e.Path, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for this error's kind.
func (e *Error) Is(target error) bool {
	switch e.Kind {
	case NotFound:
		return target == ErrNotFound
	case ParseError:
		return target == ErrParse
	case Invalid:
		return target == ErrInvalid
	}
	return false
}
