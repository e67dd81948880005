package mqtt

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// ErrSessionClosed is returned by Receive after Close. It is not a transport
// error: reading from a closed session is a programming error.
var ErrSessionClosed = errors.New("mqtt session closed")

// ErrorKind classifies transport failures for logging. Recovery is identical
// for every kind.
type ErrorKind int

const (
	KindGeneric ErrorKind = iota
	KindAuth
	KindRefused
	KindTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindRefused:
		return "refused"
	case KindTimeout:
		return "timeout"
	default:
		return "generic"
	}
}

// TransportError wraps any broker-level failure: authentication, refused
// connection, timeout or a dropped connection.
type TransportError struct {
	Op   string
	Kind ErrorKind
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("mqtt %s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NewTransportError wraps err, classifying it from its text and type.
func NewTransportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Kind: Classify(err), Err: err}
}

// IsTransport reports whether err is, or wraps, a *TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// Classify derives the kind of a raw client error.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindGeneric
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Kind
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return KindRefused
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "not authorized"),
		strings.Contains(msg, "authentication"),
		strings.Contains(msg, "bad user name or password"),
		strings.Contains(msg, "bad username or password"):
		return KindAuth
	case strings.Contains(msg, "connection refused"):
		return KindRefused
	case strings.Contains(msg, "timed out"), strings.Contains(msg, "timeout"):
		return KindTimeout
	}
	return KindGeneric
}
