package ipfs

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures crossing the ipfs package boundary.
type ErrorKind string

const (
	KindDisabled     ErrorKind = "disabled"
	KindInvalidInput ErrorKind = "invalid_input"
	KindTransport    ErrorKind = "transport"
	KindDaemon       ErrorKind = "daemon"
	KindProtocol     ErrorKind = "protocol"
)

var (
	// ErrDisabled is returned by every operation while [ipfs] enabled is false.
	ErrDisabled = errors.New("ipfs integration disabled")
	// ErrForceStopped is returned by Start after Stop was called.
	ErrForceStopped = errors.New("ipfs supervisor force-stopped")
)

// Error describes a failed ipfs operation.
type Error struct {
	Op   string
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err == nil {
		return fmt.Sprintf("ipfs %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("ipfs %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorKind implements the classifier interface used by the API and CLI layers.
func (e *Error) ErrorKind() string { return string(e.Kind) }

func newError(op string, kind ErrorKind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

func disabledError(op string) *Error {
	return newError(op, KindDisabled, ErrDisabled)
}

// KindOf returns the ErrorKind carried by err, or "" when err is not an *Error.
func KindOf(err error) ErrorKind {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind
	}
	return ""
}
