package connector

import (
	"errors"

	"github.com/getmockd/soapconnect/pkg/wsdl"
)

var (
	// ErrMethodNotFound is returned when an operation name does not resolve
	// against the capability document's port types.
	ErrMethodNotFound = errors.New("method not found in capability document port types")

	// ErrConnectionTimeout is returned when a readiness wait expires.
	ErrConnectionTimeout = errors.New("timeout in connecting")

	// ErrConnectionFailed wraps capability document fetch and parse failures.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrMalformedDocument is returned when the capability document has
	// dangling references.
	ErrMalformedDocument = wsdl.ErrMalformedDocument

	// ErrNotConnected is reported by Ping.
	ErrNotConnected = errors.New("not connected")

	// ErrResponseElementNotFound is returned when a response body carries
	// elements but none of them is the expected payload.
	ErrResponseElementNotFound = errors.New("response element not found")
)

// ConnectError describes a failed connection attempt. It matches both
// ErrConnectionFailed and its cause.
type ConnectError struct {
	Location string
	Cause    error
}

func (e *ConnectError) Error() string {
	msg := ErrConnectionFailed.Error()
	if e.Location != "" {
		msg += " (" + e.Location + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ConnectError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrConnectionFailed}
	}
	return []error{ErrConnectionFailed, e.Cause}
}
