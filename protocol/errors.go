package protocol

import (
	"errors"
	"fmt"
	"net"
	"os"
)

// ErrNoResponse is returned by ReadMessage when the node closed the
// connection cleanly before sending any part of a message.
var ErrNoResponse = errors.New("fcp: no response from node")

// ParseError represents a client-side parsing error.
// The stream is desynchronized: a missing Length/Data marker, a malformed
// numeric field, an oversized line or chunk.
//
// Connection handling: CLOSE, never retry on the same stream.
type ParseError struct {
	Message string
	Err     error // Underlying error, if any
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return "fcp: parse error: " + e.Message + ": " + e.Err.Error()
	}
	return "fcp: parse error: " + e.Message
}

// Unwrap returns the underlying error for error chain inspection
func (e *ParseError) Unwrap() error {
	return e.Err
}

// ShouldCloseConnection returns true - parse errors indicate corrupted state
func (e *ParseError) ShouldCloseConnection() bool {
	return true
}

// ConnectionError wraps I/O errors from the transport.
//
// Common causes:
//   - Read deadline exceeded (Timeout() is true)
//   - Connection reset or closed mid-message
//   - Write failure
//
// Connection handling: the connection is broken, CLOSE it.
type ConnectionError struct {
	Op  string // Operation that failed (read, write, connect)
	Err error  // Underlying error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("fcp: connection error during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ShouldCloseConnection returns true - connection errors mean connection is broken
func (e *ConnectionError) ShouldCloseConnection() bool {
	return true
}

// Timeout reports whether the underlying error is a deadline expiry.
func (e *ConnectionError) Timeout() bool {
	return isTimeoutErr(e.Err)
}

// ErrorWithConnectionState is an interface for errors that indicate
// whether the connection should be closed.
type ErrorWithConnectionState interface {
	error
	ShouldCloseConnection() bool
}

// ShouldCloseConnection reports whether err leaves the connection unusable.
// Unknown error types are treated conservatively and return true.
func ShouldCloseConnection(err error) bool {
	if err == nil {
		return false
	}

	var e ErrorWithConnectionState
	if errors.As(err, &e) {
		return e.ShouldCloseConnection()
	}

	return true
}

// IsTimeout reports whether err, or any error it wraps, is a timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	var t interface{ Timeout() bool }
	if errors.As(err, &t) {
		return t.Timeout()
	}
	return false
}

func isTimeoutErr(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
