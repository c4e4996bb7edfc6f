package fcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/pior/fcp/protocol"
)

var (
	ErrClientClosed      = errors.New("fcp: client closed")
	ErrInvalidURI        = errors.New("fcp: invalid URI")
	ErrMetadataTooLarge  = errors.New("fcp: metadata too large")
	ErrUnexpectedMessage = errors.New("fcp: unexpected message")
	ErrTooManyRedirects  = errors.New("fcp: too many redirects")
	ErrSinkNotOpen       = errors.New("fcp: sink not open")

	// ErrRetriesExhausted is returned when the node kept timing out or
	// restarting the request. It is a timeout: protocol.IsTimeout reports true.
	ErrRetriesExhausted error = retriesExhaustedError{}
)

type retriesExhaustedError struct{}

func (retriesExhaustedError) Error() string { return "fcp: retries exhausted" }

func (retriesExhaustedError) Timeout() bool { return true }

// FetchError is a terminal answer from the node: DataNotFound, URIError,
// FormatError or Failed.
type FetchError struct {
	URI    string
	Type   protocol.MessageType
	Reason string // as sent by the node, may be empty
}

func (e *FetchError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = defaultReason(e.Type)
	}
	return fmt.Sprintf("fcp: get %s: %s: %s", e.URI, e.Type, reason)
}

// ShouldCloseConnection returns false - the node answered a well-formed message
func (e *FetchError) ShouldCloseConnection() bool {
	return false
}

func defaultReason(t protocol.MessageType) string {
	switch t {
	case protocol.TypeDataNotFound:
		return "data not found within hop limit"
	case protocol.TypeURIError:
		return "node rejected the URI"
	case protocol.TypeFormatError:
		return "node could not parse the request"
	default:
		return "request failed"
	}
}

// IsNotFound reports whether err is a DataNotFound answer.
func IsNotFound(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Type == protocol.TypeDataNotFound
}

// contextError prefers the context error once the context is done: a
// cancelled fetch closes the transport and the resulting I/O error is noise.
func contextError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}
