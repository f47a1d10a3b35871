package notify

import (
	"context"
	"errors"
	"fmt"
)

// Message is a rendered notification ready for delivery.
type Message struct {
	Subject string
	Body    string
}

// Sender delivers one message to one address and returns the transport's
// delivery ID. The transport (email API, Telegram, ...) is an implementation
// detail; callers only see the closed error kinds below.
type Sender interface {
	Send(ctx context.Context, address string, msg Message) (string, error)
}

// Kind classifies a delivery failure.
type Kind string

const (
	// KindTransient delivery failures (throttling, timeouts, temporary
	// unavailability) are eligible for retry on a future run.
	KindTransient Kind = "TRANSIENT"
	// KindPermanent delivery failures (invalid address, blocked recipient)
	// need external correction and must not be auto-retried.
	KindPermanent Kind = "PERMANENT"
)

// Error is the failure outcome of a dispatch attempt.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s dispatch failure: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Transient wraps err as a retryable delivery failure.
func Transient(err error) *Error {
	return &Error{Kind: KindTransient, Err: err}
}

// Permanent wraps err as a non-retryable delivery failure.
func Permanent(err error) *Error {
	return &Error{Kind: KindPermanent, Err: err}
}

// KindOf extracts the failure kind from err. Unclassified errors are treated
// as transient so they stay eligible for the next run.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindTransient
}
