package gen

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a generation failure for retry decisions and for the
// trace envelope.
type ErrorKind string

const (
	// KindTransient marks a provider-reported retryable condition, such as
	// rate limiting or a 5xx status.
	KindTransient ErrorKind = "transient"
	// KindTimeout marks a logical deadline hit while waiting on a provider.
	KindTimeout ErrorKind = "timeout"
	// KindExhausted marks a request whose final attempt failed.
	KindExhausted ErrorKind = "exhausted"
	// KindTerminal marks a provider rejection that retrying cannot fix, such
	// as an invalid request or missing credentials.
	KindTerminal ErrorKind = "terminal"
)

// Error is the tagged failure type surfaced by the invoker and adapters.
type Error struct {
	Kind    ErrorKind
	Message string
	Attempt int
	cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("gen: %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("gen: %s", e.Kind)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Transient wraps err as a retryable provider failure.
func Transient(err error) *Error {
	return &Error{Kind: KindTransient, Message: errMessage(err), cause: err}
}

// Terminal wraps err as a non-retryable provider failure.
func Terminal(err error) *Error {
	return &Error{Kind: KindTerminal, Message: errMessage(err), cause: err}
}

// Timeout reports a logical deadline hit on the given attempt.
func Timeout(attempt int) *Error {
	return &Error{Kind: KindTimeout, Message: "provider call abandoned after deadline", Attempt: attempt}
}

// Exhausted reports that every attempt failed, carrying the last failure.
func Exhausted(attempt int, last error) *Error {
	return &Error{Kind: KindExhausted, Message: errMessage(last), Attempt: attempt, cause: last}
}

// AsError unwraps err to a *Error when one is present in the chain.
func AsError(err error) *Error {
	var ge *Error
	if errors.As(err, &ge) {
		return ge
	}
	return nil
}

// Retryable reports whether err should be absorbed by another attempt.
// Timeouts and transient provider conditions retry; everything else is
// surfaced immediately.
func Retryable(err error) bool {
	ge := AsError(err)
	if ge == nil {
		return false
	}
	return ge.Kind == KindTransient || ge.Kind == KindTimeout
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
