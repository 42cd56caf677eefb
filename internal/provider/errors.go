package provider

import (
	"fmt"

	pkgerrors "smmwallet/pkg/errors"
)

// Kind classifies how a provider call failed.
type Kind string

const (
	// KindRejected means the provider answered with an explicit error and
	// did not act on the request.
	KindRejected Kind = "rejected"
	// KindTransport covers network errors, timeouts and 5xx responses. The
	// provider may or may not have acted on the request.
	KindTransport Kind = "transport"
	// KindMalformed means a response arrived but could not be understood.
	KindMalformed Kind = "malformed"
)

// Error is returned by every Client method on failure. It matches
// pkgerrors.ErrProvider under errors.Is.
type Error struct {
	Action     string
	Kind       Kind
	Message    string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s %s (http %d): %s", e.Action, e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %s %s: %s", e.Action, e.Kind, e.Message)
}

func (e *Error) Is(target error) bool {
	return target == pkgerrors.ErrProvider
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of a provider error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var pe *Error
	if pkgerrors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// IsRejected reports whether err is an explicit provider rejection.
func IsRejected(err error) bool {
	return KindOf(err) == KindRejected
}

func rejected(action, message string, status int) *Error {
	return &Error{Action: action, Kind: KindRejected, Message: message, StatusCode: status}
}

func transport(action string, status int, err error) *Error {
	msg := "request failed"
	if err != nil {
		msg = err.Error()
	}
	return &Error{Action: action, Kind: KindTransport, Message: msg, StatusCode: status, Err: err}
}

func malformed(action, message string, body []byte) *Error {
	const maxSnippet = 200
	snippet := string(body)
	if len(snippet) > maxSnippet {
		snippet = snippet[:maxSnippet] + "..."
	}
	return &Error{Action: action, Kind: KindMalformed, Message: fmt.Sprintf("%s: %q", message, snippet)}
}
