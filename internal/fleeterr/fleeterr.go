// Package fleeterr defines the error taxonomy shared by connectors, modules
// and dispatchers (spec.md §7). Errors are not language-specific typed
// panics: they are values carrying a Kind, the originating module spec id,
// and a display message, so dispatchers can branch on Kind without string
// matching.
package fleeterr

import "fmt"

// Kind enumerates the error taxonomy.
type Kind string

const (
	UnsupportedPlatform Kind = "unsupported_platform"
	ConnectionFailed    Kind = "connection_failed"
	HostKeyNotVerified  Kind = "host_key_not_verified"
	NotImplemented      Kind = "not_implemented"
	InvalidConfig       Kind = "invalid_config"
	Other               Kind = "other"
)

// Error is the common error value for module and connector failures.
type Error struct {
	Kind     Kind
	SourceID string // module spec id that raised this error
	Message  string
	KeyID    string // set only for HostKeyNotVerified
	Wrapped  error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s", e.SourceID, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", e.SourceID, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// New builds a taxonomy error.
func New(kind Kind, sourceID, message string) *Error {
	return &Error{Kind: kind, SourceID: sourceID, Message: message}
}

// Wrap attaches kind/source to an underlying error.
func Wrap(kind Kind, sourceID string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, SourceID: sourceID, Message: err.Error(), Wrapped: err}
}

// NotImplementedSentinel reports whether err is the "try the other form"
// signal: a NotImplemented error carrying no message (§4.A contract).
func NotImplementedSentinel(err error) bool {
	fe, ok := err.(*Error)
	return ok && fe.Kind == NotImplemented && fe.Message == ""
}

// IsUnsupportedPlatform reports whether err signals an eager platform-gate
// rejection, which the dispatcher must record without opening a connector.
func IsUnsupportedPlatform(err error) bool {
	fe, ok := err.(*Error)
	return ok && fe.Kind == UnsupportedPlatform
}
