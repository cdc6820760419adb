package wialon

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrNotAuthenticated indicates a call that needs a session was made without one
	ErrNotAuthenticated = errors.New("wialon session is not authenticated")
	// ErrUserIDUnknown indicates a resumed session whose user id was never supplied
	ErrUserIDUnknown = errors.New("wialon user id is unknown")
	// ErrInvalidParams indicates parameters that failed local shape checks
	ErrInvalidParams = errors.New("invalid wialon parameters")
	// ErrInvalidConfig indicates invalid client configuration
	ErrInvalidConfig = errors.New("invalid wialon configuration")
)

// ErrorKind classifies errors returned by the client
type ErrorKind int

const (
	// KindUnknown is reported for errors not produced by this package
	KindUnknown ErrorKind = iota
	// KindTransport is a network level failure
	KindTransport
	// KindProtocol is a response that could not be understood
	KindProtocol
	// KindRemote is an error reported by the Remote API
	KindRemote
	// KindUsage is a local precondition failure
	KindUsage
)

// String returns the string representation of an ErrorKind
func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindProtocol:
		return "protocol"
	case KindRemote:
		return "remote"
	case KindUsage:
		return "usage"
	default:
		return "unknown"
	}
}

// KindOf reports which kind of error err is, looking through wrapped errors.
func KindOf(err error) ErrorKind {
	var (
		transportErr *TransportError
		protocolErr  *ProtocolError
		apiErr       *APIError
		usageErr     *UsageError
	)
	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &usageErr):
		return KindUsage
	case errors.As(err, &apiErr):
		return KindRemote
	case errors.As(err, &protocolErr):
		return KindProtocol
	case errors.As(err, &transportErr):
		return KindTransport
	default:
		return KindUnknown
	}
}

// TransportError is returned when the HTTP exchange itself fails
type TransportError struct {
	Svc string
	Err error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	return fmt.Sprintf("wialon transport error: %s: %v", e.Svc, e.Err)
}

// Unwrap returns the underlying network error
func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError is returned when a response body is not valid JSON or has an
// unexpected shape. Body holds the raw response for diagnostics.
type ProtocolError struct {
	Svc        string
	StatusCode int
	Message    string
	Body       []byte
}

// Error implements the error interface
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("wialon protocol error: %s: status %d: %s", e.Svc, e.StatusCode, e.Message)
}

// APIError is a well-formed error response from the Remote API
type APIError struct {
	Svc         string
	Code        int
	Description string
	Reason      string
}

func newAPIError(svc string, code int, reason string) *APIError {
	desc, _ := Describe(code)
	return &APIError{
		Svc:         svc,
		Code:        code,
		Description: desc,
		Reason:      reason,
	}
}

// Error implements the error interface
func (e *APIError) Error() string {
	msg := fmt.Sprintf("wialon API error: %s: %d - %s", e.Svc, e.Code, e.Description)
	if e.Reason != "" {
		msg += " - " + e.Reason
	}
	return msg
}

// IsKnown checks if the code is present in the error code table
func (e *APIError) IsKnown() bool {
	_, ok := Describe(e.Code)
	return ok
}

// IsSessionExpired checks if the error invalidates the current session
func (e *APIError) IsSessionExpired() bool {
	return e.Code == 1 || e.Code == 1011
}

// IsAccessDenied checks if the error indicates missing rights or bad credentials
func (e *APIError) IsAccessDenied() bool {
	return e.Code == 7 || e.Code == 8
}

// IsNoMessages checks if the error only signals an empty message interval
func (e *APIError) IsNoMessages() bool {
	return e.Code == 1001
}

// UsageError is returned before any network call when a local precondition fails
type UsageError struct {
	Op  string
	Msg string
	Err error
}

func usageErrorf(op string, cause error, format string, args ...any) *UsageError {
	return &UsageError{
		Op:  op,
		Msg: fmt.Sprintf(format, args...),
		Err: cause,
	}
}

// Error implements the error interface
func (e *UsageError) Error() string {
	return fmt.Sprintf("wialon usage error: %s: %s", e.Op, e.Msg)
}

// Unwrap returns the sentinel behind the usage error, if any
func (e *UsageError) Unwrap() error {
	return e.Err
}
