package client

import "fmt"

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeInvalidInput
	ErrTypeTransport
	ErrTypeMalformedResponse
)

func (t ErrorType) String() string {
	switch t {
	case ErrTypeInvalidInput:
		return "invalid_input"
	case ErrTypeTransport:
		return "transport"
	case ErrTypeMalformedResponse:
		return "malformed_response"
	default:
		return "unknown"
	}
}

// ClientError represents a failed call against the demystifier API.
type ClientError struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Cause      error
}

func (e *ClientError) Error() string {
	msg := e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches any ClientError of the same Type, so callers can write
// errors.Is(err, client.ErrTransport).
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	return ok && t.Type == e.Type
}

// Sentinel errors for easy checking.
var (
	ErrInvalidInput      = &ClientError{Type: ErrTypeInvalidInput, Message: "invalid input"}
	ErrTransport         = &ClientError{Type: ErrTypeTransport, Message: "request failed"}
	ErrMalformedResponse = &ClientError{Type: ErrTypeMalformedResponse, Message: "malformed response"}
)

func invalidInput(msg string) error {
	return &ClientError{Type: ErrTypeInvalidInput, Message: msg}
}

func transportError(msg string, status int, cause error) error {
	return &ClientError{Type: ErrTypeTransport, Message: msg, StatusCode: status, Cause: cause}
}

func malformedResponse(cause error) error {
	return &ClientError{Type: ErrTypeMalformedResponse, Message: "invalid analysis response", Cause: cause}
}
