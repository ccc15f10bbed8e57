package lmstudio

import "fmt"

// ErrorKind categorizes request failures.
type ErrorKind int

const (
	// ErrConnection indicates the server could not be reached.
	ErrConnection ErrorKind = iota
	// ErrTimeout indicates the request did not complete in time.
	ErrTimeout
	// ErrBadStatus indicates a non-success HTTP status.
	ErrBadStatus
	// ErrMalformedResponse indicates the response lacked the expected content.
	ErrMalformedResponse
)

// String returns the kind name used in logs.
func (k ErrorKind) String() string {
	switch k {
	case ErrConnection:
		return "ConnectionError"
	case ErrTimeout:
		return "TimeoutError"
	case ErrBadStatus:
		return "BadStatus"
	case ErrMalformedResponse:
		return "MalformedResponse"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// RequestError is returned by every failed call to the LM Studio API.
type RequestError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// retryable reports whether another attempt could succeed.
func (e *RequestError) retryable() bool {
	switch e.Kind {
	case ErrConnection, ErrTimeout:
		return true
	case ErrBadStatus:
		return e.StatusCode >= 500
	default:
		return false
	}
}
