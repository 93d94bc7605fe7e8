package fetch

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind is the failure channel an error came through.
type Kind int

const (
	// KindHTTP is a response with a non-2xx status.
	KindHTTP Kind = iota
	// KindNetwork means no response was obtained (DNS, connect, TLS, cancel).
	KindNetwork
	// KindMalformed means a response was obtained but its body could not be read or parsed.
	KindMalformed
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindHTTP:
		return "http"
	case KindNetwork:
		return "network"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// ErrorCode classifies fetch errors.
type ErrorCode int

const (
	// ErrCodeTimeout indicates the context deadline passed or was cancelled.
	ErrCodeTimeout ErrorCode = iota
	// ErrCodeConnection indicates a connection failure (refused, DNS, etc).
	ErrCodeConnection
	// ErrCodeAuth indicates an authentication/authorization failure (401/403).
	ErrCodeAuth
	// ErrCodeNotFound indicates the resource was not found (404).
	ErrCodeNotFound
	// ErrCodeRateLimit indicates rate limiting (429).
	ErrCodeRateLimit
	// ErrCodeValidation indicates a client-side error (other 4xx, bad request descriptor).
	ErrCodeValidation
	// ErrCodeServer indicates a server-side error (5xx).
	ErrCodeServer
	// ErrCodeRedirect indicates an unfollowed 3xx response.
	ErrCodeRedirect
	// ErrCodeMalformed indicates a body that is not valid JSON or does not fit the target type.
	ErrCodeMalformed
)

// String returns the error code name.
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeTimeout:
		return "timeout"
	case ErrCodeConnection:
		return "connection"
	case ErrCodeAuth:
		return "auth"
	case ErrCodeNotFound:
		return "not_found"
	case ErrCodeRateLimit:
		return "rate_limit"
	case ErrCodeValidation:
		return "validation"
	case ErrCodeServer:
		return "server"
	case ErrCodeRedirect:
		return "redirect"
	case ErrCodeMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Error is the error-tagged envelope. Get and Post return every failure as
// an *Error, so callers need a single handling path.
type Error struct {
	// StatusCode is the transport status, or 0 when no response was received.
	StatusCode int
	// Data is the server's "data" field or whole body for HTTP failures,
	// and the failure message for network and malformed failures.
	Data any
	// Raw is Data as JSON text.
	Raw json.RawMessage
	// Kind is the failure channel.
	Kind Kind
	// Code classifies the error.
	Code ErrorCode
	// Retryable reports whether repeating the call could succeed.
	// The helper never retries on its own.
	Retryable bool
	// Err is the underlying error, if any.
	Err error
}

// Status always returns StatusError.
func (e *Error) Status() Status { return StatusError }

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch: %s (HTTP %d): %s", e.Code, e.StatusCode, e.message())
	}
	return fmt.Sprintf("fetch: %s: %s", e.Code, e.message())
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Decode unmarshals the error payload into v.
func (e *Error) Decode(v any) error {
	if len(e.Raw) == 0 {
		return fmt.Errorf("fetch: error has no payload")
	}
	return json.Unmarshal(e.Raw, v)
}

// Envelope returns the error as an untyped envelope.
func (e *Error) Envelope() *Envelope[any] {
	return &Envelope[any]{Status: StatusError, StatusCode: e.StatusCode, Data: e.Data}
}

// MarshalJSON renders the error in envelope shape.
func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Envelope())
}

func (e *Error) message() string {
	if s, ok := e.Data.(string); ok && s != "" {
		return s
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.StatusCode)
}

// NewHTTPError creates the error for a non-2xx response. payload is the JSON
// text of the body's "data" field or of the whole body.
func NewHTTPError(statusCode int, payload []byte) *Error {
	e := ClassifyStatusCode(statusCode)
	e.Raw = json.RawMessage(payload)
	if len(payload) > 0 {
		var data any
		if err := json.Unmarshal(payload, &data); err == nil {
			e.Data = data
		}
	}
	return e
}

// NewNetworkError creates the error for a call that produced no response.
// timedOut marks context cancellation or deadline expiry.
func NewNetworkError(err error, timedOut bool) *Error {
	code := ErrCodeConnection
	if timedOut {
		code = ErrCodeTimeout
	}
	return messageError(0, KindNetwork, code, true, err)
}

// NewMalformedError creates the error for a body that could not be read or
// parsed. statusCode is the last known status.
func NewMalformedError(statusCode int, err error) *Error {
	return messageError(statusCode, KindMalformed, ErrCodeMalformed, false, err)
}

// NewRequestError creates the error for a request descriptor that could not
// be turned into a call (bad URL, unencodable payload).
func NewRequestError(err error) *Error {
	return messageError(0, KindNetwork, ErrCodeValidation, false, err)
}

func messageError(statusCode int, kind Kind, code ErrorCode, retryable bool, err error) *Error {
	msg := err.Error()
	raw, _ := json.Marshal(msg)
	return &Error{
		StatusCode: statusCode,
		Data:       msg,
		Raw:        raw,
		Kind:       kind,
		Code:       code,
		Retryable:  retryable,
		Err:        err,
	}
}

// ClassifyStatusCode converts a non-2xx HTTP status into a typed error
// without payload. Returns nil for 2xx status codes.
func ClassifyStatusCode(statusCode int) *Error {
	e := &Error{StatusCode: statusCode, Kind: KindHTTP}
	switch {
	case IsSuccess(statusCode):
		return nil
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		e.Code = ErrCodeAuth
	case statusCode == http.StatusNotFound:
		e.Code = ErrCodeNotFound
	case statusCode == http.StatusTooManyRequests:
		e.Code, e.Retryable = ErrCodeRateLimit, true
	case statusCode >= 300 && statusCode < 400:
		e.Code = ErrCodeRedirect
	case statusCode >= 400 && statusCode < 500:
		e.Code = ErrCodeValidation
	case statusCode >= 500:
		e.Code, e.Retryable = ErrCodeServer, true
	default:
		e.Code = ErrCodeServer
	}
	return e
}

// IsSuccess reports whether statusCode is in the 2xx range.
func IsSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

// StatusCode returns the transport status carried by err, or 0.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeTimeout
}

// IsConnection checks if an error is a connection error.
func IsConnection(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeConnection
}

// IsNetwork checks if no response was received.
func IsNetwork(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindNetwork
}

// IsAuth checks if an error is an authentication error.
func IsAuth(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeAuth
}

// IsNotFound checks if an error is a not-found error.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeNotFound
}

// IsRateLimit checks if an error is a rate-limit error.
func IsRateLimit(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeRateLimit
}

// IsServerError checks if an error is a server error.
func IsServerError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeServer
}

// IsMalformed checks if the response body could not be parsed.
func IsMalformed(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindMalformed
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}
