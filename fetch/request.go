package fetch

import (
	"fmt"
	"net/http"
	"strings"
)

// Method is the verb used by Post.
type Method string

const (
	// MethodPost creates a resource. It is the default.
	MethodPost Method = http.MethodPost
	// MethodPut replaces a resource.
	MethodPut Method = http.MethodPut
	// MethodPatch partially updates a resource.
	MethodPatch Method = http.MethodPatch
	// MethodDelete deletes a resource.
	MethodDelete Method = http.MethodDelete
)

// ParseMethod converts a verb name into a write Method.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToUpper(s)); m {
	case "":
		return MethodPost, nil
	case MethodPost, MethodPut, MethodPatch, MethodDelete:
		return m, nil
	default:
		return "", fmt.Errorf("fetch: unsupported write method %q", s)
	}
}

// Credentials controls whether cookies are sent and stored.
type Credentials int

const (
	// CredentialsSameOrigin sends and stores cookies only for the client's
	// BaseURL origin.
	CredentialsSameOrigin Credentials = iota
	// CredentialsInclude always sends and stores cookies.
	CredentialsInclude
	// CredentialsOmit never sends cookies and ignores Set-Cookie.
	CredentialsOmit
)

// String returns the policy name.
func (c Credentials) String() string {
	switch c {
	case CredentialsInclude:
		return "include"
	case CredentialsOmit:
		return "omit"
	default:
		return "same-origin"
	}
}

// ParseCredentials parses "same-origin", "include" or "omit".
func ParseCredentials(s string) (Credentials, error) {
	switch strings.ToLower(s) {
	case "", "same-origin":
		return CredentialsSameOrigin, nil
	case "include":
		return CredentialsInclude, nil
	case "omit":
		return CredentialsOmit, nil
	default:
		return 0, fmt.Errorf("fetch: unknown credentials policy %q", s)
	}
}

// Request describes one call. It is read, never modified, by the client.
type Request struct {
	// URL is the target. Paths are resolved against Config.BaseURL.
	URL string
	// Headers are merged over the client defaults and the
	// Accept: application/json default.
	Headers map[string]string
	// Query are URL query parameters.
	Query map[string]string
	// OnStart is called once before dispatch.
	OnStart func()
	// OnSettled is called once after the call settles, whatever the outcome.
	OnSettled func()
	// Data is the write payload. Ignored by Get.
	Data Payload
	// Method is the write verb. Ignored by Get; defaults to MethodPost.
	Method Method
	// Credentials is the cookie policy for this call.
	Credentials Credentials
	// ReturnEntireResponse disables "data" unwrapping on success.
	ReturnEntireResponse bool
	// Auth overrides the client-level auth for this call.
	Auth *AuthConfig
}

func (r *Request) writeMethod() string {
	if r.Method == "" {
		return string(MethodPost)
	}
	return string(r.Method)
}

// Status tags an envelope.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Envelope is the normalized result of Get and Post.
type Envelope[T any] struct {
	// Status is StatusSuccess for envelopes returned without error.
	Status Status `json:"status"`
	// StatusCode is the transport status code.
	StatusCode int `json:"statusCode"`
	// Data is the unwrapped response payload.
	Data T `json:"data"`
}
