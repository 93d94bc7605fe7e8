package fetch

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/tidwall/gjson"
)

var defaultClient atomic.Pointer[Client]

// Default returns the package-level client used when a nil *Client is passed
// to Get or Post, and by the package-level RawFetch. It is created on first
// use with a zero Config.
func Default() *Client {
	if c := defaultClient.Load(); c != nil {
		return c
	}
	c := MustNew(Config{})
	if defaultClient.CompareAndSwap(nil, c) {
		return c
	}
	return defaultClient.Load()
}

// SetDefault replaces the package-level client.
func SetDefault(c *Client) {
	defaultClient.Store(c)
}

// Get performs a GET with redirects disabled and parses the JSON response.
//
// On 2xx the envelope carries the body's "data" field, or the whole body when
// "data" is absent or ReturnEntireResponse is set. Every failure is returned
// as an *Error: non-2xx responses carry the body's "data" field (or the whole
// body) and the status, network failures carry status 0, and unparseable
// bodies carry the last known status. OnStart runs before dispatch and
// OnSettled after the call settles.
func Get[T any](ctx context.Context, c *Client, req Request) (*Envelope[T], error) {
	return send[T](ctx, c, opGet, http.MethodGet, req, readPayload)
}

// Post performs a write call with req.Method, POST by default.
//
// When req.Data holds a File or Files field the payload is sent as
// multipart/form-data and no Content-Type header is set by the client, so the
// Fetcher supplies the boundary. Otherwise the payload is sent as JSON with
// Content-Type: application/json.
//
// Results follow Get, except that on 2xx a body with a truthy "message"
// field is returned whole.
func Post[T any](ctx context.Context, c *Client, req Request) (*Envelope[T], error) {
	return send[T](ctx, c, opPost, req.writeMethod(), req, writePayload)
}

// RawFetch forwards req through the default client. See Client.RawFetch.
func RawFetch(ctx context.Context, req Request) (*http.Response, error) {
	return Default().RawFetch(ctx, req)
}

func send[T any](ctx context.Context, c *Client, op, method string, req Request, pick func(gjson.Result, bool) gjson.Result) (*Envelope[T], error) {
	if c == nil {
		c = Default()
	}

	if req.OnStart != nil {
		req.OnStart()
	}
	if req.OnSettled != nil {
		defer req.OnSettled()
	}

	var data T
	code, err := c.exchange(ctx, op, method, &req, func(root gjson.Result) error {
		return json.Unmarshal([]byte(pick(root, req.ReturnEntireResponse).Raw), &data)
	})
	if err != nil {
		return nil, err
	}

	return &Envelope[T]{
		Status:     StatusSuccess,
		StatusCode: code,
		Data:       data,
	}, nil
}
