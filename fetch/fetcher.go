package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// Body is a request body: JSONBody or *MultipartBody.
type Body interface {
	isBody()
}

// JSONBody is a JSON text request body.
type JSONBody []byte

func (JSONBody) isBody() {}

// RedirectMode selects how 3xx responses are handled.
type RedirectMode int

const (
	// RedirectManual returns 3xx responses to the caller unfollowed.
	RedirectManual RedirectMode = iota
	// RedirectFollow follows redirects transparently.
	RedirectFollow
)

// FetchRequest is what the helper hands to a Fetcher.
type FetchRequest struct {
	URL      string
	Method   string
	Header   http.Header
	Body     Body
	Redirect RedirectMode
}

// Fetcher is the network primitive the helper delegates to. It returns a
// response for every status code and an error only when no response was
// obtained. Implementations must set the multipart Content-Type themselves.
type Fetcher interface {
	Fetch(ctx context.Context, req *FetchRequest) (*http.Response, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, req *FetchRequest) (*http.Response, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, req *FetchRequest) (*http.Response, error) {
	return f(ctx, req)
}

// HTTPFetcher is the net/http backed Fetcher.
type HTTPFetcher struct {
	follow *http.Client
	manual *http.Client
}

// NewHTTPFetcher builds a Fetcher on a clone of the default transport with
// the TLS settings from cfg. Timeouts are applied by the Client through the
// request context, so streaming raw responses are not cut short.
func NewHTTPFetcher(cfg Config) (*HTTPFetcher, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if cfg.TLS != nil {
		tlsCfg, err := cfg.TLS.Build()
		if err != nil {
			return nil, err
		}
		if tlsCfg != nil {
			transport.TLSClientConfig = tlsCfg
		}
	}

	return &HTTPFetcher{
		follow: &http.Client{Transport: transport},
		manual: &http.Client{
			Transport: transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}, nil
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, req *FetchRequest) (*http.Response, error) {
	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header = req.Header.Clone()
	if httpReq.Header == nil {
		httpReq.Header = make(http.Header)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	client := f.manual
	if req.Redirect == RedirectFollow {
		client = f.follow
	}
	return client.Do(httpReq)
}

// CloseIdleConnections releases idle keep-alive connections.
func (f *HTTPFetcher) CloseIdleConnections() {
	f.manual.CloseIdleConnections()
}

// encodeBody converts a Body into a reader. The returned content type is
// only non-empty for multipart bodies.
func encodeBody(body Body) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case JSONBody:
		return bytes.NewReader(b), "", nil
	case *MultipartBody:
		return b.Encode()
	default:
		return nil, "", fmt.Errorf("unsupported body type %T", body)
	}
}
