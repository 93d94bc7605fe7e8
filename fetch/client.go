package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/fetchkit/logger"
)

const (
	opGet  = "get"
	opPost = "post"
	opRaw  = "raw"
)

// Client groups Get, Post and RawFetch over one Fetcher. It is safe for
// concurrent use; every call copies what it needs from the Request.
type Client struct {
	config     Config
	base       *url.URL
	origin     *url.URL
	fetcher    Fetcher
	jar        http.CookieJar
	log        *logger.Logger
	tp         trace.TracerProvider
	mp         metric.MeterProvider
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
	metrics    *instruments
}

// Option configures a Client.
type Option func(*Client)

// WithFetcher replaces the default net/http Fetcher.
func WithFetcher(f Fetcher) Option {
	return func(c *Client) { c.fetcher = f }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithCookieJar replaces the client's cookie jar. A nil jar disables cookies
// for every credentials policy.
func WithCookieJar(jar http.CookieJar) Option {
	return func(c *Client) { c.jar = jar }
}

// WithTracerProvider sets the tracer provider. Defaults to the otel global.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) { c.tp = tp }
}

// WithMeterProvider sets the meter provider. Defaults to the otel global.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *Client) { c.mp = mp }
}

// WithPropagator sets the propagator used to inject trace headers.
// Defaults to the otel global.
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(c *Client) { c.propagator = p }
}

// New creates a Client with the given configuration.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	jar, err := NewCookieJar()
	if err != nil {
		return nil, fmt.Errorf("fetch: cookie jar: %w", err)
	}

	c := &Client{
		config: cfg,
		jar:    jar,
		log:    logger.Nop(),
	}
	if cfg.BaseURL != "" {
		c.base, _ = url.Parse(cfg.BaseURL)
		c.origin = c.base
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.fetcher == nil {
		f, err := NewHTTPFetcher(cfg)
		if err != nil {
			return nil, err
		}
		c.fetcher = f
	}
	if c.tp == nil {
		c.tp = otel.GetTracerProvider()
	}
	if c.mp == nil {
		c.mp = otel.GetMeterProvider()
	}
	if c.propagator == nil {
		c.propagator = otel.GetTextMapPropagator()
	}
	c.tracer = c.tp.Tracer(instrumentationName)

	c.metrics, err = newInstruments(c.mp.Meter(instrumentationName))
	if err != nil {
		return nil, err
	}

	c.log = c.log.WithComponent(cfg.Name)
	return c, nil
}

// MustNew is New that panics on error.
func MustNew(cfg Config, opts ...Option) *Client {
	c, err := New(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Config returns the client's effective configuration.
func (c *Client) Config() Config {
	return c.config
}

// Close releases idle connections held by the default Fetcher.
func (c *Client) Close() error {
	if f, ok := c.fetcher.(interface{ CloseIdleConnections() }); ok {
		f.CloseIdleConnections()
	}
	return nil
}

// Get performs a read call and returns an untyped envelope.
func (c *Client) Get(ctx context.Context, req Request) (*Envelope[any], error) {
	return Get[any](ctx, c, req)
}

// Post performs a write call and returns an untyped envelope.
func (c *Client) Post(ctx context.Context, req Request) (*Envelope[any], error) {
	return Post[any](ctx, c, req)
}

// RawFetch forwards the request to the Fetcher with redirects disabled and
// the Accept default merged in. It does not inspect the status, read the
// body, or call the lifecycle hooks. req.Method defaults to GET and
// req.Data, when set, is encoded as in Post. The caller closes the body.
func (c *Client) RawFetch(ctx context.Context, req Request) (*http.Response, error) {
	method := http.MethodGet
	if req.Method != "" {
		method = string(req.Method)
	}

	start := time.Now()
	ctx, span := c.startSpan(ctx, opRaw, method, req.URL)

	pc, err := c.build(ctx, method, &req, req.Data != nil)
	if err != nil {
		e := NewRequestError(err)
		c.finish(ctx, span, opRaw, method, req.URL, "", 0, e, start)
		return nil, e
	}

	resp, err := c.fetcher.Fetch(ctx, pc.fetchRequest())
	if err != nil {
		e := NewNetworkError(err, ctx.Err() != nil)
		c.finish(ctx, span, opRaw, method, pc.target.String(), pc.requestID, 0, e, start)
		return nil, e
	}
	c.storeCookies(req.Credentials, pc.target, resp)
	c.finish(ctx, span, opRaw, method, pc.target.String(), pc.requestID, resp.StatusCode, nil, start)
	return resp, nil
}

// exchange runs one Get or Post call: dispatch, read, parse, and on 2xx hand
// the parsed body to decode. It returns the last known status code.
func (c *Client) exchange(ctx context.Context, op, method string, req *Request, decode func(gjson.Result) error) (statusCode int, err error) {
	start := time.Now()
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	ctx, span := c.startSpan(ctx, op, method, req.URL)
	target, requestID := req.URL, ""
	defer func() {
		c.finish(ctx, span, op, method, target, requestID, statusCode, err, start)
	}()

	pc, buildErr := c.build(ctx, method, req, op == opPost)
	if buildErr != nil {
		return 0, NewRequestError(buildErr)
	}
	target, requestID = pc.target.String(), pc.requestID

	resp, fetchErr := c.fetcher.Fetch(ctx, pc.fetchRequest())
	if fetchErr != nil {
		return 0, NewNetworkError(fetchErr, ctx.Err() != nil)
	}
	defer func() { _ = resp.Body.Close() }()

	statusCode = resp.StatusCode
	c.storeCookies(req.Credentials, pc.target, resp)

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return statusCode, NewMalformedError(statusCode, fmt.Errorf("read response body: %w", readErr))
	}

	root, parseErr := parseBody(body)
	if parseErr != nil {
		return statusCode, NewMalformedError(statusCode, parseErr)
	}

	if !IsSuccess(statusCode) {
		return statusCode, NewHTTPError(statusCode, []byte(dataOrBody(root).Raw))
	}

	if decodeErr := decode(root); decodeErr != nil {
		return statusCode, NewMalformedError(statusCode, fmt.Errorf("decode payload: %w", decodeErr))
	}
	return statusCode, nil
}

// preparedCall is a Request resolved against the client configuration.
type preparedCall struct {
	method    string
	target    *url.URL
	header    http.Header
	body      Body
	requestID string
}

func (p *preparedCall) fetchRequest() *FetchRequest {
	return &FetchRequest{
		URL:      p.target.String(),
		Method:   p.method,
		Header:   p.header,
		Body:     p.body,
		Redirect: RedirectManual,
	}
}

// build resolves the URL, merges headers, encodes the payload when write is
// set, and applies auth, request ID, cookies and trace propagation.
func (c *Client) build(ctx context.Context, method string, req *Request, write bool) (*preparedCall, error) {
	target, err := c.resolve(req.URL, req.Query)
	if err != nil {
		return nil, err
	}

	h := c.headers(req.Headers)

	var body Body
	if write {
		body, err = req.Data.Encode()
		if err != nil {
			return nil, err
		}
		if _, ok := body.(*MultipartBody); ok {
			// The Fetcher supplies the multipart boundary.
			h.Del("Content-Type")
		} else if h.Get("Content-Type") == "" {
			h.Set("Content-Type", "application/json")
		}
	}

	auth := c.config.Auth
	if req.Auth != nil {
		auth = req.Auth
	}
	if err := auth.apply(h, target); err != nil {
		return nil, err
	}

	requestID := ""
	if name := c.config.RequestIDHeader; name != "" {
		requestID = h.Get(name)
		if requestID == "" {
			requestID = uuid.NewString()
			h.Set(name, requestID)
		}
	}

	c.attachCookies(h, req.Credentials, target)
	c.propagator.Inject(ctx, propagation.HeaderCarrier(h))

	return &preparedCall{
		method:    method,
		target:    target,
		header:    h,
		body:      body,
		requestID: requestID,
	}, nil
}

// headers merges, lowest precedence first: the Accept default, the
// User-Agent, client headers, call headers.
func (c *Client) headers(callHeaders map[string]string) http.Header {
	h := make(http.Header)
	h.Set("Accept", DefaultAccept)
	if c.config.UserAgent != "" {
		h.Set("User-Agent", c.config.UserAgent)
	}
	for k, v := range c.config.Headers {
		h.Set(k, v)
	}
	for k, v := range callHeaders {
		h.Set(k, v)
	}
	return h
}

// resolve joins relative URLs onto the base URL and applies query parameters.
func (c *Client) resolve(raw string, query map[string]string) (*url.URL, error) {
	if raw == "" {
		return nil, fmt.Errorf("request URL is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if !u.IsAbs() && c.base != nil {
		raw = strings.TrimRight(c.config.BaseURL, "/") + "/" + strings.TrimLeft(raw, "/")
		if u, err = url.Parse(raw); err != nil {
			return nil, fmt.Errorf("invalid URL %q: %w", raw, err)
		}
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("URL %q is not absolute and no base URL is configured", raw)
	}

	if len(query) > 0 {
		q := u.Query()
		for k, v := range query {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return u, nil
}

// finish ends the span, records metrics and logs the outcome of one call.
func (c *Client) finish(ctx context.Context, span trace.Span, op, method, target, requestID string, statusCode int, err error, start time.Time) {
	d := time.Since(start)
	endSpan(span, statusCode, err)
	c.metrics.record(context.WithoutCancel(ctx), c.config.Name, op, method, statusCode, err, d)

	fields := logger.MergeWithDuration(logger.Fields(
		logger.FieldOperation, op,
		logger.FieldMethod, method,
		logger.FieldURL, target,
		logger.FieldStatusCode, statusCode,
	), d)
	if requestID != "" {
		fields[logger.FieldRequestID] = requestID
	}

	if err == nil {
		c.log.Debug("fetch settled", fields)
		return
	}
	fields[logger.FieldError] = err.Error()
	if e, ok := err.(*Error); ok {
		fields[logger.FieldErrorCode] = e.Code.String()
		if e.Kind == KindHTTP {
			c.log.Debug("fetch failed", fields)
			return
		}
	}
	c.log.Warn("fetch failed", fields)
}
