package fetch_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/fetchkit/fetch"
	"github.com/kbukum/fetchkit/fetch/fetchtest"
	"github.com/kbukum/fetchkit/logger"
)

func newClient(t *testing.T, baseURL string, opts ...fetch.Option) *fetch.Client {
	t.Helper()
	c, err := fetch.New(fetch.Config{BaseURL: baseURL}, opts...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func asError(t *testing.T, err error) *fetch.Error {
	t.Helper()
	var e *fetch.Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *fetch.Error, got %T: %v", err, err)
	}
	return e
}

func TestGet_UnwrapsData(t *testing.T) {
	s := fetchtest.NewServer(t)
	s.Data(http.MethodGet, "/numbers", http.StatusOK, []int{1, 2, 3})
	c := newClient(t, s.URL)

	env, err := fetch.Get[[]int](context.Background(), c, fetch.Request{URL: "/numbers"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Status != fetch.StatusSuccess || env.StatusCode != 200 {
		t.Errorf("envelope = %+v", env)
	}
	if !reflect.DeepEqual(env.Data, []int{1, 2, 3}) {
		t.Errorf("Data = %v, want [1 2 3]", env.Data)
	}

	rec, _ := s.Last()
	if rec.Method != http.MethodGet {
		t.Errorf("method = %s", rec.Method)
	}
	if got := rec.Header.Get("Accept"); got != "application/json" {
		t.Errorf("Accept = %q, want application/json", got)
	}
}

func TestGet_EntireResponse(t *testing.T) {
	s := fetchtest.NewServer(t)
	s.Data(http.MethodGet, "/numbers", http.StatusOK, []int{1, 2, 3})
	c := newClient(t, s.URL)

	env, err := c.Get(context.Background(), fetch.Request{URL: "/numbers", ReturnEntireResponse: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body, ok := env.Data.(map[string]any)
	if !ok {
		t.Fatalf("Data = %T, want the whole body", env.Data)
	}
	if !reflect.DeepEqual(body["data"], []any{1.0, 2.0, 3.0}) {
		t.Errorf("body = %v", body)
	}
}

func TestGet_NoDataField(t *testing.T) {
	s := fetchtest.NewServer(t)
	s.JSON(http.MethodGet, "/me", http.StatusOK, map[string]string{"name": "Ada"})
	c := newClient(t, s.URL)

	env, err := fetch.Get[map[string]string](context.Background(), c, fetch.Request{URL: "/me"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Data["name"] != "Ada" {
		t.Errorf("Data = %v", env.Data)
	}
}

func TestGet_HTTPError(t *testing.T) {
	s := fetchtest.NewServer(t)
	s.Data(http.MethodGet, "/missing", http.StatusNotFound, "not found")
	c := newClient(t, s.URL)

	env, err := c.Get(context.Background(), fetch.Request{URL: "/missing"})
	if env != nil {
		t.Errorf("expected nil envelope, got %+v", env)
	}
	e := asError(t, err)
	if e.StatusCode != 404 || e.Data != "not found" || e.Kind != fetch.KindHTTP {
		t.Errorf("error = %+v", e)
	}
	if !fetch.IsNotFound(err) {
		t.Error("expected IsNotFound")
	}
	if e.Status() != fetch.StatusError {
		t.Error("expected error status")
	}
}

func TestGet_HTTPErrorWithoutData(t *testing.T) {
	s := fetchtest.NewServer(t)
	s.JSON(http.MethodGet, "/broken", http.StatusInternalServerError, map[string]string{"error": "db down"})
	c := newClient(t, s.URL)

	_, err := c.Get(context.Background(), fetch.Request{URL: "/broken"})
	e := asError(t, err)
	if e.StatusCode != 500 || !fetch.IsServerError(err) {
		t.Errorf("error = %+v", e)
	}
	if m, ok := e.Data.(map[string]any); !ok || m["error"] != "db down" {
		t.Errorf("Data = %v, want the whole body", e.Data)
	}
}

func TestGet_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"html on 200", http.StatusOK, "<html>oops</html>"},
		{"empty 204", http.StatusNoContent, ""},
		{"text on 502", http.StatusBadGateway, "Bad Gateway"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := fetchtest.NewServer(t)
			s.Raw(http.MethodGet, "/x", tt.status, "text/html", tt.body)
			c := newClient(t, s.URL)

			_, err := c.Get(context.Background(), fetch.Request{URL: "/x"})
			e := asError(t, err)
			if e.Kind != fetch.KindMalformed || e.StatusCode != tt.status {
				t.Errorf("error = %+v, want malformed with status %d", e, tt.status)
			}
			if _, ok := e.Data.(string); !ok {
				t.Errorf("Data = %T, want failure message", e.Data)
			}
		})
	}
}

func TestGet_BodyReadFailure(t *testing.T) {
	f := fetchtest.NewFetcher(fetchtest.Step{Status: 200, Body: `{"data":`, BodyErr: io.ErrUnexpectedEOF})
	c := newClient(t, "https://api.example.com", fetch.WithFetcher(f))

	_, err := c.Get(context.Background(), fetch.Request{URL: "/x"})
	e := asError(t, err)
	if !fetch.IsMalformed(err) || e.StatusCode != 200 {
		t.Errorf("error = %+v", e)
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("expected the read error to be wrapped")
	}
}

func TestGet_DecodeFailure(t *testing.T) {
	s := fetchtest.NewServer(t)
	s.Data(http.MethodGet, "/x", http.StatusOK, "text")
	c := newClient(t, s.URL)

	_, err := fetch.Get[[]int](context.Background(), c, fetch.Request{URL: "/x"})
	if !fetch.IsMalformed(err) || fetch.StatusCode(err) != 200 {
		t.Errorf("expected malformed error with status 200, got %v", err)
	}
}

func TestGet_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	var settled bool
	c := newClient(t, url)
	_, err := c.Get(context.Background(), fetch.Request{URL: "/x", OnSettled: func() { settled = true }})

	e := asError(t, err)
	if e.StatusCode != 0 || e.Kind != fetch.KindNetwork {
		t.Errorf("error = %+v, want status 0 network error", e)
	}
	if !fetch.IsConnection(err) || !fetch.IsRetryable(err) {
		t.Errorf("unexpected classification %s", e.Code)
	}
	if !settled {
		t.Error("OnSettled not called on network failure")
	}
}

func TestGet_Timeout(t *testing.T) {
	s := fetchtest.NewServer(t)
	s.Handle(http.MethodGet, "/slow", func(c *gin.Context) {
		select {
		case <-c.Request.Context().Done():
		case <-time.After(2 * time.Second):
		}
		c.JSON(http.StatusOK, gin.H{"data": 1})
	})

	c, err := fetch.New(fetch.Config{BaseURL: s.URL, Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer c.Close()

	_, err = c.Get(context.Background(), fetch.Request{URL: "/slow"})
	if !fetch.IsTimeout(err) || fetch.StatusCode(err) != 0 {
		t.Errorf("expected timeout with status 0, got %v", err)
	}
}

func TestGet_ZeroTimeoutHasNoDeadline(t *testing.T) {
	var deadlines []bool
	fetcher := fetch.FetcherFunc(func(ctx context.Context, req *fetch.FetchRequest) (*http.Response, error) {
		_, ok := ctx.Deadline()
		deadlines = append(deadlines, ok)
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{},
			Body:       io.NopCloser(strings.NewReader(`{"data":1}`)),
		}, nil
	})

	c, err := fetch.New(fetch.Config{BaseURL: "https://api.example.com"}, fetch.WithFetcher(fetcher))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.Get(context.Background(), fetch.Request{URL: "/a"}); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := c.Post(context.Background(), fetch.Request{URL: "/a"}); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if !reflect.DeepEqual(deadlines, []bool{false, false}) {
		t.Errorf("deadlines = %v, want none", deadlines)
	}

	if _, err := fetch.New(fetch.Config{Timeout: -time.Second}); err == nil {
		t.Error("expected error for negative timeout")
	}
}

func TestGet_RedirectNotFollowed(t *testing.T) {
	s := fetchtest.NewServer(t)
	s.Handle(http.MethodGet, "/old", func(c *gin.Context) {
		c.Header("Location", "/new")
		c.JSON(http.StatusFound, gin.H{"data": "moved"})
	})
	s.Data(http.MethodGet, "/new", http.StatusOK, "moved")
	c := newClient(t, s.URL)

	_, err := c.Get(context.Background(), fetch.Request{URL: "/old"})
	e := asError(t, err)
	if e.StatusCode != http.StatusFound || e.Code != fetch.ErrCodeRedirect {
		t.Errorf("error = %+v, want unfollowed 302", e)
	}
	if n := len(s.Requests()); n != 1 {
		t.Errorf("server saw %d requests, want 1", n)
	}
}

func TestGet_HeadersAndQuery(t *testing.T) {
	s := fetchtest.NewServer(t)
	s.Data(http.MethodGet, "/search", http.StatusOK, nil)
	c := newClient(t, s.URL)

	_, err := c.Get(context.Background(), fetch.Request{
		URL:     "/search",
		Query:   map[string]string{"q": "go"},
		Headers: map[string]string{"accept": "application/xml", "X-Trace": "1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, _ := s.Last()
	if got := rec.Header.Get("Accept"); got != "application/xml" {
		t.Errorf("Accept = %q, want caller override", got)
	}
	if got := rec.Header.Get("X-Trace"); got != "1" {
		t.Errorf("X-Trace = %q", got)
	}
	if got := rec.Query.Get("q"); got != "go" {
		t.Errorf("q = %q", got)
	}
	if !strings.HasPrefix(rec.Header.Get("User-Agent"), "fetchkit/") {
		t.Errorf("User-Agent = %q", rec.Header.Get("User-Agent"))
	}
}

func TestHooks_Order(t *testing.T) {
	tests := []struct {
		name string
		step fetchtest.Step
	}{
		{"success", fetchtest.Respond(200, `{"data":1}`)},
		{"http error", fetchtest.Respond(500, `{"data":"x"}`)},
		{"network error", fetchtest.Fail(errors.New("refused"))},
		{"malformed", fetchtest.Respond(200, `nope`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var events []string
			scripted := fetchtest.NewFetcher(tt.step, tt.step)
			f := fetch.FetcherFunc(func(ctx context.Context, req *fetch.FetchRequest) (*http.Response, error) {
				events = append(events, "fetch")
				return scripted.Fetch(ctx, req)
			})
			c := newClient(t, "https://api.example.com", fetch.WithFetcher(f))

			req := fetch.Request{
				URL:       "/x",
				OnStart:   func() { events = append(events, "start") },
				OnSettled: func() { events = append(events, "settled") },
			}
			_, _ = c.Get(context.Background(), req)
			_, _ = c.Post(context.Background(), req)

			want := []string{"start", "fetch", "settled", "start", "fetch", "settled"}
			if !reflect.DeepEqual(events, want) {
				t.Errorf("events = %v, want %v", events, want)
			}
		})
	}
}

func TestPost_JSON(t *testing.T) {
	s := fetchtest.NewServer(t)
	s.Data(http.MethodPost, "/users", http.StatusCreated, map[string]int{"id": 7})
	s.Data(http.MethodPatch, "/users/7", http.StatusOK, map[string]int{"id": 7})
	c := newClient(t, s.URL)
	ctx := context.Background()

	env, err := c.Post(ctx, fetch.Request{
		URL:  "/users",
		Data: fetch.Payload{"name": fetch.Value("Bob"), "age": fetch.Value(30)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.StatusCode != 201 {
		t.Errorf("StatusCode = %d", env.StatusCode)
	}
	if m, _ := env.Data.(map[string]any); m["id"] != 7.0 {
		t.Errorf("Data = %v", env.Data)
	}

	rec, _ := s.Last()
	if rec.Method != http.MethodPost || rec.MediaType != "application/json" {
		t.Errorf("method %s media type %q", rec.Method, rec.MediaType)
	}
	var sent map[string]any
	if err := json.Unmarshal(rec.Body, &sent); err != nil || sent["name"] != "Bob" || sent["age"] != 30.0 {
		t.Errorf("sent body = %s (%v)", rec.Body, err)
	}

	_, err = c.Post(ctx, fetch.Request{URL: "/users/7", Method: fetch.MethodPatch, Data: fetch.Payload{"age": fetch.Value(31)}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec, _ := s.Last(); rec.Method != http.MethodPatch {
		t.Errorf("method = %s, want PATCH", rec.Method)
	}
}

func TestPost_Multipart(t *testing.T) {
	s := fetchtest.NewServer(t)
	s.Data(http.MethodPost, "/upload", http.StatusOK, "stored")

	var seen *fetch.FetchRequest
	httpFetcher, err := fetch.NewHTTPFetcher(fetch.Config{})
	if err != nil {
		t.Fatal(err)
	}
	spy := fetch.FetcherFunc(func(ctx context.Context, req *fetch.FetchRequest) (*http.Response, error) {
		seen = req
		return httpFetcher.Fetch(ctx, req)
	})
	c := newClient(t, s.URL, fetch.WithFetcher(spy))

	env, err := fetch.Post[string](context.Background(), c, fetch.Request{
		URL:     "/upload",
		Headers: map[string]string{"Content-Type": "application/json"},
		Data: fetch.Payload{
			"album":  fetch.Value("summer"),
			"cover":  fetch.File{FileName: "cover.png", ContentType: "image/png", Data: []byte("PNG")},
			"photos": fetch.Files{{FileName: "a.jpg", Data: []byte("A")}, {FileName: "b.jpg", Data: []byte("B")}},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Data != "stored" {
		t.Errorf("Data = %q", env.Data)
	}

	if ct := seen.Header.Get("Content-Type"); ct != "" {
		t.Errorf("helper set Content-Type %q on a multipart call", ct)
	}
	if _, ok := seen.Body.(*fetch.MultipartBody); !ok {
		t.Errorf("body = %T, want *fetch.MultipartBody", seen.Body)
	}

	rec, _ := s.Last()
	if rec.MediaType != "multipart/form-data" {
		t.Fatalf("server saw media type %q", rec.MediaType)
	}
	if got := rec.Form["album"]; !reflect.DeepEqual(got, []string{"summer"}) {
		t.Errorf("album = %v", got)
	}
	if got := rec.Files["cover"]; len(got) != 1 || string(got[0].Data) != "PNG" || got[0].ContentType != "image/png" {
		t.Errorf("cover = %+v", got)
	}
	if got := rec.Files["photos[]"]; len(got) != 2 || got[0].FileName != "a.jpg" || got[1].FileName != "b.jpg" {
		t.Errorf("photos[] = %+v", got)
	}
}

func TestPost_MessageReturnsWholeBody(t *testing.T) {
	body := `{"message":"created","data":{"id":7}}`
	f := fetchtest.NewFetcher(fetchtest.Respond(200, body), fetchtest.Respond(200, body))
	c := newClient(t, "https://api.example.com", fetch.WithFetcher(f))
	ctx := context.Background()

	post, err := fetch.Post[json.RawMessage](ctx, c, fetch.Request{URL: "/x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(post.Data) != body {
		t.Errorf("Post data = %s, want whole body", post.Data)
	}

	get, err := fetch.Get[json.RawMessage](ctx, c, fetch.Request{URL: "/x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(get.Data) != `{"id":7}` {
		t.Errorf("Get data = %s, want the data field", get.Data)
	}
}

func TestPost_DefaultsToPOSTWithJSON(t *testing.T) {
	f := fetchtest.NewFetcher(fetchtest.Respond(200, `{}`))
	c := newClient(t, "https://api.example.com", fetch.WithFetcher(f))

	if _, err := c.Post(context.Background(), fetch.Request{URL: "/x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	call := f.Calls()[0]
	if call.Method != http.MethodPost {
		t.Errorf("method = %s", call.Method)
	}
	if call.Header.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", call.Header.Get("Content-Type"))
	}
	if call.Redirect != fetch.RedirectManual {
		t.Error("redirects must stay disabled")
	}
}

func TestPost_UnencodablePayload(t *testing.T) {
	f := fetchtest.NewFetcher()
	c := newClient(t, "https://api.example.com", fetch.WithFetcher(f))

	var settled bool
	_, err := c.Post(context.Background(), fetch.Request{
		URL:       "/x",
		Data:      fetch.Payload{"ch": fetch.Value(make(chan int))},
		OnSettled: func() { settled = true },
	})
	e := asError(t, err)
	if e.StatusCode != 0 || e.Code != fetch.ErrCodeValidation {
		t.Errorf("error = %+v", e)
	}
	if len(f.Calls()) != 0 {
		t.Error("nothing should be dispatched")
	}
	if !settled {
		t.Error("OnSettled not called")
	}
}

func TestRawFetch(t *testing.T) {
	s := fetchtest.NewServer(t)
	s.Raw(http.MethodGet, "/file", http.StatusInternalServerError, "text/plain", "raw bytes")
	s.Raw(http.MethodPut, "/file", http.StatusOK, "text/plain", "put")
	c := newClient(t, s.URL)
	ctx := context.Background()

	resp, err := c.RawFetch(ctx, fetch.Request{
		URL:       "/file",
		OnStart:   func() { t.Error("RawFetch must not call OnStart") },
		OnSettled: func() { t.Error("RawFetch must not call OnSettled") },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 500 {
		t.Errorf("StatusCode = %d", resp.StatusCode)
	}
	data, _ := io.ReadAll(resp.Body)
	if string(data) != "raw bytes" {
		t.Errorf("body = %q", data)
	}
	if rec, _ := s.Last(); rec.Header.Get("Accept") != "application/json" {
		t.Errorf("Accept = %q", rec.Header.Get("Accept"))
	}

	resp, err = c.RawFetch(ctx, fetch.Request{URL: "/file", Method: fetch.MethodPut, Data: fetch.Payload{"a": fetch.Value(1)}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	rec, _ := s.Last()
	if rec.Method != http.MethodPut || !bytes.Equal(rec.Body, []byte(`{"a":1}`)) {
		t.Errorf("raw put = %s %s", rec.Method, rec.Body)
	}
}

func TestRawFetch_NetworkFailure(t *testing.T) {
	f := fetchtest.NewFetcher(fetchtest.Fail(errors.New("refused")))
	c := newClient(t, "https://api.example.com", fetch.WithFetcher(f))

	resp, err := c.RawFetch(context.Background(), fetch.Request{URL: "/x"})
	if resp != nil || !fetch.IsNetwork(err) {
		t.Errorf("RawFetch() = %v, %v", resp, err)
	}
}

func TestCredentials(t *testing.T) {
	s := fetchtest.NewServer(t)
	s.Handle(http.MethodPost, "/login", func(c *gin.Context) {
		c.SetCookie("session", "abc", 3600, "/", "", false, true)
		c.JSON(http.StatusOK, gin.H{"data": "ok"})
	})
	s.Data(http.MethodGet, "/me", http.StatusOK, "me")
	ctx := context.Background()

	tests := []struct {
		name       string
		cred       fetch.Credentials
		wantCookie bool
	}{
		{"same-origin", fetch.CredentialsSameOrigin, true},
		{"include", fetch.CredentialsInclude, true},
		{"omit", fetch.CredentialsOmit, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(t, s.URL)
			if _, err := c.Post(ctx, fetch.Request{URL: "/login", Credentials: tt.cred}); err != nil {
				t.Fatalf("login: %v", err)
			}
			if _, err := c.Get(ctx, fetch.Request{URL: "/me", Credentials: tt.cred}); err != nil {
				t.Fatalf("me: %v", err)
			}
			rec, _ := s.Last()
			got := strings.Contains(rec.Header.Get("Cookie"), "session=abc")
			if got != tt.wantCookie {
				t.Errorf("cookie sent = %v, want %v (header %q)", got, tt.wantCookie, rec.Header.Get("Cookie"))
			}
		})
	}
}

func TestCredentials_SameOriginExcludesOtherHosts(t *testing.T) {
	s := fetchtest.NewServer(t)
	s.Handle(http.MethodGet, "/login", func(c *gin.Context) {
		c.SetCookie("session", "abc", 3600, "/", "", false, true)
		c.JSON(http.StatusOK, gin.H{"data": "ok"})
	})

	// No BaseURL: absolute URLs are never same-origin.
	c := newClient(t, "")
	ctx := context.Background()
	if _, err := c.Get(ctx, fetch.Request{URL: s.URL + "/login"}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get(ctx, fetch.Request{URL: s.URL + "/login", Credentials: fetch.CredentialsInclude}); err != nil {
		t.Fatal(err)
	}
	if rec, _ := s.Last(); rec.Header.Get("Cookie") != "" {
		t.Errorf("cookie leaked from a same-origin call: %q", rec.Header.Get("Cookie"))
	}
}

func TestAuthAndRequestID(t *testing.T) {
	s := fetchtest.NewServer(t)
	s.Data(http.MethodGet, "/secure", http.StatusOK, "ok")

	c, err := fetch.New(fetch.Config{
		BaseURL:         s.URL,
		Auth:            fetch.BearerAuth("client-token"),
		RequestIDHeader: "X-Request-Id",
	})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	ctx := context.Background()

	if _, err := c.Get(ctx, fetch.Request{URL: "/secure"}); err != nil {
		t.Fatal(err)
	}
	rec, _ := s.Last()
	if rec.Header.Get("Authorization") != "Bearer client-token" {
		t.Errorf("Authorization = %q", rec.Header.Get("Authorization"))
	}
	if rec.Header.Get("X-Request-Id") == "" {
		t.Error("expected a generated request id")
	}

	_, err = c.Get(ctx, fetch.Request{URL: "/secure", Auth: fetch.APIKeyAuth("k"), Headers: map[string]string{"X-Request-Id": "fixed"}})
	if err != nil {
		t.Fatal(err)
	}
	rec, _ = s.Last()
	if rec.Header.Get("Authorization") != "" || rec.Header.Get("X-API-Key") != "k" {
		t.Errorf("per-call auth not applied: %v", rec.Header)
	}
	if rec.Header.Get("X-Request-Id") != "fixed" {
		t.Errorf("X-Request-Id = %q, want caller value", rec.Header.Get("X-Request-Id"))
	}
}

func TestDefaultClient(t *testing.T) {
	f := fetchtest.NewFetcher(fetchtest.Respond(200, `{"data":"pong"}`), fetchtest.Respond(204, ``))
	prev := fetch.Default()
	fetch.SetDefault(newClient(t, "https://api.example.com", fetch.WithFetcher(f)))
	defer fetch.SetDefault(prev)

	env, err := fetch.Get[string](context.Background(), nil, fetch.Request{URL: "/ping"})
	if err != nil || env.Data != "pong" {
		t.Fatalf("Get() = %+v, %v", env, err)
	}

	resp, err := fetch.RawFetch(context.Background(), fetch.Request{URL: "/ping"})
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != 204 {
		t.Errorf("StatusCode = %d", resp.StatusCode)
	}
}

func TestTelemetry(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	f := fetchtest.NewFetcher(fetchtest.Respond(200, `{"data":1}`), fetchtest.Respond(404, `{"data":"nope"}`))
	c := newClient(t, "https://api.example.com",
		fetch.WithFetcher(f),
		fetch.WithTracerProvider(tp),
		fetch.WithMeterProvider(mp),
		fetch.WithPropagator(propagation.TraceContext{}),
	)
	ctx := context.Background()

	_, _ = c.Get(ctx, fetch.Request{URL: "/ok"})
	_, _ = c.Get(ctx, fetch.Request{URL: "/missing"})

	if tp := f.Calls()[0].Header.Get("Traceparent"); tp == "" {
		t.Error("expected traceparent header on the outgoing request")
	}

	spans := sr.Ended()
	if len(spans) != 2 {
		t.Fatalf("ended spans = %d, want 2", len(spans))
	}
	if spans[0].Name() != "fetch.get" {
		t.Errorf("span name = %q", spans[0].Name())
	}
	if spans[1].Status().Code.String() != "Error" {
		t.Errorf("404 span status = %v", spans[1].Status())
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatal(err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "fetch.requests" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("fetch.requests data = %T", m.Data)
			}
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	if total != 2 {
		t.Errorf("fetch.requests total = %d, want 2", total)
	}
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "fetchkit", &buf)

	f := fetchtest.NewFetcher(fetchtest.Fail(errors.New("refused")))
	c := newClient(t, "https://api.example.com", fetch.WithFetcher(f), fetch.WithLogger(log))
	_, _ = c.Get(context.Background(), fetch.Request{URL: "/x"})

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected one JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["level"] != "warn" || entry[logger.FieldErrorCode] != "connection" {
		t.Errorf("log entry = %v", entry)
	}
	if entry[logger.FieldURL] != "https://api.example.com/x" {
		t.Errorf("url = %v", entry[logger.FieldURL])
	}
}
