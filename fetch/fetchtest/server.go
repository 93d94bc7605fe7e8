// Package fetchtest provides test doubles for code built on package fetch:
// a recording HTTP server backed by gin and a scripted Fetcher.
package fetchtest

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
)

// Recorded is one request as received by Server.
type Recorded struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
	// MediaType is the Content-Type without parameters.
	MediaType string
	// Form and Files hold the parsed parts of a multipart/form-data body.
	Form  map[string][]string
	Files map[string][]Upload
}

// Upload is a file part of a multipart request.
type Upload struct {
	FileName    string
	ContentType string
	Data        []byte
}

// DataResponse is the {"data": ...} body most handlers answer with.
type DataResponse struct {
	Data any `json:"data"`
}

// Server is an httptest.Server with a gin router that records every request
// before routing it.
type Server struct {
	*httptest.Server

	engine *gin.Engine

	mu       sync.Mutex
	requests []Recorded
}

// NewServer starts a Server that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &Server{engine: gin.New()}
	s.engine.Use(s.record)
	s.Server = httptest.NewServer(s.engine)
	t.Cleanup(s.Close)
	return s
}

// Handle registers a gin handler.
func (s *Server) Handle(method, path string, h gin.HandlerFunc) {
	s.engine.Handle(method, path, h)
}

// JSON registers a handler that answers with status and body encoded as JSON.
func (s *Server) JSON(method, path string, status int, body any) {
	s.Handle(method, path, func(c *gin.Context) {
		c.JSON(status, body)
	})
}

// Data registers a handler that answers with status and {"data": data}.
func (s *Server) Data(method, path string, status int, data any) {
	s.JSON(method, path, status, DataResponse{Data: data})
}

// Raw registers a handler that answers with status and the body verbatim.
func (s *Server) Raw(method, path string, status int, contentType, body string) {
	s.Handle(method, path, func(c *gin.Context) {
		c.Data(status, contentType, []byte(body))
	})
}

// Requests returns a copy of the recorded requests.
func (s *Server) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Recorded(nil), s.requests...)
}

// Last returns the most recent request.
func (s *Server) Last() (Recorded, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Recorded{}, false
	}
	return s.requests[len(s.requests)-1], true
}

// Reset forgets recorded requests.
func (s *Server) Reset() {
	s.mu.Lock()
	s.requests = nil
	s.mu.Unlock()
}

func (s *Server) record(c *gin.Context) {
	body, _ := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	rec := Recorded{
		Method: c.Request.Method,
		Path:   c.Request.URL.Path,
		Query:  c.Request.URL.Query(),
		Header: c.Request.Header.Clone(),
		Body:   body,
	}

	mediaType, params, err := mime.ParseMediaType(c.GetHeader("Content-Type"))
	if err == nil {
		rec.MediaType = mediaType
		if strings.HasPrefix(mediaType, "multipart/") {
			rec.Form, rec.Files = parseMultipart(body, params["boundary"])
		}
	}

	s.mu.Lock()
	s.requests = append(s.requests, rec)
	s.mu.Unlock()

	c.Next()
}

func parseMultipart(body []byte, boundary string) (map[string][]string, map[string][]Upload) {
	form := map[string][]string{}
	files := map[string][]Upload{}

	mr := multipart.NewReader(bytes.NewReader(body), boundary)
	for {
		p, err := mr.NextPart()
		if err != nil {
			break
		}
		data, _ := io.ReadAll(p)
		name := p.FormName()
		if p.FileName() != "" {
			files[name] = append(files[name], Upload{
				FileName:    p.FileName(),
				ContentType: p.Header.Get("Content-Type"),
				Data:        data,
			})
			continue
		}
		form[name] = append(form[name], string(data))
	}
	return form, files
}
