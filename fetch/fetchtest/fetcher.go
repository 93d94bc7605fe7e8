package fetchtest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/kbukum/fetchkit/fetch"
)

// ErrExhausted is returned by Fetcher when no scripted step is left.
var ErrExhausted = errors.New("fetchtest: no scripted response left")

// Step is one scripted outcome.
type Step struct {
	Status int
	Header http.Header
	Body   string
	// Err fails the fetch itself, as a network failure would.
	Err error
	// BodyErr makes reading the response body fail after Body is consumed.
	BodyErr error
}

// Respond scripts a response with a JSON content type.
func Respond(status int, body string) Step {
	return Step{
		Status: status,
		Header: http.Header{"Content-Type": {"application/json"}},
		Body:   body,
	}
}

// Fail scripts a failure with no response.
func Fail(err error) Step {
	return Step{Err: err}
}

// Fetcher replays scripted steps in order and records every request.
// It implements fetch.Fetcher.
type Fetcher struct {
	mu    sync.Mutex
	steps []Step
	calls []*fetch.FetchRequest
}

// NewFetcher creates a Fetcher that replays steps.
func NewFetcher(steps ...Step) *Fetcher {
	return &Fetcher{steps: steps}
}

// Push appends steps.
func (f *Fetcher) Push(steps ...Step) {
	f.mu.Lock()
	f.steps = append(f.steps, steps...)
	f.mu.Unlock()
}

// Fetch implements fetch.Fetcher.
func (f *Fetcher) Fetch(ctx context.Context, req *fetch.FetchRequest) (*http.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	if len(f.steps) == 0 {
		f.mu.Unlock()
		return nil, ErrExhausted
	}
	step := f.steps[0]
	f.steps = f.steps[1:]
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if step.Err != nil {
		return nil, step.Err
	}

	header := step.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	var body io.Reader = strings.NewReader(step.Body)
	if step.BodyErr != nil {
		body = io.MultiReader(body, errReader{step.BodyErr})
	}
	return &http.Response{
		StatusCode: step.Status,
		Status:     http.StatusText(step.Status),
		Header:     header,
		Body:       io.NopCloser(body),
	}, nil
}

// Calls returns the requests seen so far.
func (f *Fetcher) Calls() []*fetch.FetchRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fetch.FetchRequest(nil), f.calls...)
}

// Remaining returns the number of unused steps.
func (f *Fetcher) Remaining() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.steps)
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }
