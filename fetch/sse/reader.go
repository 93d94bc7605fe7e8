// Package sse reads Server-Sent Events from a response obtained through
// fetch.RawFetch.
package sse

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/kbukum/fetchkit/fetch"
)

const maxLineSize = 1 << 20

// Event is one dispatched server-sent event.
type Event struct {
	// Type comes from the "event:" field. Empty for data-only events.
	Type string
	// Data joins the "data:" lines of the event with newlines.
	Data string
	// ID is the last "id:" value seen on the stream.
	ID string
	// Retry is the reconnection delay from the "retry:" field, if any.
	Retry time.Duration
}

// JSON decodes the event data into v.
func (e *Event) JSON(v any) error {
	if err := json.Unmarshal([]byte(e.Data), v); err != nil {
		return fmt.Errorf("sse: decode event %q: %w", e.Type, err)
	}
	return nil
}

// Get queries the event data with a gjson path.
func (e *Event) Get(path string) gjson.Result {
	return gjson.Get(e.Data, path)
}

// Reader reads events from a stream. It is not safe for concurrent use.
type Reader struct {
	scanner *bufio.Scanner
	body    io.ReadCloser
	lastID  string
}

// NewReader wraps a readable stream.
func NewReader(body io.ReadCloser) *Reader {
	s := bufio.NewScanner(body)
	s.Buffer(make([]byte, 0, 4096), maxLineSize)
	return &Reader{scanner: s, body: body}
}

// Open issues req through c.RawFetch with Accept: text/event-stream and
// returns a Reader over the response body. Non-2xx responses are returned
// as *fetch.Error.
func Open(ctx context.Context, c *fetch.Client, req fetch.Request) (*Reader, error) {
	headers := make(map[string]string, len(req.Headers)+1)
	accept := true
	for k, v := range req.Headers {
		if strings.EqualFold(k, "Accept") {
			accept = false
		}
		headers[k] = v
	}
	if accept {
		headers["Accept"] = "text/event-stream"
	}
	req.Headers = headers

	if c == nil {
		c = fetch.Default()
	}
	resp, err := c.RawFetch(ctx, req)
	if err != nil {
		return nil, err
	}
	if !fetch.IsSuccess(resp.StatusCode) {
		defer func() { _ = resp.Body.Close() }()
		b, readErr := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if !gjson.ValidBytes(b) {
			b, _ = json.Marshal(strings.TrimSpace(string(b)))
		}
		e := fetch.NewHTTPError(resp.StatusCode, b)
		if readErr != nil {
			e.Err = fmt.Errorf("read error body: %w", readErr)
		}
		return nil, e
	}
	return NewReader(resp.Body), nil
}

// Next returns the next event, or io.EOF when the stream ends.
func (r *Reader) Next() (*Event, error) {
	event := Event{ID: r.lastID}
	var hasData bool

	for r.scanner.Scan() {
		line := strings.TrimSuffix(r.scanner.Text(), "\r")

		if line == "" {
			if hasData {
				return &event, nil
			}
			event = Event{ID: r.lastID}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value := parseLine(line)
		switch field {
		case "data":
			if hasData {
				event.Data += "\n" + value
			} else {
				event.Data = value
				hasData = true
			}
		case "event":
			event.Type = value
		case "id":
			if !strings.ContainsRune(value, 0) {
				r.lastID = value
				event.ID = value
			}
		case "retry":
			if ms, err := strconv.Atoi(value); err == nil && ms >= 0 {
				event.Retry = time.Duration(ms) * time.Millisecond
			}
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	if hasData {
		return &event, nil
	}
	return nil, io.EOF
}

// LastEventID returns the last id seen, for use in a Last-Event-ID header.
func (r *Reader) LastEventID() string {
	return r.lastID
}

// Close releases the underlying stream.
func (r *Reader) Close() error {
	return r.body.Close()
}

// parseLine splits a field line. A single space after the colon is dropped.
func parseLine(line string) (field, value string) {
	field, value, found := strings.Cut(line, ":")
	if !found {
		return line, ""
	}
	return field, strings.TrimPrefix(value, " ")
}
