package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/kbukum/fetchkit/fetch"
)

type requestOptions struct {
	headers []string
	params  []string
	entire  bool
	query   string
}

func (r *requestOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&r.headers, "header", "H", nil, "request header 'Name: value' (repeatable)")
	cmd.Flags().StringArrayVarP(&r.params, "param", "p", nil, "query parameter key=value (repeatable)")
	cmd.Flags().BoolVar(&r.entire, "entire", false, "print the whole response body instead of its data field")
	cmd.Flags().StringVarP(&r.query, "query", "q", "", "print only the part of data matching a gjson path")
}

// request builds the common part of a fetch.Request.
func (r *requestOptions) request(s *session, url string) (fetch.Request, error) {
	headers, err := parseHeaders(r.headers)
	if err != nil {
		return fetch.Request{}, err
	}
	params, err := parsePairs(r.params, "param")
	if err != nil {
		return fetch.Request{}, err
	}

	req := fetch.Request{
		URL:                  url,
		Headers:              headers,
		Credentials:          s.credentials,
		ReturnEntireResponse: r.entire,
	}
	if len(params) > 0 {
		req.Query = params
	}
	return req, nil
}

func newGetCmd(root *rootOptions) *cobra.Command {
	var opts requestOptions

	cmd := &cobra.Command{
		Use:   "get URL",
		Short: "Read a resource",
		Example: `  fetchkit get https://api.example.com/users/1
  fetchkit --base-url https://api.example.com get /users -p page=2 -q '0.name'`,
		Args: cobra.ExactArgs(1),
		RunE: root.run(func(ctx context.Context, s *session, args []string) error {
			req, err := opts.request(s, args[0])
			if err != nil {
				return err
			}
			env, err := s.client.Get(ctx, req)
			return s.printer.result(env, err, opts.query)
		}),
	}
	opts.bind(cmd)
	return cmd
}

func newPostCmd(root *rootOptions) *cobra.Command {
	var (
		opts   requestOptions
		method string
		data   []string
		files  []string
	)

	cmd := &cobra.Command{
		Use:   "post URL",
		Short: "Create, replace, update or delete a resource",
		Long: `post sends a write payload. Fields given with -d are sent as JSON unless a
file is attached with -F, in which case the payload is multipart/form-data.
Values that parse as JSON keep their type: -d age=3 sends a number.`,
		Example: `  fetchkit post /users -d name=ada -d admin=true
  fetchkit post /users/1 -X patch -d name=grace
  fetchkit post /photos -d title=cat -F photo=@cat.png`,
		Args: cobra.ExactArgs(1),
		RunE: root.run(func(ctx context.Context, s *session, args []string) error {
			req, err := opts.request(s, args[0])
			if err != nil {
				return err
			}
			if req.Method, err = fetch.ParseMethod(method); err != nil {
				return err
			}
			if req.Data, err = buildPayload(data, files); err != nil {
				return err
			}
			env, err := s.client.Post(ctx, req)
			return s.printer.result(env, err, opts.query)
		}),
	}
	opts.bind(cmd)
	cmd.Flags().StringVarP(&method, "method", "X", "POST", "write method: POST, PUT, PATCH or DELETE")
	cmd.Flags().StringArrayVarP(&data, "data", "d", nil, "payload field key=value (repeatable)")
	cmd.Flags().StringArrayVarP(&files, "form", "F", nil, "file field key=@path (repeatable, same key sends a list)")
	return cmd
}

// parseHeaders parses "Name: value" strings.
func parseHeaders(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q: expected 'Name: value'", h)
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers, nil
}

// parsePairs parses key=value strings.
func parsePairs(raw []string, flag string) (map[string]string, error) {
	pairs := make(map[string]string, len(raw))
	for _, p := range raw {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid %s %q: expected key=value", flag, p)
		}
		pairs[key] = value
	}
	return pairs, nil
}

// buildPayload turns -d and -F flags into a payload. It returns nil when
// neither was given.
func buildPayload(data, files []string) (fetch.Payload, error) {
	if len(data) == 0 && len(files) == 0 {
		return nil, nil
	}
	payload := make(fetch.Payload, len(data)+len(files))

	for _, d := range data {
		key, value, ok := strings.Cut(d, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid data %q: expected key=value", d)
		}
		payload[key] = fetch.Value(jsonValue(value))
	}

	for _, f := range files {
		key, ref, ok := strings.Cut(f, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid form field %q: expected key=@path", f)
		}
		path, isFile := strings.CutPrefix(ref, "@")
		if !isFile {
			if _, exists := payload[key]; exists {
				return nil, fmt.Errorf("form field %q is already set", key)
			}
			payload[key] = fetch.Value(ref)
			continue
		}
		file, err := fetch.OpenFile(path)
		if err != nil {
			return nil, err
		}
		switch prev := payload[key].(type) {
		case nil:
			payload[key] = file
		case fetch.File:
			payload[key] = fetch.Files{prev, file}
		case fetch.Files:
			payload[key] = append(prev, file)
		default:
			return nil, fmt.Errorf("form field %q is already a value", key)
		}
	}
	return payload, nil
}

// jsonValue returns the decoded value when s is JSON, else s itself.
func jsonValue(s string) any {
	if !gjson.Valid(s) {
		return s
	}
	return gjson.Parse(s).Value()
}

func asFetchError(err error) (*fetch.Error, bool) {
	var fe *fetch.Error
	ok := errors.As(err, &fe)
	return fe, ok
}
