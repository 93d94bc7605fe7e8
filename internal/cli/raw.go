package cli

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kbukum/fetchkit/fetch"
	"github.com/kbukum/fetchkit/fetch/sse"
)

func newRawCmd(root *rootOptions) *cobra.Command {
	var (
		opts   requestOptions
		method string
		data   []string
		stream bool
	)

	cmd := &cobra.Command{
		Use:   "raw URL",
		Short: "Send a request and print the response as received",
		Long: `raw prints the status line, headers and body without interpreting them.
The exit code is 0 whenever a response arrives, whatever its status.
With --sse the body is read as a server-sent event stream until it ends
or the command is interrupted.`,
		Example: `  fetchkit raw https://api.example.com/health
  fetchkit raw /events --sse -H 'Last-Event-ID: 42'`,
		Args: cobra.ExactArgs(1),
		RunE: root.run(func(ctx context.Context, s *session, args []string) error {
			req, err := opts.request(s, args[0])
			if err != nil {
				return err
			}
			req.Method = fetch.Method(strings.ToUpper(method))
			if req.Data, err = buildPayload(data, nil); err != nil {
				return err
			}

			if stream {
				return streamEvents(ctx, s, req)
			}

			resp, err := s.client.RawFetch(ctx, req)
			if err != nil {
				return s.printer.result(nil, err, "")
			}
			defer func() { _ = resp.Body.Close() }()

			s.printer.response(resp)
			_, err = io.Copy(s.printer.out, resp.Body)
			return err
		}),
	}
	cmd.Flags().StringArrayVarP(&opts.headers, "header", "H", nil, "request header 'Name: value' (repeatable)")
	cmd.Flags().StringArrayVarP(&opts.params, "param", "p", nil, "query parameter key=value (repeatable)")
	cmd.Flags().StringVarP(&method, "method", "X", "GET", "request method")
	cmd.Flags().StringArrayVarP(&data, "data", "d", nil, "JSON payload field key=value (repeatable)")
	cmd.Flags().BoolVar(&stream, "sse", false, "read the response as a server-sent event stream")
	return cmd
}

func streamEvents(ctx context.Context, s *session, req fetch.Request) error {
	r, err := sse.Open(ctx, s.client, req)
	if err != nil {
		return s.printer.result(nil, err, "")
	}
	defer func() { _ = r.Close() }()

	for {
		event, err := r.Next()
		if errors.Is(err, io.EOF) || ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}
		s.printer.event(event)
	}
}
