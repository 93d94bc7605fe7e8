package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/tidwall/gjson"

	"github.com/kbukum/fetchkit/fetch"
	"github.com/kbukum/fetchkit/fetch/sse"
)

// printer writes results to stdout and status lines to stderr.
type printer struct {
	out    io.Writer
	errOut io.Writer

	ok     *color.Color
	fail   *color.Color
	key    *color.Color
	subtle *color.Color
}

func newPrinter(out, errOut io.Writer, noColor bool) *printer {
	p := &printer{
		out:    out,
		errOut: errOut,
		ok:     color.New(color.FgGreen, color.Bold),
		fail:   color.New(color.FgRed, color.Bold),
		key:    color.New(color.FgYellow),
		subtle: color.New(color.FgCyan),
	}
	colored := !noColor && isTerminal(out)
	for _, c := range []*color.Color{p.ok, p.fail, p.key, p.subtle} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// result prints a Get or Post outcome. Error envelopes are printed like
// successes and then reported through errReported.
func (p *printer) result(env *fetch.Envelope[any], err error, query string) error {
	if err != nil {
		fe, ok := asFetchError(err)
		if !ok {
			return err
		}
		env = fe.Envelope()
	}

	statusColor := p.ok
	if env.Status != fetch.StatusSuccess {
		statusColor = p.fail
	}
	fmt.Fprintf(p.errOut, "%s %s\n", statusColor.Sprint(env.Status), p.subtle.Sprint(statusText(env.StatusCode)))

	if perr := p.body(env, query); perr != nil {
		return perr
	}
	if err != nil {
		return errReported
	}
	return nil
}

func (p *printer) body(env *fetch.Envelope[any], query string) error {
	if query == "" {
		return p.json(env)
	}

	raw, err := json.Marshal(env.Data)
	if err != nil {
		return err
	}
	res := gjson.GetBytes(raw, query)
	if !res.Exists() {
		return fmt.Errorf("query %q matched nothing", query)
	}
	if res.Type == gjson.String {
		_, err = fmt.Fprintln(p.out, res.Str)
		return err
	}
	return p.json(json.RawMessage(res.Raw))
}

func (p *printer) json(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(p.out, string(b))
	return err
}

// response prints a raw response: status line, sorted headers, blank line.
// The caller copies the body.
func (p *printer) response(resp *http.Response) {
	statusColor := p.ok
	if !fetch.IsSuccess(resp.StatusCode) {
		statusColor = p.fail
	}
	fmt.Fprintf(p.out, "%s %s\n", resp.Proto, statusColor.Sprint(resp.Status))

	names := make([]string, 0, len(resp.Header))
	for name := range resp.Header {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		for _, v := range resp.Header[name] {
			fmt.Fprintf(p.out, "%s: %s\n", p.key.Sprint(name), v)
		}
	}
	fmt.Fprintln(p.out)
}

// event prints one server-sent event in wire form.
func (p *printer) event(e *sse.Event) {
	if e.ID != "" {
		fmt.Fprintf(p.out, "%s %s\n", p.key.Sprint("id:"), e.ID)
	}
	if e.Type != "" {
		fmt.Fprintf(p.out, "%s %s\n", p.key.Sprint("event:"), e.Type)
	}
	for _, line := range strings.Split(e.Data, "\n") {
		fmt.Fprintf(p.out, "%s %s\n", p.key.Sprint("data:"), line)
	}
	fmt.Fprintln(p.out)
}

func statusText(code int) string {
	if code == 0 {
		return "no response"
	}
	return fmt.Sprintf("%d %s", code, http.StatusText(code))
}
