package fetch

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// NewCookieJar returns an in-memory jar with public suffix domain rules.
func NewCookieJar() (http.CookieJar, error) {
	return cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
}

// allowsCookies applies the credentials policy to one target URL.
func (c *Client) allowsCookies(cred Credentials, target *url.URL) bool {
	if c.jar == nil {
		return false
	}
	switch cred {
	case CredentialsInclude:
		return true
	case CredentialsOmit:
		return false
	default:
		return c.origin != nil && sameOrigin(c.origin, target)
	}
}

func (c *Client) attachCookies(h http.Header, cred Credentials, target *url.URL) {
	if !c.allowsCookies(cred, target) {
		return
	}
	cookies := c.jar.Cookies(target)
	if len(cookies) == 0 {
		return
	}
	pairs := make([]string, 0, len(cookies)+1)
	if existing := h.Get("Cookie"); existing != "" {
		pairs = append(pairs, existing)
	}
	for _, ck := range cookies {
		pairs = append(pairs, ck.String())
	}
	h.Set("Cookie", strings.Join(pairs, "; "))
}

func (c *Client) storeCookies(cred Credentials, target *url.URL, resp *http.Response) {
	if !c.allowsCookies(cred, target) {
		return
	}
	if cookies := resp.Cookies(); len(cookies) > 0 {
		c.jar.SetCookies(target, cookies)
	}
}

func sameOrigin(a, b *url.URL) bool {
	return strings.EqualFold(a.Scheme, b.Scheme) &&
		strings.EqualFold(a.Hostname(), b.Hostname()) &&
		effectivePort(a) == effectivePort(b)
}

func effectivePort(u *url.URL) string {
	if p := u.Port(); p != "" {
		return p
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
		return "443"
	case "http":
		return "80"
	}
	return ""
}
