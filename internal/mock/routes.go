// Package mock turns a declarative URL-pattern table into canned responses
// for requests paused by the browser.
package mock

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"github.com/copyleftdev/uiverify/internal/scenario"
)

const defaultContentType = "application/json"

// Response is a compiled route ready to be served.
type Response struct {
	Pattern     string
	Status      int
	ContentType string
	Body        []byte
	headers     map[string]string
}

// Base64Body is the encoding Fetch.fulfillRequest expects.
func (r *Response) Base64Body() string {
	return base64.StdEncoding.EncodeToString(r.Body)
}

// Headers returns the response headers, Content-Type first, the rest sorted by name.
func (r *Response) Headers() [][2]string {
	out := [][2]string{{"Content-Type", r.ContentType}}
	names := make([]string, 0, len(r.headers))
	for name := range r.headers {
		if strings.EqualFold(name, "Content-Type") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		out = append(out, [2]string{http.CanonicalHeaderKey(name), r.headers[name]})
	}
	return out
}

type entry struct {
	g    glob.Glob
	resp *Response
}

// Table matches request URLs against routes in declaration order.
type Table struct {
	entries []entry
}

// NewTable compiles every route pattern. '*' stays inside one path segment,
// '**' spans segments.
func NewTable(routes []scenario.Route) (*Table, error) {
	t := &Table{entries: make([]entry, 0, len(routes))}
	for _, r := range routes {
		g, err := glob.Compile(r.Pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("compile route pattern %q: %w", r.Pattern, err)
		}
		status := r.Status
		if status == 0 {
			status = http.StatusOK
		}
		contentType := r.ContentType
		if contentType == "" {
			contentType = defaultContentType
		}
		t.entries = append(t.entries, entry{
			g: g,
			resp: &Response{
				Pattern:     r.Pattern,
				Status:      status,
				ContentType: contentType,
				Body:        []byte(r.Body),
				headers:     r.Headers,
			},
		})
	}
	return t, nil
}

// Len reports the number of routes.
func (t *Table) Len() int { return len(t.entries) }

// Match returns the first route whose pattern matches the full URL.
// The fragment is ignored; the query string must be covered by the pattern.
func (t *Table) Match(rawURL string) (*Response, bool) {
	if i := strings.IndexByte(rawURL, '#'); i >= 0 {
		rawURL = rawURL[:i]
	}
	for _, e := range t.entries {
		if e.g.Match(rawURL) {
			return e.resp, true
		}
	}
	return nil, false
}

// CDPPatterns derives the Fetch domain URL patterns that pause candidate requests.
// Each pattern pauses at least every URL its glob matches; Match makes the
// final decision.
func (t *Table) CDPPatterns() []string {
	seen := make(map[string]bool, len(t.entries))
	out := make([]string, 0, len(t.entries))
	for _, e := range t.entries {
		p := cdpPattern(e.resp.Pattern)
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// cdpPattern widens a glob to Fetch syntax, which only knows '*' and '?'
// and has no notion of path segments. Everything from the first
// alternation, character class or escape onward becomes '*'.
func cdpPattern(p string) string {
	for strings.Contains(p, "**") {
		p = strings.ReplaceAll(p, "**", "*")
	}
	if i := strings.IndexAny(p, `{[\`); i >= 0 {
		p = strings.TrimRight(p[:i], "*") + "*"
	}
	return p
}
