package dom

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"
)

// Locator names an element by CSS selector, by ARIA role and accessible
// name, or by the text it contains. Exactly one kind is used.
type Locator struct {
	CSS  string
	Role string
	Name string
	Text string
}

// roleSelectors lists the elements carrying each role implicitly or explicitly.
var roleSelectors = map[string]string{
	"button":      `button, [role="button"], input[type="button"], input[type="submit"], input[type="reset"]`,
	"link":        `a[href], [role="link"]`,
	"textbox":     `input:not([type]), input[type="text"], input[type="email"], input[type="password"], input[type="search"], textarea, [role="textbox"]`,
	"checkbox":    `input[type="checkbox"], [role="checkbox"]`,
	"heading":     `h1, h2, h3, h4, h5, h6, [role="heading"]`,
	"img":         `img, [role="img"]`,
	"dialog":      `dialog, [role="dialog"]`,
	"alertdialog": `[role="alertdialog"]`,
	"tooltip":     `[role="tooltip"]`,
	"navigation":  `nav, [role="navigation"]`,
	"banner":      `header, [role="banner"]`,
}

const roleScript = `(() => {
	const want = %s;
	const norm = (s) => (s || '').replace(/\s+/g, ' ').trim();
	for (const el of document.querySelectorAll(%s)) {
		const name = norm(el.getAttribute('aria-label')) || norm(el.getAttribute('alt')) ||
			norm(el.getAttribute('title')) || norm(el.textContent);
		if (want === '' || name === want) return el;
	}
	return null;
})()`

// Query returns the selector and query options chromedp needs for the locator.
func (l Locator) Query() (string, []chromedp.QueryOption) {
	switch {
	case l.CSS != "":
		return l.CSS, []chromedp.QueryOption{chromedp.ByQuery}
	case l.Role != "":
		return l.roleExpression(), []chromedp.QueryOption{chromedp.ByJSPath}
	default:
		return textXPath(l.Text), []chromedp.QueryOption{chromedp.BySearch}
	}
}

// String is used in error messages.
func (l Locator) String() string {
	switch {
	case l.CSS != "":
		return l.CSS
	case l.Role != "":
		return fmt.Sprintf("role=%s[name=%q]", l.Role, l.Name)
	default:
		return fmt.Sprintf("text=%q", l.Text)
	}
}

func (l Locator) roleExpression() string {
	role := strings.ToLower(strings.TrimSpace(l.Role))
	css, ok := roleSelectors[role]
	if !ok {
		css = fmt.Sprintf(`[role="%s"]`, role)
	}
	return fmt.Sprintf(roleScript, jsString(l.Name), jsString(css))
}

const (
	upperASCII = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerASCII = "abcdefghijklmnopqrstuvwxyz"
)

// textXPath matches elements owning a text node that contains text,
// ignoring ASCII case and collapsing whitespace.
func textXPath(text string) string {
	want := strings.ToLower(strings.Join(strings.Fields(text), " "))
	return fmt.Sprintf("//*[text()[contains(translate(normalize-space(.), '%s', '%s'), %s)]]",
		upperASCII, lowerASCII, xpathLiteral(want))
}

// xpathLiteral quotes s for XPath 1.0, which has no escape sequences.
func xpathLiteral(s string) string {
	if !strings.Contains(s, `'`) {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, `'`)
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		if p != "" {
			quoted = append(quoted, "'"+p+"'")
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
