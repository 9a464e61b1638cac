package dom

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// skippedTags never appear in a simplified dump, children included.
var skippedTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "meta": true, "link": true, "svg": true,
}

// keptTags are emitted; anything else is unwrapped to its children.
var keptTags = map[string]bool{
	"html": true, "head": true, "body": true, "title": true, "header": true, "nav": true, "main": true, "footer": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"p": true, "div": true, "span": true, "br": true, "hr": true,
	"ul": true, "ol": true, "li": true,
	"table": true, "thead": true, "tbody": true, "tfoot": true, "tr": true, "th": true, "td": true,
	"a": true, "button": true, "input": true, "textarea": true, "select": true, "option": true, "label": true,
	"form": true, "img": true, "pre": true, "code": true, "strong": true, "em": true, "b": true, "i": true,
}

var voidTags = map[string]bool{"br": true, "hr": true, "input": true, "img": true}

var keptAttrs = map[string]bool{
	"href": true, "src": true, "alt": true, "title": true,
	"id": true, "class": true,
	"type": true, "value": true, "placeholder": true, "name": true,
	"selected": true, "checked": true, "disabled": true, "readonly": true,
	"aria-label": true, "aria-hidden": true, "aria-expanded": true, "role": true, "data-state": true,
}

// booleanish attributes are kept even when empty.
var booleanish = map[string]bool{"value": true, "selected": true, "checked": true, "disabled": true, "readonly": true}

// GetSimplifiedDOM strips scripts, styles and presentational wrappers from a
// page dump so a failure snapshot stays readable.
func GetSimplifiedDOM(htmlContent string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := simplifyNode(&buf, doc); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

func simplifyNode(w io.Writer, n *html.Node) error {
	switch n.Type {
	case html.ErrorNode, html.CommentNode:
		return nil
	case html.DoctypeNode:
		_, err := io.WriteString(w, "<!DOCTYPE "+n.Data+">")
		return err
	case html.TextNode:
		trimmed := strings.TrimSpace(n.Data)
		if trimmed == "" {
			return nil
		}
		_, err := io.WriteString(w, html.EscapeString(trimmed)+" ")
		return err
	case html.ElementNode:
		if skippedTags[n.Data] {
			return nil
		}
		if !keptTags[n.Data] {
			return simplifyChildren(w, n)
		}
		if err := writeOpenTag(w, n); err != nil {
			return err
		}
		if voidTags[n.Data] {
			return nil
		}
		if err := simplifyChildren(w, n); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</"+n.Data+">")
		return err
	}
	return simplifyChildren(w, n)
}

func simplifyChildren(w io.Writer, n *html.Node) error {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := simplifyNode(w, c); err != nil {
			return err
		}
	}
	return nil
}

func writeOpenTag(w io.Writer, n *html.Node) error {
	if _, err := io.WriteString(w, "<"+n.Data); err != nil {
		return err
	}
	for _, a := range n.Attr {
		if !keptAttrs[a.Key] {
			continue
		}
		val := strings.TrimSpace(a.Val)
		if val == "" && !booleanish[a.Key] {
			continue
		}
		if _, err := io.WriteString(w, " "+a.Key+"=\""+html.EscapeString(val)+"\""); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, ">")
	return err
}
