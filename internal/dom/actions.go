package dom

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/chromedp/cdproto/cdp"
	cdpdom "github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
)

const (
	pollInterval = 100 * time.Millisecond
	// softCheckWindow bounds how long a soft visibility check looks for the element.
	softCheckWindow = time.Second
)

func NavigateAction(url string) chromedp.Action {
	return chromedp.Navigate(url)
}

func WaitVisibleAction(l Locator) chromedp.Action {
	sel, opts := l.Query()
	return chromedp.WaitVisible(sel, opts...)
}

func WaitHiddenAction(l Locator) chromedp.Action {
	sel, opts := l.Query()
	return chromedp.WaitNotVisible(sel, opts...)
}

func ClickAction(l Locator) chromedp.Action {
	sel, opts := l.Query()
	return chromedp.Tasks{
		chromedp.WaitVisible(sel, opts...),
		chromedp.Click(sel, opts...),
	}
}

func TypeAction(l Locator, text string) chromedp.Action {
	sel, opts := l.Query()
	return chromedp.Tasks{
		chromedp.WaitVisible(sel, opts...),
		chromedp.SendKeys(sel, text, opts...),
	}
}

func RunScriptAction(script string, res interface{}) chromedp.Action {
	return chromedp.Evaluate(script, res)
}

func GetFullHTMLAction(res *string) chromedp.Action {
	return chromedp.Evaluate(`document.documentElement.outerHTML`, res)
}

// HoverAction moves the mouse to the center of the element, which is what
// opens CSS :hover styles and JS tooltips.
func HoverAction(l Locator) chromedp.Action {
	sel, opts := l.Query()
	return chromedp.ActionFunc(func(ctx context.Context) error {
		var nodes []*cdp.Node
		if err := chromedp.Nodes(sel, &nodes, append(opts, chromedp.NodeVisible)...).Do(ctx); err != nil {
			return fmt.Errorf("hover %s: %w", l, err)
		}
		if len(nodes) == 0 {
			return fmt.Errorf("hover %s: no element", l)
		}
		id := nodes[0].NodeID
		if err := cdpdom.ScrollIntoViewIfNeeded().WithNodeID(id).Do(ctx); err != nil {
			return fmt.Errorf("hover %s: scroll into view: %w", l, err)
		}
		quads, err := cdpdom.GetContentQuads().WithNodeID(id).Do(ctx)
		if err != nil {
			return fmt.Errorf("hover %s: content quads: %w", l, err)
		}
		if len(quads) == 0 {
			return fmt.Errorf("hover %s: element has no layout", l)
		}
		x, y := quadCenter(quads[0])
		return input.DispatchMouseEvent(input.MouseMoved, x, y).Do(ctx)
	})
}

func quadCenter(q cdpdom.Quad) (float64, float64) {
	var x, y float64
	n := len(q) / 2
	if n == 0 {
		return 0, 0
	}
	for i := 0; i < n; i++ {
		x += q[2*i]
		y += q[2*i+1]
	}
	return x / float64(n), y / float64(n)
}

// IsVisibleAction reports visibility without failing when the element is missing.
func IsVisibleAction(l Locator, visible *bool) chromedp.Action {
	sel, opts := l.Query()
	return chromedp.ActionFunc(func(ctx context.Context) error {
		checkCtx, cancel := context.WithTimeout(ctx, softCheckWindow)
		defer cancel()

		var nodes []*cdp.Node
		err := chromedp.Nodes(sel, &nodes, append(opts, chromedp.AtLeast(0))...).Do(checkCtx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			*visible = false
			return nil
		}
		*visible = false
		for _, n := range nodes {
			if _, err := cdpdom.GetBoxModel().WithNodeID(n.NodeID).Do(ctx); err == nil {
				*visible = true
				return nil
			}
		}
		return nil
	})
}

// IsElementPresentAction checks if an element exists without waiting for visibility.
func IsElementPresentAction(selector string, isPresent *bool) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		var nodes []*cdp.Node
		err := chromedp.Nodes(selector, &nodes, chromedp.ByQuery, chromedp.AtLeast(0)).Do(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			*isPresent = false
			return nil
		}
		*isPresent = len(nodes) > 0
		return nil
	})
}

// ExpectAttributeAction polls until the attribute equals want or the context ends.
func ExpectAttributeAction(l Locator, name, want string) chromedp.Action {
	sel, opts := l.Query()
	return chromedp.ActionFunc(func(ctx context.Context) error {
		var (
			got string
			ok  bool
		)
		for {
			err := chromedp.AttributeValue(sel, name, &got, &ok, opts...).Do(ctx)
			if err == nil && ok && got == want {
				return nil
			}
			select {
			case <-ctx.Done():
				if !ok {
					return fmt.Errorf("expected %s to have attribute %s=%q, attribute missing: %w", l, name, want, ctx.Err())
				}
				return fmt.Errorf("expected %s to have attribute %s=%q, got %q: %w", l, name, want, got, ctx.Err())
			case <-time.After(pollInterval):
			}
		}
	})
}

// ExpectEvalAction polls a JS expression until its value renders as want.
func ExpectEvalAction(script, want string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		var last string
		for {
			var res interface{}
			if err := chromedp.Evaluate(script, &res).Do(ctx); err == nil {
				last = Stringify(res)
				if last == want {
					return nil
				}
			}
			select {
			case <-ctx.Done():
				return fmt.Errorf("expected %s to be %q, got %q: %w", script, want, last, ctx.Err())
			case <-time.After(pollInterval):
			}
		}
	})
}

// Stringify renders an evaluation result the way it reads in JS.
func Stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// ScreenshotAction writes a PNG of the viewport, or of the whole page, to path.
func ScreenshotAction(path string, fullPage bool, written *[]string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		var buf []byte
		var capture chromedp.Action = chromedp.CaptureScreenshot(&buf)
		if fullPage {
			capture = chromedp.FullScreenshot(&buf, 100)
		}
		if err := capture.Do(ctx); err != nil {
			return fmt.Errorf("failed to capture screenshot: %w", err)
		}
		if err := WriteFile(path, buf); err != nil {
			return err
		}
		if written != nil {
			*written = append(*written, path)
		}
		return nil
	})
}

// WriteFile creates parent directories as needed.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

const selfCheckPage = `<html><head><title>uiverify self-check</title></head><body><h1>uiverify</h1><p>chromedp is working</p></body></html>`

// VerifyChromedpWorkingAction loads an inline page and records what the
// browser reports back: title, element presence, HTML length, screenshot size.
func VerifyChromedpWorkingAction(result *map[string]interface{}) chromedp.Action {
	var (
		title     string
		present   bool
		fullHTML  string
		imageData []byte
	)
	return chromedp.Tasks{
		chromedp.Navigate("data:text/html;charset=utf-8," + url.PathEscape(selfCheckPage)),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Title(&title),
		IsElementPresentAction("h1", &present),
		GetFullHTMLAction(&fullHTML),
		chromedp.CaptureScreenshot(&imageData),
		chromedp.ActionFunc(func(ctx context.Context) error {
			(*result)["title"] = title
			(*result)["element_present"] = present
			(*result)["html_length"] = len(fullHTML)
			(*result)["screenshot_size"] = len(imageData)
			return nil
		}),
	}
}
