package dom

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	cdpdom "github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSimplifiedDOM(t *testing.T) {
	page := `<!DOCTYPE html>
<html><head><title>LOJ</title><script>var x = 1;</script><style>p{}</style></head>
<body>
  <!-- header -->
  <header class="sticky" style="top:0">
    <a href="/search" data-testid="search"><svg><path d="M0"/></svg><span>Search</span></a>
  </header>
  <section><div role="alertdialog" data-state="open"><h2>Delete review?</h2>
    <button aria-label="Delete review" onclick="go()">Delete</button></div></section>
  <input id="password" type="password" value="">
</body></html>`

	out, err := GetSimplifiedDOM(page)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.NotContains(t, out, "script")
	assert.NotContains(t, out, "<svg")
	assert.NotContains(t, out, "header -->")
	assert.NotContains(t, out, "style=")
	assert.NotContains(t, out, "data-testid")
	assert.NotContains(t, out, "onclick")
	assert.NotContains(t, out, "<section")
	assert.Contains(t, out, `<header class="sticky">`)
	assert.Contains(t, out, `<a href="/search"><span>Search </span></a>`)
	assert.Contains(t, out, `<div role="alertdialog" data-state="open">`)
	assert.Contains(t, out, `<button aria-label="Delete review">Delete </button>`)
	assert.Contains(t, out, `<input id="password" type="password" value="">`)
	assert.NotContains(t, out, "</input>")
}

func TestLocator_Query(t *testing.T) {
	sel, opts := Locator{CSS: "input#password"}.Query()
	assert.Equal(t, "input#password", sel)
	assert.Len(t, opts, 1)

	sel, _ = Locator{Role: "button", Name: "Show password"}.Query()
	assert.Contains(t, sel, `const want = "Show password";`)
	assert.Contains(t, sel, `input[type=\"submit\"]`)

	sel, _ = Locator{Role: "switch"}.Query()
	assert.Contains(t, sel, `[role=\"switch\"]`)

	sel, _ = Locator{Text: "Mock Movie 1"}.Query()
	assert.Equal(t, "//*[text()[contains(translate(normalize-space(.), "+
		"'ABCDEFGHIJKLMNOPQRSTUVWXYZ', 'abcdefghijklmnopqrstuvwxyz'), 'mock movie 1')]]", sel)

	sel, _ = Locator{Text: "  SEARCH\n"}.Query()
	assert.Contains(t, sel, ", 'search')]]", "text is folded and trimmed like the page text")
}

func TestLocator_String(t *testing.T) {
	assert.Equal(t, "header", Locator{CSS: "header"}.String())
	assert.Equal(t, `role=button[name="Hide password"]`, Locator{Role: "button", Name: "Hide password"}.String())
	assert.Equal(t, `text="Search"`, Locator{Text: "Search"}.String())
}

func TestXPathLiteral(t *testing.T) {
	assert.Equal(t, "'plain'", xpathLiteral("plain"))
	assert.Equal(t, `"it's"`, xpathLiteral("it's"))
	assert.Equal(t, `concat('say "hi" it', "'", 's')`, xpathLiteral(`say "hi" it's`))
}

func TestQuadCenter(t *testing.T) {
	x, y := quadCenter(cdpdom.Quad{10, 20, 30, 20, 30, 40, 10, 40})
	assert.Equal(t, 20.0, x)
	assert.Equal(t, 30.0, y)

	x, y = quadCenter(cdpdom.Quad{})
	assert.Zero(t, x)
	assert.Zero(t, y)
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "null", Stringify(nil))
	assert.Equal(t, "fake-token", Stringify("fake-token"))
	assert.Equal(t, "true", Stringify(true))
	assert.Equal(t, "2", Stringify(float64(2)))
	assert.Equal(t, "1.5", Stringify(1.5))
	assert.Equal(t, `{"a":1}`, Stringify(map[string]interface{}{"a": 1}))
}

func TestWriteFile(t *testing.T) {
	path := t.TempDir() + "/nested/dir/shot.png"
	require.NoError(t, WriteFile(path, []byte("png")))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
}

func chromeAvailable() bool {
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell", "chrome"} {
		if _, err := exec.LookPath(name); err == nil {
			return true
		}
	}
	return false
}

// TestChromedpWorks drives a real headless Chrome against an inline page.
func TestChromedpWorks(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping chromedp test in short mode")
	}
	if !chromeAvailable() {
		t.Skip("Skipping chromedp test: no Chrome binary on PATH")
	}

	isCI := os.Getenv("CI") == "true" || os.Getenv("GITHUB_ACTIONS") == "true"

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1280, 720),
	)

	allocatorCtx, cancelAllocator := chromedp.NewExecAllocator(context.Background(), opts...)
	defer cancelAllocator()

	ctx, cancelBrowser := chromedp.NewContext(allocatorCtx, chromedp.WithLogf(t.Logf))
	defer cancelBrowser()

	timeout := 30 * time.Second
	if isCI {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := make(map[string]interface{})
	require.NoError(t, chromedp.Run(ctx, VerifyChromedpWorkingAction(&result)))

	assert.Equal(t, "uiverify self-check", result["title"])
	assert.Equal(t, true, result["element_present"])
	assert.Greater(t, result["html_length"].(int), 50)
	assert.Greater(t, result["screenshot_size"].(int), 100)

	var visible bool
	require.NoError(t, chromedp.Run(ctx, IsVisibleAction(Locator{Text: "chromedp is working"}, &visible)))
	assert.True(t, visible)

	require.NoError(t, chromedp.Run(ctx, IsVisibleAction(Locator{CSS: "#missing"}, &visible)))
	assert.False(t, visible)
}
