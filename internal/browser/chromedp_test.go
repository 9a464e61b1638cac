package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/copyleftdev/uiverify/internal/config"
	"github.com/copyleftdev/uiverify/internal/runtypes"
	"github.com/copyleftdev/uiverify/internal/scenario"
)

const testPage = `<!doctype html>
<html><head><title>uiverify test app</title></head>
<body>
<header><a href="/search">Find</a></header>
<input id="password" type="password" value="pw">
<button id="toggle" aria-label="Show password">eye</button>
<div id="popular"></div>
<div id="real"></div>
<script>
const btn = document.getElementById('toggle');
btn.addEventListener('click', () => {
	const input = document.getElementById('password');
	const shown = input.type === 'password';
	input.type = shown ? 'text' : 'password';
	btn.setAttribute('aria-label', shown ? 'Hide password' : 'Show password');
});
fetch('/api/movies/popular').then(r => r.json()).then(data => {
	document.getElementById('popular').textContent = data[0].title;
});
fetch('/api/real').then(r => r.text()).then(text => {
	document.getElementById('real').textContent = text;
});
</script>
</body></html>`

func chromeAvailable() bool {
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell", "chrome"} {
		if _, err := exec.LookPath(name); err == nil {
			return true
		}
	}
	return false
}

// newAppServer serves testPage. The popular endpoint fails unless mocked.
func newAppServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/movies/popular", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not mocked", http.StatusInternalServerError)
	})
	mux.HandleFunc("/api/real", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "from-server")
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, testPage)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newChromeManager(t *testing.T, baseURL, outDir string) *Manager {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping chromedp test in short mode")
	}
	if !chromeAvailable() {
		t.Skip("Skipping chromedp test: no Chrome binary on PATH")
	}
	cfg := &config.Config{
		Target: config.TargetConfig{BaseURL: baseURL},
		Browser: config.BrowserConfig{
			Headless:      true,
			ActionTimeout: 10 * time.Second,
			RunTimeout:    60 * time.Second,
			MaxSessions:   1,
		},
		Output: config.OutputConfig{ScreenshotDir: outDir},
	}
	m, err := NewManager(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = m.Shutdown(ctx)
	})
	return m
}

func TestExecuteRun_MockedRoutesAndRoleSteps(t *testing.T) {
	srv := newAppServer(t)
	out := t.TempDir()
	m := newChromeManager(t, srv.URL, out)

	sc := &scenario.Scenario{
		Name: "password-toggle",
		URL:  "/",
		Routes: []scenario.Route{
			{Pattern: "**/api/movies/{popular,top}", Body: `[{"title": "Mock Movie 1"}]`},
			// Widened to */api/r* for interception, so /api/real pauses and is continued.
			{Pattern: "**/api/r{x,y}z", Body: "never"},
		},
		Steps: []scenario.Step{
			{Type: scenario.StepWaitVisible, Text: "mock movie 1"},
			{Type: scenario.StepExpectEval, Value: "document.getElementById('real').textContent", Expect: "from-server"},
			{Type: scenario.StepExpectVisible, Role: "button", Name: "Show password"},
			{Type: scenario.StepHover, Role: "button", Name: "Show password"},
			{Type: scenario.StepClick, Role: "button", Name: "Show password"},
			{Type: scenario.StepExpectVisible, Role: "button", Name: "Hide password"},
			{Type: scenario.StepExpectAttribute, Selector: "input#password", Attribute: "type", Expect: "text"},
			{Type: scenario.StepCheckVisible, Text: "No Such Banner"},
		},
		Screenshot: "toggle.png",
	}

	result, err := m.ExecuteRun(context.Background(), runtypes.NewRun(sc, ""))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Success, "error: %s", result.Error)
	assert.Equal(t, -1, result.FailedStep)

	shot := filepath.Join(out, "toggle.png")
	assert.Contains(t, result.Screenshots, shot)
	assert.FileExists(t, shot)
	require.Len(t, result.Notes, 1)
	assert.Contains(t, result.Notes[0], "NOT visible")
}

func failingScenario(name string, strict bool) *scenario.Scenario {
	return &scenario.Scenario{
		Name:   name,
		URL:    "/",
		Strict: strict,
		Steps: []scenario.Step{
			{Type: scenario.StepWaitVisible, Selector: "header"},
			{Type: scenario.StepWaitVisible, Selector: "#missing", Timeout: scenario.Duration(time.Second)},
		},
	}
}

func TestExecuteRun_NonStrictFailureWritesDiagnostics(t *testing.T) {
	srv := newAppServer(t)
	out := t.TempDir()
	m := newChromeManager(t, srv.URL, out)

	result, err := m.ExecuteRun(context.Background(), runtypes.NewRun(failingScenario("soft-fail", false), ""))
	require.NoError(t, err, "non-strict failures are reported in the result")
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.FailedStep)
	assert.Contains(t, result.Message, "Failed on step 1")
	assert.NotEmpty(t, result.Error)

	shot := filepath.Join(out, "soft-fail_error.png")
	assert.FileExists(t, shot)
	assert.Contains(t, result.Screenshots, shot)

	snap := filepath.Join(out, "soft-fail_error.html")
	assert.Equal(t, snap, result.Snapshot)
	html, err := os.ReadFile(snap)
	require.NoError(t, err)
	assert.Contains(t, string(html), "password")
	assert.NotContains(t, string(html), "<script", "snapshot is simplified")
}

func TestExecuteRun_StrictFailureReturnsError(t *testing.T) {
	srv := newAppServer(t)
	out := t.TempDir()
	m := newChromeManager(t, srv.URL, out)

	result, err := m.ExecuteRun(context.Background(), runtypes.NewRun(failingScenario("hard-fail", true), ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hard-fail")
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.FailedStep)
	assert.FileExists(t, filepath.Join(out, "hard-fail_error.png"))
}

func TestStepFailureMessage(t *testing.T) {
	sc := failingScenario("x", false)
	assert.Equal(t, "Failed on step 1: "+sc.Steps[1].Describe(), stepFailureMessage(sc, 1))
	assert.Equal(t, "Failed before the first step", stepFailureMessage(sc, -1))
	assert.Equal(t, "Failed before the first step", stepFailureMessage(sc, len(sc.Steps)))
	assert.NotContains(t, msgFinalScreenshot, "step", "a final screenshot failure blames no step")
}
