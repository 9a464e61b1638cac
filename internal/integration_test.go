package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/copyleftdev/uiverify/internal/config"
	"github.com/copyleftdev/uiverify/internal/report"
	"github.com/copyleftdev/uiverify/internal/runs"
	"github.com/copyleftdev/uiverify/internal/runs/mocks"
	"github.com/copyleftdev/uiverify/internal/runtypes"
	"github.com/copyleftdev/uiverify/internal/server"
	"github.com/copyleftdev/uiverify/internal/suites"
)

// Exercises the API, run manager, registry, callbacks and report file
// together, with the mock executor standing in for Chrome.
func TestRunWorkflow(t *testing.T) {
	callbacks := make(chan report.Message, 5)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var msg report.Message
		if json.Unmarshal(body, &msg) == nil {
			callbacks <- msg
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer hook.Close()

	exec := mocks.NewMockExecutor()
	exec.SetResult("delete-review-dialog", &runtypes.Result{
		Success:     false,
		Message:     "Failed on step 2",
		Error:       "context deadline exceeded",
		FailedStep:  2,
		Screenshots: []string{"verification/error_screenshot.png"},
	}, nil)

	cfg := &config.Config{Security: config.SecurityConfig{AllowedOrigins: []string{"*"}}}
	logger := zaptest.NewLogger(t)
	rm := runs.NewManager(cfg, exec, logger)
	registry, err := suites.NewRegistry()
	require.NoError(t, err)

	api := httptest.NewServer(server.NewRouter(cfg, rm, registry, logger))
	defer api.Close()

	var ids []uuid.UUID
	for _, name := range []string{"homepage-movies", "delete-review-dialog"} {
		body, _ := json.Marshal(map[string]string{"scenario": name, "callback_url": hook.URL})
		resp, err := http.Post(api.URL+"/api/v1/runs", "application/json", bytes.NewReader(body))
		require.NoError(t, err)
		require.Equal(t, http.StatusAccepted, resp.StatusCode)
		var out server.SubmitRunResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		resp.Body.Close()
		ids = append(ids, uuid.MustParse(out.RunID))
	}

	statuses := map[string]string{}
	for len(statuses) < 2 {
		select {
		case msg := <-callbacks:
			statuses[msg.RunID] = msg.Context.Metadata.Custom["status"].(string)
		case <-time.After(3 * time.Second):
			t.Fatal("timed out waiting for callbacks")
		}
	}
	assert.Equal(t, "passed", statuses[ids[0].String()])
	assert.Equal(t, "failed", statuses[ids[1].String()])

	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, report.WriteFile(path, rm.List()))
	rep := report.Summary(rm.List())
	assert.Equal(t, 2, rep.Total)
	assert.Equal(t, 1, rep.Passed)
	assert.Equal(t, 1, rep.Failed)

	require.NoError(t, rm.Shutdown(context.Background()))
	assert.True(t, exec.WasShutdownCalled())
}

// A strict failure propagates out of Execute while a soft one does not.
func TestStrictPropagation(t *testing.T) {
	exec := mocks.NewMockExecutor()
	boom := errors.New("Hide password button never appeared")
	exec.SetResult("auth-password-toggle", &runtypes.Result{Error: boom.Error(), FailedStep: 6}, boom)
	exec.SetResult("header-tooltips", &runtypes.Result{Error: "header missing", FailedStep: 0}, nil)

	rm := runs.NewManager(&config.Config{}, exec, zaptest.NewLogger(t))
	registry, err := suites.NewRegistry()
	require.NoError(t, err)

	strict, err := registry.Lookup("auth-password-toggle")
	require.NoError(t, err)
	run, err := rm.Execute(context.Background(), runtypes.NewRun(strict, ""))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, runtypes.StatusFailed, run.Status)

	soft, err := registry.Lookup("header-tooltips")
	require.NoError(t, err)
	run, err = rm.Execute(context.Background(), runtypes.NewRun(soft, ""))
	assert.NoError(t, err)
	assert.Equal(t, runtypes.StatusFailed, run.Status)
	assert.Equal(t, 0, run.Result.FailedStep)
}
