package browser

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/copyleftdev/uiverify/internal/auth"
	"github.com/copyleftdev/uiverify/internal/config"
	"github.com/copyleftdev/uiverify/internal/dom"
	"github.com/copyleftdev/uiverify/internal/logging"
	"github.com/copyleftdev/uiverify/internal/mock"
	"github.com/copyleftdev/uiverify/internal/runs"
	"github.com/copyleftdev/uiverify/internal/runtypes"
	"github.com/copyleftdev/uiverify/internal/scenario"
)

// Compile-time check to ensure Manager implements the interface
var _ runs.Executor = (*Manager)(nil)

const (
	defaultRunTimeout = 5 * time.Minute
	diagnosticTimeout = 10 * time.Second
	selfCheckTimeout  = 30 * time.Second
)

type Manager struct {
	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc
	cfg             *config.Config
	logger          *zap.Logger
	sem             *semaphore.Weighted
	activeCtxWg     sync.WaitGroup
}

func NewManager(cfg *config.Config, logger *zap.Logger) (*Manager, error) {
	bc := cfg.Browser
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", bc.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("mute-audio", true),
		chromedp.IgnoreCertErrors,
	)
	if bc.WindowWidth > 0 && bc.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(bc.WindowWidth, bc.WindowHeight))
	}
	if bc.ExecutablePath != "" {
		opts = append(opts, chromedp.ExecPath(bc.ExecutablePath))
	}
	if bc.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(bc.UserDataDir))
	} else {
		opts = append(opts, chromedp.Flag("guest", true))
	}

	allocatorCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	sessions := bc.MaxSessions
	if sessions < 1 {
		sessions = 1
	}
	return &Manager{
		allocatorCtx:    allocatorCtx,
		allocatorCancel: cancel,
		cfg:             cfg,
		logger:          logger,
		sem:             semaphore.NewWeighted(int64(sessions)),
	}, nil
}

// Resolver builds the placeholder resolver from the configured target and credentials.
func (m *Manager) Resolver() *scenario.Resolver {
	creds := m.cfg.Credentials
	return &scenario.Resolver{
		BaseURL: m.cfg.Target.Origin(),
		Credentials: scenario.Credentials{
			Username:   creds.Username,
			Password:   creds.Password,
			TOTPSecret: creds.TOTPSecret,
		},
		TOTP: auth.GenerateTOTP,
	}
}

// ExecuteRun launches a browser, installs the scenario's mocked routes,
// opens the scenario URL and plays its steps. Any failure leaves a
// diagnostic screenshot and DOM dump behind. The failure is always in the
// Result; it is also returned as an error only for strict scenarios.
func (m *Manager) ExecuteRun(ctx context.Context, run *runtypes.Run) (*runtypes.Result, error) {
	sc := run.Scenario
	if sc == nil {
		return nil, errors.New("run has no scenario")
	}
	if err := sc.Validate(); err != nil {
		return &runtypes.Result{Success: false, Message: "Invalid scenario", Error: err.Error(), FailedStep: -1}, err
	}
	log := m.logger.With(zap.String("run_id", run.ID.String()), zap.String("scenario", sc.Name))

	timeout := sc.Timeout.Std()
	if timeout <= 0 {
		timeout = m.cfg.Browser.RunTimeout
	}
	if timeout <= 0 {
		timeout = defaultRunTimeout
	}

	// Acquire a browser slot from our semaphore
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("failed to acquire browser slot: %w", err)
	}
	defer m.sem.Release(1)

	m.activeCtxWg.Add(1)
	defer m.activeCtxWg.Done()

	// One browser per run keeps cookies and localStorage isolated.
	browserCtx, browserCancel := chromedp.NewContext(m.allocatorCtx, chromedp.WithLogf(logging.Logf(log)))
	defer browserCancel()

	start := time.Now()
	result := &runtypes.Result{FailedStep: -1}
	env := &ActionEnv{
		Resolver:    m.Resolver(),
		OutputDir:   m.cfg.Output.ScreenshotDir,
		Screenshots: &result.Screenshots,
		Notes:       &result.Notes,
	}

	failWith := func(step int, msg string, err error) (*runtypes.Result, error) {
		result.Success = false
		result.FailedStep = step
		result.Error = err.Error()
		result.Message = msg
		m.captureDiagnostics(browserCtx, sc, env, result, log)
		result.Duration = time.Since(start)
		log.Error("scenario failed", zap.Int("step", step), zap.String("reason", msg), zap.Error(err))
		if sc.Strict {
			return result, fmt.Errorf("scenario %s: %w", sc.Name, err)
		}
		return result, nil
	}
	fail := func(step int, err error) (*runtypes.Result, error) {
		return failWith(step, stepFailureMessage(sc, step), err)
	}

	// Start the browser outside any timeout so the deadline cannot kill it mid-launch.
	if err := chromedp.Run(browserCtx); err != nil {
		result.Duration = time.Since(start)
		result.Error = err.Error()
		result.Message = "Failed to start browser"
		return result, fmt.Errorf("start browser: %w", err)
	}
	if c := chromedp.FromContext(browserCtx); c != nil && c.Target != nil {
		run.TargetID = c.Target.TargetID.String()
	} else {
		log.Warn("could not get target ID, browser context might not be fully initialized")
		run.TargetID = "unknown"
	}

	runCtx, runCancel := context.WithTimeout(browserCtx, timeout)
	defer runCancel()
	stop := context.AfterFunc(ctx, runCancel)
	defer stop()

	table, err := mock.NewTable(sc.Routes)
	if err != nil {
		return fail(-1, err)
	}
	if err := InstallRoutes(browserCtx, table, log); err != nil {
		return fail(-1, err)
	}

	if settle := sc.Settle.Std(); settle > 0 {
		log.Debug("waiting for target to settle", zap.Duration("settle", settle))
		if err := chromedp.Run(runCtx, chromedp.Sleep(settle)); err != nil {
			return fail(-1, err)
		}
	}

	target, err := env.Resolver.URL(sc.URL)
	if err != nil {
		return fail(-1, fmt.Errorf("resolve url %q: %w", sc.URL, err))
	}
	log.Info("navigating", zap.String("url", target), zap.Int("routes", table.Len()))
	if err := m.runStep(runCtx, dom.NavigateAction(target), m.cfg.Browser.ActionTimeout); err != nil {
		return fail(-1, fmt.Errorf("navigate to %s: %w", target, err))
	}

	for i, step := range sc.Steps {
		action, err := GenerateAction(step, env)
		if err != nil {
			return fail(i, err)
		}
		log.Debug("step", zap.Int("index", i), zap.String("step", step.Describe()))
		if err := m.runStep(runCtx, action, stepTimeout(step, m.cfg.Browser.ActionTimeout)); err != nil {
			return fail(i, fmt.Errorf("step %d (%s): %w", i, step.Describe(), err))
		}
	}

	if sc.Screenshot != "" {
		shot := dom.ScreenshotAction(env.OutputPath(sc.Screenshot), false, env.Screenshots)
		if err := m.runStep(runCtx, shot, m.cfg.Browser.ActionTimeout); err != nil {
			return failWith(-1, msgFinalScreenshot, fmt.Errorf("final screenshot: %w", err))
		}
	}

	for _, note := range result.Notes {
		log.Info("check", zap.String("observation", note))
	}
	for _, shot := range result.Screenshots {
		log.Info("screenshot saved", zap.String("path", shot))
	}

	result.Success = true
	result.Message = "Scenario passed"
	result.Duration = time.Since(start)
	log.Info("scenario passed", zap.Duration("duration", result.Duration))
	return result, nil
}

const msgFinalScreenshot = "Failed capturing final screenshot"

// stepFailureMessage names the step that failed, or the setup phase for step -1.
func stepFailureMessage(sc *scenario.Scenario, step int) string {
	if step >= 0 && step < len(sc.Steps) {
		return fmt.Sprintf("Failed on step %d: %s", step, sc.Steps[step].Describe())
	}
	return "Failed before the first step"
}

func (m *Manager) runStep(ctx context.Context, action chromedp.Action, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return chromedp.Run(ctx, action)
}

// captureDiagnostics writes the error screenshot and a simplified DOM dump.
// It runs on the browser context so an expired run deadline does not prevent it.
func (m *Manager) captureDiagnostics(browserCtx context.Context, sc *scenario.Scenario, env *ActionEnv, result *runtypes.Result, log *zap.Logger) {
	if chromedp.FromContext(browserCtx).Target == nil {
		return
	}
	diagCtx, cancel := context.WithTimeout(browserCtx, diagnosticTimeout)
	defer cancel()

	shotPath := env.OutputPath(ErrorScreenshotPath(sc))
	if err := chromedp.Run(diagCtx, dom.ScreenshotAction(shotPath, false, env.Screenshots)); err != nil {
		log.Warn("could not capture error screenshot", zap.String("path", shotPath), zap.Error(err))
	} else {
		log.Info("error screenshot saved", zap.String("path", shotPath))
	}

	var raw string
	if err := chromedp.Run(diagCtx, dom.GetFullHTMLAction(&raw)); err != nil {
		log.Warn("could not read page HTML", zap.Error(err))
		return
	}
	simplified, err := dom.GetSimplifiedDOM(raw)
	if err != nil {
		log.Warn("could not simplify page HTML", zap.Error(err))
		return
	}
	snapPath := strings.TrimSuffix(shotPath, filepath.Ext(shotPath)) + ".html"
	if err := dom.WriteFile(snapPath, []byte(simplified)); err != nil {
		log.Warn("could not write DOM snapshot", zap.Error(err))
		return
	}
	result.Snapshot = snapPath
}

// SelfCheck launches a tab against an inline page and reports what the browser saw.
func (m *Manager) SelfCheck(ctx context.Context) (map[string]interface{}, error) {
	browserCtx, cancel := chromedp.NewContext(m.allocatorCtx, chromedp.WithLogf(logging.Logf(m.logger)))
	defer cancel()
	if err := chromedp.Run(browserCtx); err != nil {
		return nil, fmt.Errorf("start browser: %w", err)
	}

	checkCtx, checkCancel := context.WithTimeout(browserCtx, selfCheckTimeout)
	defer checkCancel()
	stop := context.AfterFunc(ctx, checkCancel)
	defer stop()

	result := make(map[string]interface{})
	if err := chromedp.Run(checkCtx, dom.VerifyChromedpWorkingAction(&result)); err != nil {
		return nil, fmt.Errorf("self-check page: %w", err)
	}
	return result, nil
}

// ErrorScreenshotPath is the scenario's diagnostic screenshot, defaulting to <name>_error.png.
func ErrorScreenshotPath(sc *scenario.Scenario) string {
	if sc.ErrorScreenshot != "" {
		return sc.ErrorScreenshot
	}
	return sc.Name + "_error.png"
}

// Shutdown implements the runs.Executor interface.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("shutting down browser manager")

	if m.allocatorCancel != nil {
		m.allocatorCancel()
	}

	shutdownComplete := make(chan struct{})
	go func() {
		m.activeCtxWg.Wait()
		close(shutdownComplete)
	}()

	select {
	case <-shutdownComplete:
		m.logger.Info("all active browser sessions have finished")
	case <-ctx.Done():
		m.logger.Warn("shutdown timeout reached while waiting for active browser sessions")
		return ctx.Err()
	}
	return nil
}
