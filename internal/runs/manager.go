package runs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/copyleftdev/uiverify/internal/config"
	"github.com/copyleftdev/uiverify/internal/report"
	"github.com/copyleftdev/uiverify/internal/runtypes"
)

const callbackTimeout = 10 * time.Second

var ErrRunNotFound = errors.New("run not found")

type Manager struct {
	cfg      *config.Config
	executor Executor
	logger   *zap.Logger
	client   *http.Client

	mu   sync.RWMutex
	runs map[uuid.UUID]*runtypes.Run

	// baseCtx parents every submitted run and is cancelled on Shutdown.
	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup
}

// NewManager creates a run manager over the given executor.
func NewManager(cfg *config.Config, executor Executor, logger *zap.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:        cfg,
		executor:   executor,
		logger:     logger,
		client:     &http.Client{Timeout: callbackTimeout},
		runs:       make(map[uuid.UUID]*runtypes.Run),
		baseCtx:    ctx,
		baseCancel: cancel,
	}
}

// register stores the run and reserves its slot in wg. The shutdown check,
// the store and wg.Add happen under one lock so Shutdown never waits on a
// WaitGroup that is still growing.
func (m *Manager) register(run *runtypes.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.baseCtx.Err(); err != nil {
		return fmt.Errorf("run manager is shut down: %w", err)
	}
	if _, exists := m.runs[run.ID]; exists {
		return fmt.Errorf("run with ID %s already exists", run.ID)
	}
	m.runs[run.ID] = run
	m.wg.Add(1)
	return nil
}

// Submit stores the run and executes it in the background.
func (m *Manager) Submit(run *runtypes.Run) error {
	if err := m.register(run); err != nil {
		return err
	}
	go func() {
		defer m.wg.Done()
		_ = m.execute(context.Background(), run)
	}()
	return nil
}

// Execute stores the run and executes it on the caller's goroutine. It
// returns a snapshot of the finished run and the executor's error, if any.
func (m *Manager) Execute(ctx context.Context, run *runtypes.Run) (*runtypes.Run, error) {
	if err := m.register(run); err != nil {
		return nil, err
	}
	err := m.execute(ctx, run)
	m.wg.Done()

	snapshot, getErr := m.Get(run.ID)
	if getErr != nil {
		return nil, getErr
	}
	return snapshot, err
}

// Get returns a copy of the run.
func (m *Manager) Get(id uuid.UUID) (*runtypes.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, exists := m.runs[id]
	if !exists {
		return nil, fmt.Errorf("run %s: %w", id, ErrRunNotFound)
	}
	return copyRun(run), nil
}

// List returns copies of all runs, oldest first.
func (m *Manager) List() []*runtypes.Run {
	m.mu.RLock()
	out := make([]*runtypes.Run, 0, len(m.runs))
	for _, run := range m.runs {
		out = append(out, copyRun(run))
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func copyRun(run *runtypes.Run) *runtypes.Run {
	c := *run
	if run.Result != nil {
		res := *run.Result
		res.Screenshots = append([]string(nil), run.Result.Screenshots...)
		res.Notes = append([]string(nil), run.Result.Notes...)
		c.Result = &res
	}
	return &c
}

// execute drives one run through running to a terminal status. The run is
// cancelled with ctx or when the manager shuts down.
func (m *Manager) execute(ctx context.Context, run *runtypes.Run) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(m.baseCtx, cancel)
	defer stop()

	log := m.logger.With(zap.String("run_id", run.ID.String()), zap.String("scenario", run.Name()))
	m.updateStatus(run, runtypes.StatusRunning, nil)
	log.Info("run started")

	// The executor works on its own copy so readers never race with it.
	m.mu.RLock()
	work := copyRun(run)
	m.mu.RUnlock()

	result, err := m.executor.ExecuteRun(ctx, work)
	// Without a result the callback carries only the error.
	var callbackErr error
	if result == nil {
		callbackErr = err
		if callbackErr == nil {
			callbackErr = errors.New("executor returned no result")
		}
		result = &runtypes.Result{FailedStep: -1}
		if err != nil {
			result.Message = "Run failed"
			result.Error = err.Error()
		}
	}

	status := runtypes.StatusPassed
	switch {
	case err != nil || !result.Success:
		status = runtypes.StatusFailed
		log.Warn("run failed", zap.String("error", result.Error), zap.Int("failed_step", result.FailedStep))
	default:
		log.Info("run passed", zap.Duration("duration", result.Duration))
	}
	m.updateStatus(run, status, result)

	if run.CallbackURL != "" {
		snapshot, getErr := m.Get(run.ID)
		if getErr == nil {
			m.wg.Add(1)
			go func() {
				defer m.wg.Done()
				m.notifyCallback(snapshot, callbackErr)
			}()
		}
	}
	return err
}

// updateStatus handles updating run status with proper locking. A cancelled
// run keeps its status but still records the result.
func (m *Manager) updateStatus(run *runtypes.Run, status runtypes.Status, result *runtypes.Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if result != nil {
		run.Result = result
	}
	if run.Status == runtypes.StatusCancelled {
		run.UpdatedAt = time.Now().UTC()
		return
	}
	run.UpdateStatus(status)
}

// notifyCallback posts the report envelope for the run to its callback URL.
// A non-nil execErr sends an error envelope instead of the run payload.
func (m *Manager) notifyCallback(run *runtypes.Run, execErr error) {
	log := m.logger.With(zap.String("run_id", run.ID.String()), zap.String("callback_url", run.CallbackURL))

	var (
		body []byte
		err  error
	)
	if execErr != nil {
		body, err = report.FormatError(run.ID.String(), execErr)
	} else {
		body, err = report.FormatResult(run)
	}
	if err != nil {
		log.Error("marshal callback payload", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), callbackTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, run.CallbackURL, bytes.NewReader(body))
	if err != nil {
		log.Error("create callback request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if m.cfg != nil && m.cfg.Security.ApiKey != "" {
		req.Header.Set("X-API-Key", m.cfg.Security.ApiKey)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		log.Warn("callback failed", zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		log.Info("callback sent", zap.Int("status", resp.StatusCode))
	} else {
		log.Warn("callback rejected", zap.Int("status", resp.StatusCode))
	}
}

// Shutdown cancels in-flight runs, waits for them and shuts the executor down.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	for id, run := range m.runs {
		if !run.Status.Terminal() {
			m.logger.Info("cancelling run during shutdown", zap.String("run_id", id.String()))
			run.UpdateStatus(runtypes.StatusCancelled)
		}
	}
	m.baseCancel()
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("shutdown timeout reached while waiting for runs")
		return ctx.Err()
	}

	if err := m.executor.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown executor: %w", err)
	}
	m.logger.Info("run manager shut down")
	return nil
}
