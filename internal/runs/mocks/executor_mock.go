package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/copyleftdev/uiverify/internal/runtypes"
)

// MockExecutor implements the runs.Executor interface for testing
type MockExecutor struct {
	mu             sync.Mutex
	executedRuns   []*runtypes.Run
	resultsByName  map[string]*runtypes.Result
	errorsByName   map[string]error
	delay          time.Duration
	shutdownCalled bool
	shutdownError  error
}

// NewMockExecutor creates a new mock executor
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{
		executedRuns:  make([]*runtypes.Run, 0),
		resultsByName: make(map[string]*runtypes.Result),
		errorsByName:  make(map[string]error),
	}
}

// ExecuteRun implements the Executor interface. Unless a result or error
// was set for the scenario name, the run passes.
func (m *MockExecutor) ExecuteRun(ctx context.Context, run *runtypes.Run) (*runtypes.Result, error) {
	m.mu.Lock()
	m.executedRuns = append(m.executedRuns, run)
	delay := m.delay
	result, hasResult := m.resultsByName[run.Name()]
	err := m.errorsByName[run.Name()]
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return &runtypes.Result{Message: "Run cancelled", Error: ctx.Err().Error(), FailedStep: -1}, ctx.Err()
		}
	}

	if hasResult && result != nil {
		res := *result
		return &res, err
	}
	if err != nil {
		return nil, err
	}
	return &runtypes.Result{
		Success:    true,
		Message:    fmt.Sprintf("Mock execution of %s", run.Name()),
		FailedStep: -1,
	}, err
}

// Shutdown implements the Executor interface
func (m *MockExecutor) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownCalled = true
	return m.shutdownError
}

// ExecutedRuns returns the runs that were executed
func (m *MockExecutor) ExecutedRuns() []*runtypes.Run {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*runtypes.Run(nil), m.executedRuns...)
}

// WasShutdownCalled returns whether Shutdown was called
func (m *MockExecutor) WasShutdownCalled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shutdownCalled
}

// SetResult sets a predefined result and error for a scenario name
func (m *MockExecutor) SetResult(scenarioName string, result *runtypes.Result, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resultsByName[scenarioName] = result
	m.errorsByName[scenarioName] = err
}

// SetDelay makes every execution block for d or until its context ends
func (m *MockExecutor) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// SetShutdownError sets the error to return from Shutdown
func (m *MockExecutor) SetShutdownError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownError = err
}
