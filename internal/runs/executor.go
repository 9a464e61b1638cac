package runs

import (
	"context"

	"github.com/copyleftdev/uiverify/internal/runtypes"
)

// Executor defines the interface for executing scenario runs.
// This decouples the run manager from the specific browser implementation.
type Executor interface {
	// ExecuteRun plays the run's scenario and returns its result. The
	// result is non-nil whenever the scenario got as far as a browser.
	// An error is returned for failures that must propagate to the caller.
	ExecuteRun(ctx context.Context, run *runtypes.Run) (*runtypes.Result, error)

	// Shutdown allows for graceful cleanup of browser resources.
	Shutdown(ctx context.Context) error
}
