package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/copyleftdev/uiverify/internal/runtypes"
)

func marshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// Payload flattens a run for reports and callbacks.
func Payload(run *runtypes.Run) RunPayload {
	return RunPayload{
		ID:        run.ID.String(),
		Scenario:  run.Name(),
		Status:    run.Status,
		Strict:    run.Strict(),
		Result:    run.Result,
		CreatedAt: run.CreatedAt,
		UpdatedAt: run.UpdatedAt,
	}
}

// FormatResult wraps the run's current state in an envelope.
func FormatResult(run *runtypes.Run) ([]byte, error) {
	msg := NewBaseMessage(run.ID.String())
	if run.Scenario != nil {
		msg.Context.Metadata.SourceURI = run.Scenario.URL
	}
	msg.Context.Metadata.Custom = map[string]interface{}{
		"status": string(run.Status),
	}
	msg.Context.Content = Content{
		MIMEType: "application/json",
		Data:     Payload(run),
	}
	return marshalMessage(msg)
}

func FormatError(runID string, err error) ([]byte, error) {
	msg := NewBaseMessage(runID)
	msg.Context.Content = Content{
		MIMEType: "application/json",
		Data:     map[string]string{"error": err.Error()},
	}
	return marshalMessage(msg)
}

// Summary tallies runs by outcome. Runs still in flight count only toward Total.
func Summary(runs []*runtypes.Run) Report {
	rep := Report{
		Version:     Version,
		GeneratedAt: time.Now().UTC(),
		Total:       len(runs),
		Runs:        make([]RunPayload, 0, len(runs)),
	}
	for _, run := range runs {
		switch run.Status {
		case runtypes.StatusPassed:
			rep.Passed++
		case runtypes.StatusFailed:
			rep.Failed++
		case runtypes.StatusCancelled:
			rep.Cancelled++
		}
		rep.Runs = append(rep.Runs, Payload(run))
	}
	return rep
}

// WriteFile writes the summary of runs as indented JSON, creating parent dirs.
func WriteFile(path string, runs []*runtypes.Run) error {
	data, err := json.MarshalIndent(Summary(runs), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
