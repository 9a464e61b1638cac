package report

import (
	"time"

	"github.com/copyleftdev/uiverify/internal/runtypes"
)

const Version = "uiverify/v1"

// Message is the envelope posted to callbacks.
type Message struct {
	Version string  `json:"version"`
	Context Context `json:"context"`
	RunID   string  `json:"run_id,omitempty"`
}

type Context struct {
	Metadata Metadata `json:"metadata"`
	Actors   []Actor  `json:"actors,omitempty"`
	Content  Content  `json:"content"`
}

type Metadata struct {
	SourceURI string                 `json:"source_uri,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Custom    map[string]interface{} `json:"custom,omitempty"`
}

type Actor struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

type Content struct {
	MIMEType string      `json:"mime_type"`
	Data     interface{} `json:"data"`
}

// RunPayload is the externally visible view of a run.
type RunPayload struct {
	ID        string           `json:"id"`
	Scenario  string           `json:"scenario"`
	Status    runtypes.Status  `json:"status"`
	Strict    bool             `json:"strict,omitempty"`
	Result    *runtypes.Result `json:"result,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Report is the document written by `uiverify run --report`.
type Report struct {
	Version     string       `json:"version"`
	GeneratedAt time.Time    `json:"generated_at"`
	Total       int          `json:"total"`
	Passed      int          `json:"passed"`
	Failed      int          `json:"failed"`
	Cancelled   int          `json:"cancelled"`
	Runs        []RunPayload `json:"runs"`
}

func NewBaseMessage(runID string) Message {
	return Message{
		Version: Version,
		RunID:   runID,
		Context: Context{
			Metadata: Metadata{
				Timestamp: time.Now().UTC(),
			},
			Actors: []Actor{
				{ID: "uiverify", Role: "ui_verification_runner"},
			},
		},
	}
}
