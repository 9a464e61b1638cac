package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/copyleftdev/uiverify/internal/report"
	"github.com/copyleftdev/uiverify/internal/runs"
	"github.com/copyleftdev/uiverify/internal/runtypes"
	"github.com/copyleftdev/uiverify/internal/scenario"
	"github.com/copyleftdev/uiverify/internal/suites"
)

type APIHandler struct {
	runManager *runs.Manager
	registry   *suites.Registry
	logger     *zap.Logger
}

func NewAPIHandler(rm *runs.Manager, registry *suites.Registry, logger *zap.Logger) *APIHandler {
	return &APIHandler{
		runManager: rm,
		registry:   registry,
		logger:     logger,
	}
}

// SubmitRunRequest names a registered scenario or carries an inline definition.
type SubmitRunRequest struct {
	Scenario    string             `json:"scenario,omitempty"`
	Definition  *scenario.Scenario `json:"definition,omitempty"`
	CallbackURL string             `json:"callback_url,omitempty"`
}

type SubmitRunResponse struct {
	RunID string `json:"run_id"`
}

type ScenarioInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url"`
	Steps       int    `json:"steps"`
	Strict      bool   `json:"strict,omitempty"`
}

func (h *APIHandler) HandleListScenarios(w http.ResponseWriter, r *http.Request) {
	all := h.registry.All()
	out := make([]ScenarioInfo, 0, len(all))
	for _, sc := range all {
		out = append(out, ScenarioInfo{
			Name:        sc.Name,
			Description: sc.Description,
			URL:         sc.URL,
			Steps:       len(sc.Steps),
			Strict:      sc.Strict,
		})
	}
	h.respondJSON(w, http.StatusOK, out)
}

func (h *APIHandler) HandleSubmitRun(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req SubmitRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body: %v", err)
		return
	}

	var sc *scenario.Scenario
	switch {
	case req.Scenario != "" && req.Definition != nil:
		h.respondError(w, http.StatusBadRequest, "Provide either scenario or definition, not both")
		return
	case req.Scenario != "":
		found, err := h.registry.Lookup(req.Scenario)
		if errors.Is(err, scenario.ErrUnknownScenario) {
			h.respondError(w, http.StatusNotFound, "%v", err)
			return
		} else if err != nil {
			h.respondError(w, http.StatusInternalServerError, "Failed to resolve scenario: %v", err)
			return
		}
		sc = found
	case req.Definition != nil:
		if err := req.Definition.Validate(); err != nil {
			h.respondError(w, http.StatusBadRequest, "Invalid scenario: %v", err)
			return
		}
		sc = req.Definition
	default:
		h.respondError(w, http.StatusBadRequest, "Run must name a scenario or include a definition")
		return
	}

	if req.CallbackURL != "" {
		u, err := url.Parse(req.CallbackURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			h.respondError(w, http.StatusBadRequest, "Invalid callback_url %q", req.CallbackURL)
			return
		}
	}

	run := runtypes.NewRun(sc, req.CallbackURL)
	if err := h.runManager.Submit(run); err != nil {
		h.logger.Error("submit run", zap.Error(err))
		h.respondError(w, http.StatusServiceUnavailable, "Failed to submit run: %v", err)
		return
	}

	h.logger.Info("submitted run", zap.String("run_id", run.ID.String()), zap.String("scenario", sc.Name))
	h.respondJSON(w, http.StatusAccepted, SubmitRunResponse{RunID: run.ID.String()})
}

func (h *APIHandler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	list := h.runManager.List()
	out := make([]report.RunPayload, 0, len(list))
	for _, run := range list {
		out = append(out, report.Payload(run))
	}
	h.respondJSON(w, http.StatusOK, out)
}

func (h *APIHandler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	runIDStr := chi.URLParam(r, "runID")
	runID, err := uuid.Parse(runIDStr)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid run ID format: %v", err)
		return
	}

	run, err := h.runManager.Get(runID)
	if errors.Is(err, runs.ErrRunNotFound) {
		h.respondError(w, http.StatusNotFound, "Run not found")
		return
	} else if err != nil {
		h.logger.Error("get run", zap.String("run_id", runIDStr), zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve run")
		return
	}

	h.respondJSON(w, http.StatusOK, run)
}

func (h *APIHandler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("marshal JSON response", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "Failed to marshal JSON response")
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(response); err != nil {
		h.logger.Warn("write JSON response", zap.Error(err))
	}
}

func (h *APIHandler) respondError(w http.ResponseWriter, status int, format string, args ...interface{}) {
	errorMessage := fmt.Sprintf(format, args...)
	jsonResponse, err := json.Marshal(map[string]string{"error": errorMessage})
	if err != nil {
		jsonResponse = []byte(`{"error":"internal error"}`)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, writeErr := w.Write(jsonResponse); writeErr != nil {
		h.logger.Warn("write error response", zap.Error(writeErr))
	}
}
