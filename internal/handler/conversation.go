package handler

import (
	"log/slog"
	"net/http"
	"time"

	"kakehashi/internal/domain/services"
	"kakehashi/internal/httputil"
)

// ConversationHandler handles conversation practice HTTP requests.
type ConversationHandler struct {
	simulations services.SimulationService
	logger      *slog.Logger
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(simulations services.SimulationService, logger *slog.Logger) *ConversationHandler {
	return &ConversationHandler{
		simulations: simulations,
		logger:      logger,
	}
}

// ListScenarios returns every practice scenario
// GET /api/conversation/scenarios
func (h *ConversationHandler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	scenarios, err := h.simulations.ListScenarios(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"scenarios": scenarios,
		"total":     len(scenarios),
	})
}

// GetScenario returns one scenario
// GET /api/conversation/scenarios/{id}
func (h *ConversationHandler) GetScenario(w http.ResponseWriter, r *http.Request) {
	scenario, err := h.simulations.GetScenario(r.Context(), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, scenario)
}

type startSimulationRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// StartSimulation opens an in-memory practice session
// POST /api/conversation/simulation/start
func (h *ConversationHandler) StartSimulation(w http.ResponseWriter, r *http.Request) {
	var req startSimulationRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.simulations.Start(r.Context(), req.ScenarioID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, result)
}

type replyRequest struct {
	Message string `json:"message"`
}

// Reply submits one teacher turn and returns the scores plus the
// simulated student's answer
// POST /api/conversation/simulation/{id}/reply
func (h *ConversationHandler) Reply(w http.ResponseWriter, r *http.Request) {
	var req replyRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.simulations.Reply(r.Context(), r.PathValue("id"), req.Message)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}

// EndSimulation finalizes a session and persists its record
// POST /api/conversation/simulation/{id}/end
func (h *ConversationHandler) EndSimulation(w http.ResponseWriter, r *http.Request) {
	result, err := h.simulations.End(r.Context(), r.PathValue("id"), httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}

// GetSimulation returns the live transcript of an active session
// GET /api/conversation/simulation/{id}
func (h *ConversationHandler) GetSimulation(w http.ResponseWriter, r *http.Request) {
	state, err := h.simulations.Inspect(r.Context(), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, state)
}

// History lists completed sessions, newest first
// GET /api/conversation/history?limit=20&offset=0
func (h *ConversationHandler) History(w http.ResponseWriter, r *http.Request) {
	page, err := h.simulations.History(r.Context(),
		queryInt(r, "limit", 0),
		queryInt(r, "offset", 0),
	)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, page)
}

// HistoryDetail returns the stored transcript of a completed session
// GET /api/conversation/history/{id}
func (h *ConversationHandler) HistoryDetail(w http.ResponseWriter, r *http.Request) {
	state, err := h.simulations.HistoryDetail(r.Context(), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, state)
}

// HealthCheck is a simple liveness endpoint
// GET /health
func (h *ConversationHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now(),
	})
}
