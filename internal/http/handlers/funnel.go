package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"visage/internal/domain"
)

type funnelBroadcastRequest struct {
	Stage string `json:"stage"`
	Body  string `json:"body"`
}

func (a *App) FunnelBroadcast(w http.ResponseWriter, r *http.Request) {
	var req funnelBroadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if strings.TrimSpace(req.Body) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "body is required")
		return
	}
	stage := domain.FunnelStage(req.Stage)
	if req.Stage == "" {
		stage = domain.FunnelCohortAll
	}
	switch stage {
	case domain.FunnelStageNew, domain.FunnelStageEngaged, domain.FunnelStagePaying,
		domain.FunnelStageDormant, domain.FunnelCohortAll:
	default:
		a.error(w, http.StatusBadRequest, "bad_request", "unknown funnel stage")
		return
	}
	res, err := a.Broadcaster.Broadcast(r.Context(), stage, req.Body)
	if err != nil {
		a.Logger.Error().Err(err).Str("stage", string(stage)).Msg("handlers: broadcast failed")
		a.error(w, http.StatusInternalServerError, "internal", "broadcast failed")
		return
	}
	a.json(w, http.StatusOK, res)
}
