package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"visage/internal/domain"
)

type promptUpsertRequest struct {
	Key  string `json:"key"`
	Body string `json:"body"`
}

// PromptsUpsert replaces a stored prompt body. Workers pick the change up
// when their cache entry expires.
func (a *App) PromptsUpsert(w http.ResponseWriter, r *http.Request) {
	var req promptUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req.Key = strings.TrimSpace(req.Key)
	if req.Key == "" || strings.TrimSpace(req.Body) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "key and body are required")
		return
	}
	if err := a.Prompts.Upsert(r.Context(), req.Key, req.Body); err != nil {
		a.Logger.Error().Err(err).Str("key", req.Key).Msg("handlers: prompt upsert failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to store prompt")
		return
	}
	a.json(w, http.StatusOK, map[string]string{"key": req.Key})
}

func (a *App) PromptGet(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "key required")
		return
	}
	body, err := a.Prompts.GetByKey(r.Context(), key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "prompt not found")
			return
		}
		a.Logger.Error().Err(err).Str("key", key).Msg("handlers: prompt lookup failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load prompt")
		return
	}
	a.json(w, http.StatusOK, map[string]string{"key": key, "body": body})
}
