package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"visage/internal/domain"
	"visage/internal/queue"
)

type analysisCreateRequest struct {
	UserID         string   `json:"user_id"`
	ChatRef        int64    `json:"chat_ref"`
	ReplyTargetRef int      `json:"reply_target_ref"`
	PhotoRefs      []string `json:"photo_refs"`
	Variant        string   `json:"variant"`
}

type analysisCreateResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Cost   int    `json:"cost"`
}

// AnalysesCreate admits a new analysis: debit first, then the pending record,
// then the queue entry. The debit is compensated when either later step fails
// so an admission error never strands credits.
func (a *App) AnalysesCreate(w http.ResponseWriter, r *http.Request) {
	var req analysisCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.UserID == "" || req.ChatRef == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "user_id and chat_ref are required")
		return
	}
	variant := domain.AnalysisVariant(req.Variant)
	if req.Variant == "" {
		variant = domain.VariantSolo
	}
	if !variant.Valid() {
		a.error(w, http.StatusBadRequest, "bad_request", "unknown variant")
		return
	}
	cost := a.CostSolo
	if variant == domain.VariantPaired {
		cost = a.CostPaired
	}
	job := domain.AnalysisRequest{
		ID:             uuid.NewString(),
		UserID:         req.UserID,
		PhotoRefs:      req.PhotoRefs,
		ChatRef:        req.ChatRef,
		ReplyTargetRef: req.ReplyTargetRef,
		Cost:           cost,
		Variant:        variant,
	}
	if err := job.ValidatePhotoCount(); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "photo count out of range for variant")
		return
	}

	ctx := r.Context()
	if err := a.Ledger.Debit(ctx, job.UserID, job.ID, job.Cost); err != nil {
		if errors.Is(err, domain.ErrInsufficientCredits) {
			a.error(w, http.StatusPaymentRequired, "insufficient_credits", "not enough credits")
			return
		}
		a.Logger.Error().Err(err).Str("user_id", job.UserID).Msg("handlers: debit failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to debit credits")
		return
	}

	rec := &domain.AnalysisRecord{
		ID:      job.ID,
		UserID:  job.UserID,
		Status:  domain.AnalysisStatusPending,
		Variant: variant,
	}
	if err := a.Records.Create(ctx, rec); err != nil {
		a.compensate(r, job)
		a.Logger.Error().Err(err).Str("request_id", job.ID).Msg("handlers: record create failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to create analysis")
		return
	}

	payload := queue.JobPayload{
		ID:             job.ID,
		UserID:         job.UserID,
		PhotoRefs:      job.PhotoRefs,
		ChatRef:        job.ChatRef,
		ReplyTargetRef: job.ReplyTargetRef,
		Cost:           job.Cost,
		Variant:        job.Variant,
	}
	if err := a.Queue.Enqueue(ctx, payload); err != nil {
		// The pending record must not outlive a failed admission; without a
		// queue entry no worker would ever drive it to a terminal state.
		if delErr := a.Records.Delete(ctx, job.ID); delErr != nil {
			a.Logger.Error().Err(delErr).Str("request_id", job.ID).Msg("handlers: orphaned record cleanup failed")
		}
		a.compensate(r, job)
		a.Logger.Error().Err(err).Str("request_id", job.ID).Msg("handlers: enqueue failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to queue analysis")
		return
	}

	a.json(w, http.StatusAccepted, analysisCreateResponse{
		ID:     job.ID,
		Status: string(domain.AnalysisStatusPending),
		Cost:   job.Cost,
	})
}

func (a *App) compensate(r *http.Request, job domain.AnalysisRequest) {
	if err := a.Ledger.Refund(r.Context(), job.UserID, job.ID, job.Cost); err != nil {
		a.Logger.Error().Err(err).
			Str("request_id", job.ID).
			Msg("handlers: admission refund failed")
	}
}

func (a *App) AnalysisStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "id required")
		return
	}
	rec, err := a.Records.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "analysis not found")
			return
		}
		a.Logger.Error().Err(err).Str("request_id", id).Msg("handlers: record lookup failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load analysis")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"id":             rec.ID,
		"user_id":        rec.UserID,
		"status":         rec.Status,
		"variant":        rec.Variant,
		"summary":        rec.SummaryText,
		"description":    rec.ResultText,
		"card_image_ref": rec.CardImageRef,
		"error":          rec.ErrorMessage,
		"created_at":     rec.CreatedAt,
		"updated_at":     rec.UpdatedAt,
	})
}
