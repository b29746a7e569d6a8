package handlers

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"visage/internal/domain"
	"visage/pkg/zip"
)

// AnalysisArtifacts bundles a job's retained files (source photos, composite,
// share card) into a single zip download.
func (a *App) AnalysisArtifacts(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "id required")
		return
	}
	if _, err := a.Records.GetByID(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "analysis not found")
			return
		}
		a.Logger.Error().Err(err).Str("request_id", id).Msg("handlers: record lookup failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load analysis")
		return
	}

	files, err := a.Store.ListJob(r.Context(), id)
	if err != nil {
		a.Logger.Error().Err(err).Str("request_id", id).Msg("handlers: artifact listing failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to collect artifacts")
		return
	}
	if len(files) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "no artifacts retained for analysis")
		return
	}

	assets := make([]zip.Asset, 0, len(files))
	for _, f := range files {
		assets = append(assets, zip.Asset{
			Filename: f.Name,
			MIME:     mime.TypeByExtension(filepath.Ext(f.Name)),
			Data:     f.Data,
		})
	}
	archive, err := zip.ArchiveAssets(assets)
	if err != nil {
		a.Logger.Error().Err(err).Str("request_id", id).Msg("handlers: artifact archiving failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to archive artifacts")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "analysis-"+id+".zip"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}
