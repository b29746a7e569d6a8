package repo

import (
	"context"

	"visage/internal/domain"
	"visage/internal/infra"
	"visage/internal/sqlinline"
)

// AnalysisRepositoryPG implements domain.AnalysisRepository.
type AnalysisRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewAnalysisRepository creates a new analysis repository backed by PostgreSQL.
func NewAnalysisRepository(sql infra.SQLExecutor) *AnalysisRepositoryPG {
	return &AnalysisRepositoryPG{sql: sql}
}

// Create inserts a new pending record.
func (r *AnalysisRepositoryPG) Create(ctx context.Context, rec *domain.AnalysisRecord) error {
	_, err := r.sql.Exec(ctx, sqlinline.QInsertAnalysis, rec.ID, rec.UserID, rec.Variant)
	return err
}

// GetByID fetches a record by its identifier.
func (r *AnalysisRepositoryPG) GetByID(ctx context.Context, id string) (*domain.AnalysisRecord, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectAnalysisByID, id)
	var rec domain.AnalysisRecord
	if err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.Status,
		&rec.Variant,
		&rec.ResultText,
		&rec.SummaryText,
		&rec.CardImageRef,
		&rec.ErrorMessage,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// MarkCompleted writes the terminal success state. Only a pending record can
// transition; a completed or failed one is left as-is.
func (r *AnalysisRepositoryPG) MarkCompleted(ctx context.Context, id, resultText, summaryText, cardImageRef string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QMarkAnalysisCompleted, id, resultText, summaryText, cardImageRef)
	return err
}

// MarkFailed writes the terminal failure state.
func (r *AnalysisRepositoryPG) MarkFailed(ctx context.Context, id, errMsg string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QMarkAnalysisFailed, id, errMsg)
	return err
}

// Delete removes the record entirely, used for the sentinel and refusal
// branches where no outcome should remain visible.
func (r *AnalysisRepositoryPG) Delete(ctx context.Context, id string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QDeleteAnalysis, id)
	return err
}

var _ domain.AnalysisRepository = (*AnalysisRepositoryPG)(nil)
