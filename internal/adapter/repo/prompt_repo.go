package repo

import (
	"context"

	"visage/internal/domain"
	"visage/internal/infra"
	"visage/internal/sqlinline"
)

// PromptRepositoryPG reads and writes prompt bodies keyed by name.
type PromptRepositoryPG struct {
	sql infra.SQLExecutor
}

var _ domain.PromptRepository = (*PromptRepositoryPG)(nil)

func NewPromptRepository(sql infra.SQLExecutor) *PromptRepositoryPG {
	return &PromptRepositoryPG{sql: sql}
}

// GetByKey returns the stored prompt body, or domain.ErrNotFound.
func (r *PromptRepositoryPG) GetByKey(ctx context.Context, key string) (string, error) {
	var body string
	if err := r.sql.QueryRow(ctx, sqlinline.QSelectPromptByKey, key).Scan(&body); err != nil {
		if infra.IsNoRows(err) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return body, nil
}

// Upsert stores a prompt body under the key.
func (r *PromptRepositoryPG) Upsert(ctx context.Context, key, body string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QUpsertPrompt, key, body)
	return err
}
