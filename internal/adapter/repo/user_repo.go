package repo

import (
	"context"

	"github.com/jackc/pgx/v5"

	"visage/internal/domain"
	"visage/internal/infra"
	"visage/internal/sqlinline"
)

// UserRepositoryPG implements domain.UserRepository backed by PostgreSQL.
type UserRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewUserRepository creates a new UserRepositoryPG.
func NewUserRepository(sql infra.SQLExecutor) *UserRepositoryPG {
	return &UserRepositoryPG{sql: sql}
}

// GetByID fetches a user by UUID.
func (r *UserRepositoryPG) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectUserByID, id)
	return scanUser(row)
}

// ListFunnelCohort returns every reachable user in the given funnel stage, or
// everyone reachable when stage is the "all" cohort.
func (r *UserRepositoryPG) ListFunnelCohort(ctx context.Context, stage domain.FunnelStage) ([]domain.User, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListFunnelCohort, string(stage))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(
		&u.ID,
		&u.ChatRef,
		&u.Locale,
		&u.Credits,
		&u.SubscriptionUntil,
		&u.FunnelStage,
		&u.Banned,
		&u.BotBlocked,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

var _ domain.UserRepository = (*UserRepositoryPG)(nil)
