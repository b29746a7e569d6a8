package repo

import (
	"context"
	"fmt"
	"time"

	"visage/internal/domain"
	"visage/internal/infra"
	"visage/internal/sqlinline"
)

// LedgerPG implements domain.CreditLedger on top of the ledger_entries table.
type LedgerPG struct {
	sql infra.SQLExecutor
}

// NewLedger creates a new ledger backed by PostgreSQL.
func NewLedger(sql infra.SQLExecutor) *LedgerPG {
	return &LedgerPG{sql: sql}
}

// Debit charges the user for a request. An active subscription bypasses the
// balance check entirely: no entry is written and no balance moves, which in
// turn makes any later refund for the request a no-op.
func (l *LedgerPG) Debit(ctx context.Context, userID, requestID string, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("ledger: debit amount must be positive, got %d", amount)
	}

	var until time.Time
	if err := l.sql.QueryRow(ctx, sqlinline.QSelectSubscription, userID).Scan(&until); err != nil {
		if infra.IsNoRows(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("ledger: load subscription: %w", err)
	}
	if until.After(time.Now()) {
		return nil
	}

	var remaining int
	err := l.sql.QueryRow(ctx, sqlinline.QLedgerDebit, userID, requestID, amount).Scan(&remaining)
	if err == nil {
		return nil
	}
	if !infra.IsNoRows(err) {
		return fmt.Errorf("ledger: debit: %w", err)
	}

	// No balance moved: either the request was already debited or the user
	// cannot afford it.
	var debited bool
	if err := l.sql.QueryRow(ctx, sqlinline.QLedgerEntryExists, userID, requestID, "debit").Scan(&debited); err != nil {
		return fmt.Errorf("ledger: check debit entry: %w", err)
	}
	if debited {
		return domain.ErrDuplicateOperation
	}
	return domain.ErrInsufficientCredits
}

// Refund issues the compensating credit for a previously debited request. It
// is safe to call on any failure branch: without a matching debit entry, or
// with a refund entry already present, nothing happens.
func (l *LedgerPG) Refund(ctx context.Context, userID, requestID string, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("ledger: refund amount must be positive, got %d", amount)
	}
	_, err := l.sql.Exec(ctx, sqlinline.QLedgerRefund, userID, requestID, amount)
	if err != nil {
		return fmt.Errorf("ledger: refund: %w", err)
	}
	return nil
}

// Grant unconditionally increments the balance, used by purchase flows.
func (l *LedgerPG) Grant(ctx context.Context, userID string, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("ledger: grant amount must be positive, got %d", amount)
	}
	tag, err := l.sql.Exec(ctx, sqlinline.QLedgerGrant, userID, amount)
	if err != nil {
		return fmt.Errorf("ledger: grant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Balance returns the current credit balance.
func (l *LedgerPG) Balance(ctx context.Context, userID string) (int, error) {
	var credits int
	if err := l.sql.QueryRow(ctx, sqlinline.QSelectBalance, userID).Scan(&credits); err != nil {
		if infra.IsNoRows(err) {
			return 0, domain.ErrNotFound
		}
		return 0, err
	}
	return credits, nil
}

var _ domain.CreditLedger = (*LedgerPG)(nil)
