package domain

import "context"

// AnalysisRepository defines persistence for analysis records.
type AnalysisRepository interface {
	Create(ctx context.Context, rec *AnalysisRecord) error
	GetByID(ctx context.Context, id string) (*AnalysisRecord, error)
	MarkCompleted(ctx context.Context, id, resultText, summaryText, cardImageRef string) error
	MarkFailed(ctx context.Context, id, errMsg string) error
	Delete(ctx context.Context, id string) error
}

// CreditLedger debits and refunds per-user balances. Both operations record a
// ledger entry keyed (user_id, request_id, direction); replaying either for
// the same request is a no-op, which makes the compensating refund at-most-once
// even when the outer queue retries a job after a refund already landed.
type CreditLedger interface {
	Debit(ctx context.Context, userID, requestID string, amount int) error
	Refund(ctx context.Context, userID, requestID string, amount int) error
	Grant(ctx context.Context, userID string, amount int) error
	Balance(ctx context.Context, userID string) (int, error)
}

// UserRepository defines access methods for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	ListFunnelCohort(ctx context.Context, stage FunnelStage) ([]User, error)
}

// PromptRepository stores model prompt bodies keyed by name.
type PromptRepository interface {
	GetByKey(ctx context.Context, key string) (string, error)
	Upsert(ctx context.Context, key, body string) error
}

// Publisher is the outbound half of the notification bus.
type Publisher interface {
	Publish(ctx context.Context, n Notification) error
}
