package domain

import "time"

// FunnelStage enumerates the marketing funnel positions a user can occupy.
type FunnelStage string

const (
	FunnelStageNew     FunnelStage = "new"
	FunnelStageEngaged FunnelStage = "engaged"
	FunnelStagePaying  FunnelStage = "paying"
	FunnelStageDormant FunnelStage = "dormant"
	FunnelCohortAll    FunnelStage = "all"
)

// User represents an account reachable through the chat platform.
type User struct {
	ID                string
	ChatRef           int64
	Locale            string
	Credits           int
	SubscriptionUntil time.Time
	FunnelStage       FunnelStage
	Banned            bool
	BotBlocked        bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HasActiveSubscription reports whether the user may bypass the credit check.
func (u User) HasActiveSubscription(now time.Time) bool {
	return !u.SubscriptionUntil.IsZero() && u.SubscriptionUntil.After(now)
}

// Reachable reports whether a broadcast may target the user.
func (u User) Reachable() bool {
	return !u.Banned && !u.BotBlocked && u.ChatRef != 0
}
