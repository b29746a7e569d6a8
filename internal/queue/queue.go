package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"visage/internal/domain"
	"visage/internal/infra"
	"visage/internal/sqlinline"
)

// ErrNoJobAvailable signals an empty queue; callers should poll again later.
var ErrNoJobAvailable = errors.New("queue: no job available")

// JobPayload is the wire shape stored in the jobs table. Enqueued by the
// admission step, consumed by the worker.
type JobPayload struct {
	ID             string                 `json:"id"`
	UserID         string                 `json:"user_id"`
	PhotoRefs      []string               `json:"photo_refs"`
	ChatRef        int64                  `json:"chat_ref"`
	ReplyTargetRef int                    `json:"reply_target_ref,omitempty"`
	Cost           int                    `json:"cost"`
	Variant        domain.AnalysisVariant `json:"variant"`
}

// Request converts the stored payload back into the orchestrator's input.
func (p JobPayload) Request() domain.AnalysisRequest {
	return domain.AnalysisRequest{
		ID:             p.ID,
		UserID:         p.UserID,
		PhotoRefs:      p.PhotoRefs,
		ChatRef:        p.ChatRef,
		ReplyTargetRef: p.ReplyTargetRef,
		Cost:           p.Cost,
		Variant:        p.Variant,
	}
}

// Job is a claimed queue entry.
type Job struct {
	ID       string
	UserID   string
	Attempts int
	Payload  JobPayload
}

// Queue is a durable Postgres-backed job queue. Claims use FOR UPDATE SKIP
// LOCKED so concurrent workers never hand out the same job twice. Retries are
// rescheduled with exponential backoff through the available_at column.
type Queue struct {
	sql         infra.SQLExecutor
	maxAttempts int
}

func New(sql infra.SQLExecutor, maxAttempts int) *Queue {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Queue{sql: sql, maxAttempts: maxAttempts}
}

// Enqueue stores a new job. The job id doubles as the analysis request id.
func (q *Queue) Enqueue(ctx context.Context, p JobPayload) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("queue: marshal payload: %w", err)
	}
	if _, err := q.sql.Exec(ctx, sqlinline.QEnqueueAnalysisJob, p.ID, p.UserID, raw); err != nil {
		return fmt.Errorf("queue: enqueue: %w", err)
	}
	return nil
}

// Claim pops the oldest runnable job, marking it running and bumping its
// attempt counter.
func (q *Queue) Claim(ctx context.Context) (*Job, error) {
	row := q.sql.QueryRow(ctx, sqlinline.QClaimAnalysisJob)
	var (
		j   Job
		raw []byte
	)
	if err := row.Scan(&j.ID, &j.UserID, &raw, &j.Attempts); err != nil {
		if infra.IsNoRows(err) {
			return nil, ErrNoJobAvailable
		}
		return nil, fmt.Errorf("queue: claim: %w", err)
	}
	if err := json.Unmarshal(raw, &j.Payload); err != nil {
		return nil, fmt.Errorf("queue: decode payload for job %s: %w", j.ID, err)
	}
	return &j, nil
}

// Complete marks the job done.
func (q *Queue) Complete(ctx context.Context, jobID string) error {
	_, err := q.sql.Exec(ctx, sqlinline.QCompleteAnalysisJob, jobID)
	return err
}

// Release returns a failed job to the queue with backoff, or dead-letters it
// once the attempt budget is spent.
func (q *Queue) Release(ctx context.Context, j *Job) error {
	if j.Attempts >= q.maxAttempts {
		_, err := q.sql.Exec(ctx, sqlinline.QDeadAnalysisJob, j.ID)
		return err
	}
	delay := int(Backoff(j.Attempts) / time.Second)
	_, err := q.sql.Exec(ctx, sqlinline.QRetryAnalysisJob, j.ID, delay)
	return err
}

// Backoff returns the delay before the next attempt: 30s, 60s, 120s, ...
// capped at 15 minutes.
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := 30 * time.Second << (attempt - 1)
	if d > 15*time.Minute {
		return 15 * time.Minute
	}
	return d
}
