// Package funnel fans a marketing message out to a user cohort. The fan-out
// is bounded in concurrency and paced globally so a large cohort cannot
// exhaust the chat platform's rate budget.
package funnel

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"visage/internal/domain"
	"visage/internal/infra"
)

// Result summarizes one broadcast run.
type Result struct {
	TotalTargeted int `json:"total_targeted"`
	Sent          int `json:"sent"`
	Failed        int `json:"failed"`
}

type Broadcaster struct {
	users       domain.UserRepository
	publisher   domain.Publisher
	limiter     *rate.Limiter
	concurrency int
	logger      infra.Logger
}

func NewBroadcaster(users domain.UserRepository, publisher domain.Publisher, ratePerSec float64, concurrency int, logger infra.Logger) *Broadcaster {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Broadcaster{
		users:       users,
		publisher:   publisher,
		limiter:     rate.NewLimiter(rate.Limit(ratePerSec), 1),
		concurrency: concurrency,
		logger:      logger,
	}
}

// Broadcast publishes one funnel_message envelope per reachable user in the
// stage cohort. Individual publish failures are counted, not fatal; the run
// only aborts when the context is cancelled.
func (b *Broadcaster) Broadcast(ctx context.Context, stage domain.FunnelStage, body string) (Result, error) {
	cohort, err := b.users.ListFunnelCohort(ctx, stage)
	if err != nil {
		return Result{}, err
	}

	payload, err := json.Marshal(domain.FunnelPayload{Body: body})
	if err != nil {
		return Result{}, err
	}

	var sent, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for _, u := range cohort {
		if !u.Reachable() {
			continue
		}
		u := u
		g.Go(func() error {
			if err := b.limiter.Wait(gctx); err != nil {
				return err
			}
			n := domain.Notification{
				Type:    domain.NotifyFunnelMessage,
				UserID:  u.ID,
				ChatRef: u.ChatRef,
				Payload: payload,
			}
			if err := b.publisher.Publish(gctx, n); err != nil {
				failed.Add(1)
				b.logger.Warn().Err(err).
					Str("user_id", u.ID).
					Msg("funnel: publish failed")
				return nil
			}
			sent.Add(1)
			return nil
		})
	}

	err = g.Wait()
	res := Result{
		TotalTargeted: len(cohort),
		Sent:          int(sent.Load()),
		Failed:        int(failed.Load()),
	}
	b.logger.Info().
		Str("stage", string(stage)).
		Int("targeted", res.TotalTargeted).
		Int("sent", res.Sent).
		Int("failed", res.Failed).
		Msg("funnel: broadcast finished")
	return res, err
}
