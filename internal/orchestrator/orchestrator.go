package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"visage/internal/domain"
	"visage/internal/infra"
)

// MediaFetcher retrieves platform files into local storage.
type MediaFetcher interface {
	FetchFile(ctx context.Context, jobID, ref string) (string, error)
	ProfilePhoto(ctx context.Context, jobID string, userRef int64) (string, error)
}

// Analyzer is the AI gateway surface the orchestrator drives.
type Analyzer interface {
	Analyze(ctx context.Context, photoPaths []string, variant domain.AnalysisVariant) (string, error)
	Summarize(ctx context.Context, analysisText string) (string, error)
}

// Compositor performs the deterministic image transforms.
type Compositor interface {
	CombineHorizontally(paths []string) (string, error)
	RenderShareCard(basePhoto, caption, avatarPath string) (string, error)
}

// Beater is one job's typing keep-alive.
type Beater interface {
	Start()
	Stop()
}

// BeaterFactory builds the heartbeat for one chat. The orchestrator owns the
// returned Beater for exactly one job's processing window.
type BeaterFactory func(chatRef int64) Beater

// Orchestrator runs the analysis state sequence for one dequeued job at a
// time. Instances are safe for concurrent use; all per-job state lives on the
// stack of Process.
type Orchestrator struct {
	records    domain.AnalysisRepository
	ledger     domain.CreditLedger
	publisher  domain.Publisher
	fetcher    MediaFetcher
	analyzer   Analyzer
	compositor Compositor
	heartbeats BeaterFactory
	logger     infra.Logger
}

func New(
	records domain.AnalysisRepository,
	ledger domain.CreditLedger,
	publisher domain.Publisher,
	fetcher MediaFetcher,
	analyzer Analyzer,
	compositor Compositor,
	heartbeats BeaterFactory,
	logger infra.Logger,
) *Orchestrator {
	return &Orchestrator{
		records:    records,
		ledger:     ledger,
		publisher:  publisher,
		fetcher:    fetcher,
		analyzer:   analyzer,
		compositor: compositor,
		heartbeats: heartbeats,
		logger:     logger,
	}
}

// Process executes one job to a terminal outcome. A non-nil return means the
// terminal record could not be persisted and the queue should redeliver; every
// handled branch, including failures, completes the job.
//
// Refunds are issued on validation failures, download failures and the two
// unusable-output branches (sentinel, refusal). A model call that fails for
// any other reason keeps the debit and leaves a failed record behind. The
// asymmetry is deliberate and preserved from the product's behavior.
func (o *Orchestrator) Process(ctx context.Context, req domain.AnalysisRequest) (err error) {
	hb := o.heartbeats(req.ChatRef)
	hb.Start()
	// Terminal write happens-before the notification publish, which
	// happens-before the heartbeat stop request; the stop itself is not
	// awaited.
	defer hb.Stop()

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error().
				Str("request_id", req.ID).
				Interface("panic", r).
				Msg("orchestrator: job panicked")
			err = o.failTerminal(ctx, req, fmt.Errorf("panic: %v", r))
		}
	}()

	return o.run(ctx, req)
}

func (o *Orchestrator) run(ctx context.Context, req domain.AnalysisRequest) error {
	if err := req.ValidatePhotoCount(); err != nil {
		o.logger.Warn().
			Str("request_id", req.ID).
			Int("photos", len(req.PhotoRefs)).
			Str("variant", string(req.Variant)).
			Msg("orchestrator: photo count out of range")
		o.refund(ctx, req)
		return o.failTerminal(ctx, req, err)
	}

	paths := make([]string, 0, len(req.PhotoRefs))
	for _, ref := range req.PhotoRefs {
		path, err := o.fetcher.FetchFile(ctx, req.ID, ref)
		if err != nil {
			o.logger.Error().Err(err).
				Str("request_id", req.ID).
				Str("photo_ref", ref).
				Msg("orchestrator: media download failed")
			o.refund(ctx, req)
			return o.failTerminal(ctx, req, fmt.Errorf("%w: %v", domain.ErrDownloadFailed, err))
		}
		paths = append(paths, path)
	}

	if req.Variant == domain.VariantPaired && len(paths) == 2 {
		combined, err := o.compositor.CombineHorizontally(paths)
		if err != nil {
			o.logger.Warn().Err(err).
				Str("request_id", req.ID).
				Msg("orchestrator: paired composite failed, analyzing originals")
		} else {
			paths = []string{combined}
		}
	}

	text, err := o.analyzer.Analyze(ctx, paths, req.Variant)
	switch {
	case errors.Is(err, domain.ErrNoFaceDetected):
		return o.compensated(ctx, req, domain.NotifyFaceNotDetected)
	case errors.Is(err, domain.ErrAIRefusal):
		return o.compensated(ctx, req, domain.NotifyAnalysisRefusal)
	case err != nil:
		// Model ran but produced no usable output for a non-refusal
		// reason: record kept as failed, debit kept.
		o.logger.Error().Err(err).Str("request_id", req.ID).Msg("orchestrator: analysis failed")
		return o.failTerminal(ctx, req, err)
	}

	summary, err := o.analyzer.Summarize(ctx, text)
	if err != nil {
		o.logger.Warn().Err(err).Str("request_id", req.ID).Msg("orchestrator: summary failed, continuing without one")
		summary = ""
	}

	cardRef := ""
	if summary != "" {
		cardRef = o.renderCard(ctx, req, paths[0], summary)
	}

	if err := o.records.MarkCompleted(ctx, req.ID, text, summary, cardRef); err != nil {
		return fmt.Errorf("orchestrator: persist completion for %s: %w", req.ID, err)
	}

	payload, _ := json.Marshal(domain.CompletePayload{
		Summary:      summary,
		Description:  text,
		CardImageRef: cardRef,
	})
	o.notify(ctx, req, domain.NotifyAnalysisComplete, payload)
	return nil
}

// compensated handles the sentinel and refusal branches: the record is
// removed rather than marked, the debit is returned, and the dedicated
// lifecycle event goes out.
func (o *Orchestrator) compensated(ctx context.Context, req domain.AnalysisRequest, kind domain.NotificationType) error {
	if err := o.records.Delete(ctx, req.ID); err != nil {
		return fmt.Errorf("orchestrator: delete record %s: %w", req.ID, err)
	}
	o.refund(ctx, req)
	o.notify(ctx, req, kind, nil)
	return nil
}

// failTerminal marks the record failed and announces the failure. No refund
// happens here; branches that compensate do so before calling it.
func (o *Orchestrator) failTerminal(ctx context.Context, req domain.AnalysisRequest, cause error) error {
	if err := o.records.MarkFailed(ctx, req.ID, cause.Error()); err != nil {
		return fmt.Errorf("orchestrator: persist failure for %s: %w", req.ID, err)
	}
	payload, _ := json.Marshal(domain.FailurePayload{Error: cause.Error()})
	o.notify(ctx, req, domain.NotifyAnalysisFailed, payload)
	return nil
}

func (o *Orchestrator) refund(ctx context.Context, req domain.AnalysisRequest) {
	if err := o.ledger.Refund(ctx, req.UserID, req.ID, req.Cost); err != nil {
		o.logger.Error().Err(err).
			Str("request_id", req.ID).
			Str("user_id", req.UserID).
			Msg("orchestrator: compensating refund failed")
	}
}

func (o *Orchestrator) renderCard(ctx context.Context, req domain.AnalysisRequest, basePhoto, summary string) string {
	avatar, err := o.fetcher.ProfilePhoto(ctx, req.ID, req.ChatRef)
	if err != nil {
		o.logger.Warn().Err(err).Str("request_id", req.ID).Msg("orchestrator: avatar fetch failed, using base photo")
		avatar = ""
	}
	cardPath, err := o.compositor.RenderShareCard(basePhoto, summary, avatar)
	if err != nil {
		o.logger.Warn().Err(err).Str("request_id", req.ID).Msg("orchestrator: share card failed, continuing without one")
		return ""
	}
	return cardPath
}

func (o *Orchestrator) notify(ctx context.Context, req domain.AnalysisRequest, kind domain.NotificationType, payload json.RawMessage) {
	n := domain.Notification{
		Type:       kind,
		UserID:     req.UserID,
		ChatRef:    req.ChatRef,
		MessageRef: req.ReplyTargetRef,
		AnalysisID: req.ID,
		Payload:    payload,
	}
	if err := o.publisher.Publish(ctx, n); err != nil {
		o.logger.Error().Err(err).
			Str("request_id", req.ID).
			Str("type", string(kind)).
			Msg("orchestrator: notification publish failed")
	}
}
