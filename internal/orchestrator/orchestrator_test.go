package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/rs/zerolog"

	"visage/internal/domain"
)

type fakeRecords struct {
	completed bool
	failed    bool
	deleted   bool
	result    string
	summary   string
	cardRef   string
	errMsg    string
	failMark  error
}

func (r *fakeRecords) Create(ctx context.Context, rec *domain.AnalysisRecord) error { return nil }

func (r *fakeRecords) GetByID(ctx context.Context, id string) (*domain.AnalysisRecord, error) {
	return nil, domain.ErrNotFound
}

func (r *fakeRecords) MarkCompleted(ctx context.Context, id, resultText, summaryText, cardImageRef string) error {
	r.completed = true
	r.result, r.summary, r.cardRef = resultText, summaryText, cardImageRef
	return nil
}

func (r *fakeRecords) MarkFailed(ctx context.Context, id, errMsg string) error {
	if r.failMark != nil {
		return r.failMark
	}
	r.failed = true
	r.errMsg = errMsg
	return nil
}

func (r *fakeRecords) Delete(ctx context.Context, id string) error {
	r.deleted = true
	return nil
}

type fakeLedger struct {
	refunds []string
}

func (l *fakeLedger) Debit(ctx context.Context, userID, requestID string, amount int) error {
	return nil
}

func (l *fakeLedger) Refund(ctx context.Context, userID, requestID string, amount int) error {
	l.refunds = append(l.refunds, requestID)
	return nil
}

func (l *fakeLedger) Grant(ctx context.Context, userID string, amount int) error { return nil }

func (l *fakeLedger) Balance(ctx context.Context, userID string) (int, error) { return 0, nil }

type fakePublisher struct {
	published []domain.Notification
}

func (p *fakePublisher) Publish(ctx context.Context, n domain.Notification) error {
	p.published = append(p.published, n)
	return nil
}

type fakeFetcher struct {
	downloads int
	failRef   string
	avatar    string
	avatarErr error
}

func (f *fakeFetcher) FetchFile(ctx context.Context, jobID, ref string) (string, error) {
	if ref == f.failRef {
		return "", errors.New("file unreachable")
	}
	f.downloads++
	return "/tmp/" + jobID + "/" + ref + ".jpg", nil
}

func (f *fakeFetcher) ProfilePhoto(ctx context.Context, jobID string, userRef int64) (string, error) {
	return f.avatar, f.avatarErr
}

type fakeAnalyzer struct {
	analyzeCalls  int
	analyzePaths  []string
	analyzeText   string
	analyzeErr    error
	analyzePanics bool

	summaryCalls int
	summaryText  string
	summaryErr   error
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, photoPaths []string, variant domain.AnalysisVariant) (string, error) {
	if a.analyzePanics {
		panic("model client state corrupted")
	}
	a.analyzeCalls++
	a.analyzePaths = photoPaths
	return a.analyzeText, a.analyzeErr
}

func (a *fakeAnalyzer) Summarize(ctx context.Context, analysisText string) (string, error) {
	a.summaryCalls++
	return a.summaryText, a.summaryErr
}

type fakeCompositor struct {
	combineCalls int
	combineErr   error
	cardCalls    int
	cardErr      error
}

func (c *fakeCompositor) CombineHorizontally(paths []string) (string, error) {
	c.combineCalls++
	if c.combineErr != nil {
		return "", c.combineErr
	}
	return "/tmp/combined.jpg", nil
}

func (c *fakeCompositor) RenderShareCard(basePhoto, caption, avatarPath string) (string, error) {
	c.cardCalls++
	if c.cardErr != nil {
		return "", c.cardErr
	}
	return "/tmp/card.jpg", nil
}

type fakeBeater struct {
	started bool
	stopped bool
}

func (b *fakeBeater) Start() { b.started = true }
func (b *fakeBeater) Stop()  { b.stopped = true }

type fixture struct {
	records    *fakeRecords
	ledger     *fakeLedger
	publisher  *fakePublisher
	fetcher    *fakeFetcher
	analyzer   *fakeAnalyzer
	compositor *fakeCompositor
	beater     *fakeBeater
	orch       *Orchestrator
}

func newFixture() *fixture {
	f := &fixture{
		records:    &fakeRecords{},
		ledger:     &fakeLedger{},
		publisher:  &fakePublisher{},
		fetcher:    &fakeFetcher{},
		analyzer:   &fakeAnalyzer{analyzeText: "полный разбор характера по чертам лица"},
		compositor: &fakeCompositor{},
		beater:     &fakeBeater{},
	}
	f.orch = New(
		f.records,
		f.ledger,
		f.publisher,
		f.fetcher,
		f.analyzer,
		f.compositor,
		func(chatRef int64) Beater { return f.beater },
		zerolog.New(io.Discard),
	)
	return f
}

func soloRequest() domain.AnalysisRequest {
	return domain.AnalysisRequest{
		ID:             "11111111-1111-1111-1111-111111111111",
		UserID:         "22222222-2222-2222-2222-222222222222",
		PhotoRefs:      []string{"photo-a"},
		ChatRef:        991,
		ReplyTargetRef: 17,
		Cost:           1,
		Variant:        domain.VariantSolo,
	}
}

func (f *fixture) singleNotification(t *testing.T) domain.Notification {
	t.Helper()
	if len(f.publisher.published) != 1 {
		t.Fatalf("expected exactly one notification, got %d", len(f.publisher.published))
	}
	return f.publisher.published[0]
}

func (f *fixture) assertTerminalExclusive(t *testing.T) {
	t.Helper()
	writes := 0
	if f.records.completed {
		writes++
	}
	if f.records.failed {
		writes++
	}
	if f.records.deleted {
		writes++
	}
	if writes != 1 {
		t.Fatalf("expected exactly one terminal record action, got completed=%v failed=%v deleted=%v",
			f.records.completed, f.records.failed, f.records.deleted)
	}
}

func TestProcessSuccess(t *testing.T) {
	f := newFixture()
	f.analyzer.summaryText = "краткое резюме"

	if err := f.orch.Process(context.Background(), soloRequest()); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if !f.records.completed {
		t.Fatalf("record not completed")
	}
	f.assertTerminalExclusive(t)
	if f.records.summary != "краткое резюме" || f.records.cardRef == "" {
		t.Fatalf("summary/card missing: %+v", f.records)
	}
	if len(f.ledger.refunds) != 0 {
		t.Fatalf("successful job must never refund")
	}

	n := f.singleNotification(t)
	if n.Type != domain.NotifyAnalysisComplete {
		t.Fatalf("unexpected notification type: %s", n.Type)
	}
	var payload domain.CompletePayload
	if err := json.Unmarshal(n.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Description == "" || payload.Summary == "" {
		t.Fatalf("incomplete success payload: %+v", payload)
	}
	if !f.beater.started || !f.beater.stopped {
		t.Fatalf("heartbeat lifecycle broken: %+v", f.beater)
	}
}

func TestProcessSentinelDeletesRefundsNotifies(t *testing.T) {
	f := newFixture()
	f.analyzer.analyzeErr = domain.ErrNoFaceDetected

	if err := f.orch.Process(context.Background(), soloRequest()); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if !f.records.deleted {
		t.Fatalf("sentinel must delete the record")
	}
	f.assertTerminalExclusive(t)
	if len(f.ledger.refunds) != 1 {
		t.Fatalf("sentinel must refund exactly once, got %d", len(f.ledger.refunds))
	}
	if n := f.singleNotification(t); n.Type != domain.NotifyFaceNotDetected {
		t.Fatalf("unexpected notification: %s", n.Type)
	}
	if f.analyzer.summaryCalls != 0 || f.compositor.cardCalls != 0 {
		t.Fatalf("sentinel branch must not attempt summary or card")
	}
}

func TestProcessRefusalDeletesRefundsNotifies(t *testing.T) {
	f := newFixture()
	f.analyzer.analyzeErr = domain.ErrAIRefusal

	if err := f.orch.Process(context.Background(), soloRequest()); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if !f.records.deleted {
		t.Fatalf("refusal must delete the record")
	}
	if len(f.ledger.refunds) != 1 {
		t.Fatalf("refusal must refund exactly once, got %d", len(f.ledger.refunds))
	}
	if n := f.singleNotification(t); n.Type != domain.NotifyAnalysisRefusal {
		t.Fatalf("unexpected notification: %s", n.Type)
	}
}

func TestProcessDownloadFailureRefunds(t *testing.T) {
	f := newFixture()
	f.fetcher.failRef = "photo-a"

	if err := f.orch.Process(context.Background(), soloRequest()); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if !f.records.failed {
		t.Fatalf("download failure must mark the record failed")
	}
	if len(f.ledger.refunds) != 1 {
		t.Fatalf("download failure must refund, got %d refunds", len(f.ledger.refunds))
	}
	if n := f.singleNotification(t); n.Type != domain.NotifyAnalysisFailed {
		t.Fatalf("unexpected notification: %s", n.Type)
	}
	if f.analyzer.analyzeCalls != 0 {
		t.Fatalf("analysis must not run with missing media")
	}
}

func TestProcessModelFailureDoesNotRefund(t *testing.T) {
	f := newFixture()
	f.analyzer.analyzeErr = errors.New("model status 500: backend overloaded")

	if err := f.orch.Process(context.Background(), soloRequest()); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if !f.records.failed || f.records.deleted {
		t.Fatalf("model failure must keep a failed record")
	}
	// Download failures refund; other model failures do not. The asymmetry
	// is intentional, so pin it.
	if len(f.ledger.refunds) != 0 {
		t.Fatalf("model failure must not refund, got %d refunds", len(f.ledger.refunds))
	}
	if n := f.singleNotification(t); n.Type != domain.NotifyAnalysisFailed {
		t.Fatalf("unexpected notification: %s", n.Type)
	}
}

func TestProcessValidationFailureSkipsDownloads(t *testing.T) {
	f := newFixture()
	req := soloRequest()
	req.PhotoRefs = []string{"a", "b", "c", "d"}

	if err := f.orch.Process(context.Background(), req); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if f.fetcher.downloads != 0 {
		t.Fatalf("validation failure must precede downloads, got %d", f.fetcher.downloads)
	}
	if !f.records.failed {
		t.Fatalf("validation failure must mark the record failed")
	}
	if len(f.ledger.refunds) != 1 {
		t.Fatalf("validation failure refunds the admitted debit, got %d", len(f.ledger.refunds))
	}
}

func TestProcessPairedCombinesBeforeAnalysis(t *testing.T) {
	f := newFixture()
	req := soloRequest()
	req.Variant = domain.VariantPaired
	req.PhotoRefs = []string{"left", "right"}

	if err := f.orch.Process(context.Background(), req); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if f.compositor.combineCalls != 1 {
		t.Fatalf("expected exactly one composite, got %d", f.compositor.combineCalls)
	}
	if len(f.analyzer.analyzePaths) != 1 {
		t.Fatalf("analysis should receive the composite only, got %v", f.analyzer.analyzePaths)
	}
}

func TestProcessPairedSinglePhotoSkipsComposite(t *testing.T) {
	f := newFixture()
	req := soloRequest()
	req.Variant = domain.VariantPaired
	req.PhotoRefs = []string{"only"}

	if err := f.orch.Process(context.Background(), req); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if f.compositor.combineCalls != 0 {
		t.Fatalf("single paired photo must not composite")
	}
}

func TestProcessCompositeFailureDegrades(t *testing.T) {
	f := newFixture()
	f.compositor.combineErr = errors.New("corrupt image")
	req := soloRequest()
	req.Variant = domain.VariantPaired
	req.PhotoRefs = []string{"left", "right"}

	if err := f.orch.Process(context.Background(), req); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(f.analyzer.analyzePaths) != 2 {
		t.Fatalf("failed composite should fall back to originals, got %v", f.analyzer.analyzePaths)
	}
	if !f.records.completed {
		t.Fatalf("composite failure must not fail the job")
	}
}

func TestProcessSummaryFailureCompletesWithoutCard(t *testing.T) {
	f := newFixture()
	f.analyzer.summaryErr = errors.New("summary model down")

	if err := f.orch.Process(context.Background(), soloRequest()); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if !f.records.completed {
		t.Fatalf("summary failure must not fail the job")
	}
	if f.records.summary != "" || f.records.cardRef != "" {
		t.Fatalf("expected no summary and no card, got %+v", f.records)
	}
	if f.compositor.cardCalls != 0 {
		t.Fatalf("share card needs a summary")
	}
}

func TestProcessCardFailureCompletes(t *testing.T) {
	f := newFixture()
	f.analyzer.summaryText = "краткое резюме"
	f.compositor.cardErr = errors.New("template missing")

	if err := f.orch.Process(context.Background(), soloRequest()); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if !f.records.completed || f.records.cardRef != "" {
		t.Fatalf("card failure should complete without a card: %+v", f.records)
	}
	if f.records.summary != "краткое резюме" {
		t.Fatalf("summary lost on card failure")
	}
}

func TestProcessPanicHitsSafetyNet(t *testing.T) {
	f := newFixture()
	f.analyzer.analyzePanics = true

	if err := f.orch.Process(context.Background(), soloRequest()); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if !f.records.failed {
		t.Fatalf("panic must leave a failed record")
	}
	if len(f.ledger.refunds) != 0 {
		t.Fatalf("safety net must not refund")
	}
	if n := f.singleNotification(t); n.Type != domain.NotifyAnalysisFailed {
		t.Fatalf("unexpected notification: %s", n.Type)
	}
	if !f.beater.stopped {
		t.Fatalf("heartbeat must stop after panic")
	}
}

func TestProcessPersistFailurePropagates(t *testing.T) {
	f := newFixture()
	f.analyzer.analyzeErr = errors.New("model status 500")
	f.records.failMark = fmt.Errorf("connection reset")

	if err := f.orch.Process(context.Background(), soloRequest()); err == nil {
		t.Fatalf("expected error when terminal write fails")
	}
}

func TestProcessNotificationCarriesReplyTarget(t *testing.T) {
	f := newFixture()
	if err := f.orch.Process(context.Background(), soloRequest()); err != nil {
		t.Fatalf("Process: %v", err)
	}
	n := f.singleNotification(t)
	if n.MessageRef != 17 || n.ChatRef != 991 || n.AnalysisID == "" {
		t.Fatalf("envelope missing routing fields: %+v", n)
	}
}
