package analysis

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"visage/internal/domain"
	"visage/internal/infra"
)

// Options controls how the analysis gateway is configured.
type Options struct {
	APIKey       string
	BaseURL      string
	Model        string
	SummaryModel string
	HTTPClient   *http.Client
	Logger       *infra.Logger
	Prompts      *PromptStore
}

// Gateway wraps the external model service for full analysis generation,
// short-summary generation and refusal/sentinel detection. Refusals are
// retried through an explicit bounded loop; sentinels never are.
type Gateway struct {
	apiKey       string
	baseURL      string
	model        string
	summaryModel string
	httpClient   *http.Client
	logger       *infra.Logger
	prompts      *PromptStore
}

// refusalAttempts is the total invocation budget when the model declines:
// one call plus exactly one retry.
const refusalAttempts = 2

// NewGateway constructs a gateway with sane defaults.
func NewGateway(opts Options) (*Gateway, error) {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	model := opts.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	summaryModel := opts.SummaryModel
	if summaryModel == "" {
		summaryModel = "gemini-2.0-flash-lite"
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}

	return &Gateway{
		apiKey:       strings.TrimSpace(opts.APIKey),
		baseURL:      baseURL,
		model:        model,
		summaryModel: summaryModel,
		httpClient:   client,
		logger:       logger,
		prompts:      opts.Prompts,
	}, nil
}

// Analyze runs the full analysis for the photos at the given paths. It
// returns domain.ErrPhotoCount on a precondition violation,
// domain.ErrNoFaceDetected on the sentinel response and domain.ErrAIRefusal
// once the retry budget for a declining model is spent. Any other error means
// the model call itself failed.
func (g *Gateway) Analyze(ctx context.Context, photoPaths []string, variant domain.AnalysisVariant) (string, error) {
	min, max := variant.PhotoLimits()
	if len(photoPaths) < min || len(photoPaths) > max {
		return "", domain.ErrPhotoCount
	}

	parts, err := photoParts(photoPaths)
	if err != nil {
		return "", err
	}
	prompt := g.analysisPrompt(ctx, variant)

	for attempt := 1; attempt <= refusalAttempts; attempt++ {
		text, err := g.generate(ctx, g.model, prompt, parts)
		if err != nil {
			return "", err
		}

		switch Classify(text) {
		case VerdictSentinel:
			g.logger.Info().Str("model", g.model).Msg("analysis: sentinel response, no face detected")
			return "", domain.ErrNoFaceDetected
		case VerdictRefusal:
			g.logger.Warn().
				Str("model", g.model).
				Int("attempt", attempt).
				Msg("analysis: model refused")
			continue
		default:
			return text, nil
		}
	}

	return "", domain.ErrAIRefusal
}

// Summarize produces the short summary for a completed analysis using the
// cheaper model. Callers treat failures as non-fatal.
func (g *Gateway) Summarize(ctx context.Context, analysisText string) (string, error) {
	prompt := g.summaryPrompt(ctx)
	text, err := g.generate(ctx, g.summaryModel, prompt+"\n\n"+analysisText, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (g *Gateway) analysisPrompt(ctx context.Context, variant domain.AnalysisVariant) string {
	if g.prompts != nil {
		if p, err := g.prompts.AnalysisPrompt(ctx, variant); err == nil && p != "" {
			return p
		}
	}
	if variant == domain.VariantPaired {
		return defaultPairedPrompt
	}
	return defaultSoloPrompt
}

func (g *Gateway) summaryPrompt(ctx context.Context) string {
	if g.prompts != nil {
		if p, err := g.prompts.SummaryPrompt(ctx); err == nil && p != "" {
			return p
		}
	}
	return defaultSummaryPrompt
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

func (g *Gateway) generate(ctx context.Context, model, prompt string, extraParts []geminiPart) (string, error) {
	parts := append([]geminiPart{{Text: prompt}}, extraParts...)
	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
	}

	var response geminiGenerateContentResponse
	if err := g.invoke(ctx, fmt.Sprintf("/models/%s:generateContent", url.PathEscape(model)), payload, &response); err != nil {
		return "", err
	}

	if len(response.Candidates) == 0 {
		return "", fmt.Errorf("analysis: no candidates in model response")
	}

	// A candidate that carries no text is still a model answer; the empty
	// string flows to classification, where it lands in the unusable bucket.
	var b strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return strings.TrimSpace(b.String()), nil
}

func (g *Gateway) invoke(ctx context.Context, path string, payload any, out any) error {
	endpoint := g.baseURL + path
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	q := req.URL.Query()
	if g.apiKey != "" {
		q.Set("key", g.apiKey)
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr geminiErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("model status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		data, _ := io.ReadAll(resp.Body)
		if len(data) > 0 {
			return fmt.Errorf("model status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return fmt.Errorf("model status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode model response: %w", err)
	}
	return nil
}

func photoParts(paths []string) ([]geminiPart, error) {
	parts := make([]geminiPart, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("analysis: read photo %s: %w", filepath.Base(p), err)
		}
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{
			MimeType: mimeForPath(p),
			Data:     base64.StdEncoding.EncodeToString(data),
		}})
	}
	return parts, nil
}

func mimeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
