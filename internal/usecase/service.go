package usecase

import (
	"context"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"

	"readyscriptpro/internal/domain"
	"readyscriptpro/internal/infra/tracer"
)

// ScriptService orchestrates the upstream completion provider for all four
// script features.
type ScriptService struct {
	provider domain.LLMProvider
	model    string
	logger   *slog.Logger
}

// NewScriptService creates the service. model may be empty; the provider's
// configured default is used then.
func NewScriptService(provider domain.LLMProvider, model string, logger *slog.Logger) *ScriptService {
	return &ScriptService{
		provider: provider,
		model:    model,
		logger:   logger,
	}
}

// GenerateResult is the outcome of a script generation.
type GenerateResult struct {
	Script string       `json:"script"`
	Model  string       `json:"model"`
	Usage  domain.Usage `json:"usage"`
}

// Generate produces a new script from a validated request.
func (s *ScriptService) Generate(ctx context.Context, req domain.ScriptRequest) (*GenerateResult, error) {
	ctx, span := tracer.StartSpan(ctx, "script.generate",
		trace.WithAttributes(
			tracer.StringAttr("script.genre", req.Genre),
			tracer.StringAttr("script.mode", string(req.Mode)),
			tracer.IntAttr("script.token_budget", req.Length.TokenBudget()),
		),
	)
	defer span.End()

	system, user := BuildGeneratePrompt(req)
	resp, err := s.chat(ctx, system, user, TemperatureGenerate, req.Length.TokenBudget())
	if err != nil {
		tracer.RecordError(span, err)
		return nil, domain.WrapOp("ScriptService.Generate", err)
	}

	script, err := ExtractResponseText(resp)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, domain.WrapOp("ScriptService.Generate", err)
	}

	tracer.SetOK(span)
	return &GenerateResult{
		Script: script,
		Model:  resp.Model,
		Usage:  resp.Usage,
	}, nil
}

// Analyze runs the script doctor over a script. Unparsable model output
// degrades to a deterministic fallback analysis instead of an error.
func (s *ScriptService) Analyze(ctx context.Context, script, focus string) (*domain.Analysis, error) {
	ctx, span := tracer.StartSpan(ctx, "script.analyze")
	defer span.End()

	system, user := BuildAnalyzePrompt(script, focus)
	resp, err := s.chat(ctx, system, user, TemperatureAnalyze, 0)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, domain.WrapOp("ScriptService.Analyze", err)
	}

	text, err := ExtractResponseText(resp)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, domain.WrapOp("ScriptService.Analyze", err)
	}

	var analysis domain.Analysis
	if err := ExtractStructured(text, analysisSchema, &analysis); err != nil {
		s.logger.Warn("analysis output unparsable, using fallback", "error", err)
		analysis = fallbackAnalysis()
	}

	for i := range analysis.Suggestions {
		analysis.Suggestions[i].ID = newULID()
	}

	tracer.SetOK(span)
	return &analysis, nil
}

// ApplySuggestion rewrites the full script applying one suggestion.
// Unparsable model output degrades to a low-confidence result carrying the
// raw rewritten text.
func (s *ScriptService) ApplySuggestion(ctx context.Context, script string, sug domain.Suggestion, note string) (*domain.ApplyResult, error) {
	ctx, span := tracer.StartSpan(ctx, "script.apply_suggestion",
		trace.WithAttributes(tracer.StringAttr("suggestion.type", string(sug.Type))),
	)
	defer span.End()

	system, user := BuildApplyPrompt(script, sug, note)
	resp, err := s.chat(ctx, system, user, TemperatureApply, 0)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, domain.WrapOp("ScriptService.ApplySuggestion", err)
	}

	text, err := ExtractResponseText(resp)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, domain.WrapOp("ScriptService.ApplySuggestion", err)
	}

	var result domain.ApplyResult
	if err := ExtractStructured(text, applySchema, &result); err != nil {
		s.logger.Warn("apply output unparsable, using raw text", "error", err)
		result = fallbackApply(text, script)
	}
	if !result.Confidence.Valid() {
		result.Confidence = domain.ConfidenceMedium
	}
	if result.AppliedChanges == nil {
		result.AppliedChanges = []string{}
	}

	tracer.SetOK(span)
	return &result, nil
}

// Rewrite produces three alternative versions of a piece of text.
// Unparsable model output degrades to a fallback that echoes the original.
func (s *ScriptService) Rewrite(ctx context.Context, req domain.RewriteRequest) (*domain.Rewrite, error) {
	ctx, span := tracer.StartSpan(ctx, "script.rewrite")
	defer span.End()

	system, user := BuildRewritePrompt(req)
	resp, err := s.chat(ctx, system, user, TemperatureRewrite, 0)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, domain.WrapOp("ScriptService.Rewrite", err)
	}

	text, err := ExtractResponseText(resp)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, domain.WrapOp("ScriptService.Rewrite", err)
	}

	var rewrite domain.Rewrite
	if err := ExtractStructured(text, rewriteSchema, &rewrite); err != nil {
		s.logger.Warn("rewrite output unparsable, using fallback", "error", err)
		rewrite = fallbackRewrite(req.Text)
	}

	tracer.SetOK(span)
	return &rewrite, nil
}

// chat sends one system+user exchange to the provider.
func (s *ScriptService) chat(ctx context.Context, system, user string, temperature float64, maxTokens int) (*domain.ChatResponse, error) {
	promptTokens := EstimateTokens(system + user)
	s.logger.Debug("dispatching completion",
		"provider", s.provider.Name(),
		"estimated_prompt_tokens", promptTokens,
		"temperature", temperature,
	)

	return s.provider.Chat(ctx, domain.ChatRequest{
		Model: s.model,
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: system},
			{Role: domain.RoleUser, Content: user},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
}

// fallbackAnalysis is returned when the model's analysis cannot be parsed.
// The API contract promises an analysis for every accepted request.
func fallbackAnalysis() domain.Analysis {
	return domain.Analysis{
		OverallScore: 70,
		Summary:      "The script was reviewed but the detailed report could not be generated.",
		Suggestions: []domain.Suggestion{
			{
				Type:        domain.SuggestionStructure,
				Title:       "Re-run the analysis",
				Description: "The analysis engine returned an unreadable report. Running the analysis again usually resolves this.",
				Severity:    domain.SeverityLow,
			},
		},
	}
}

// fallbackApply treats the whole model reply as the improved script. When
// the reply is empty the original script is preserved untouched.
func fallbackApply(text, script string) domain.ApplyResult {
	improved := strings.TrimSpace(text)
	if improved == "" {
		improved = script
	}
	return domain.ApplyResult{
		ImprovedScript: improved,
		AppliedChanges: []string{},
		Confidence:     domain.ConfidenceLow,
	}
}

// fallbackRewrite echoes the original text when rewrite options cannot be
// parsed. The response shape promises exactly three options, so the same
// text fills all three slots.
func fallbackRewrite(text string) domain.Rewrite {
	echoed := strings.TrimSpace(text)
	return domain.Rewrite{
		Options:   []string{echoed, echoed, echoed},
		Reasoning: "The rewrite engine returned an unreadable result, so the original text is preserved. Try the rewrite again.",
	}
}

// newULID generates a time-ordered unique identifier for suggestions.
func newULID() string {
	t := time.Now()
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}
