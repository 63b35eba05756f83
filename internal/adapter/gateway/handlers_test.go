package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readyscriptpro/internal/adapter/quota"
	"readyscriptpro/internal/domain"
	"readyscriptpro/internal/infra/config"
	"readyscriptpro/internal/usecase"
)

// cannedProvider returns a fixed response or error for every call.
type cannedProvider struct {
	content string
	err     error
}

func (p *cannedProvider) Chat(_ context.Context, _ domain.ChatRequest) (*domain.ChatResponse, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &domain.ChatResponse{
		ID:      "cmpl-test",
		Model:   "gpt-4o-mini",
		Message: domain.Message{Role: domain.RoleAssistant, Content: p.content},
		Usage:   domain.Usage{PromptTokens: 10, CompletionTokens: 50, TotalTokens: 60},
	}, nil
}

func (p *cannedProvider) Name() string { return "canned" }

type testGateway struct {
	handler http.Handler
}

func newTestGateway(t *testing.T, provider domain.LLMProvider, limit int) *testGateway {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := usecase.NewScriptService(provider, "gpt-4o-mini", logger)
	counter := usecase.NewUsageCounter(quota.NewMemoryStore(), limit)
	handlers := NewHandlers(svc, TrustedPlanResolver{}, counter, logger)

	cfg := config.ServerConfig{Addr: ":0", RequestsPerMin: 6000, BurstSize: 1000}
	srv := NewServer(cfg, handlers, logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return &testGateway{handler: srv.Handler(ctx)}
}

func (g *testGateway) post(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	g.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestGenerateEndpoint(t *testing.T) {
	g := newTestGateway(t, &cannedProvider{content: "FADE IN:\n\nA quiet street."}, 3)

	rec := g.post(t, "/api/generate-script", map[string]any{
		"genre":      "comedy",
		"characters": []string{"Alex", "Jordan"},
		"tone":       "casual",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "FADE IN:\n\nA quiet street.", body["script"])
	assert.Equal(t, "gpt-4o-mini", body["model"])

	ts, err := time.Parse(time.RFC3339, body["timestamp"].(string))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), ts, time.Minute)
}

func TestGenerateEndpointValidation(t *testing.T) {
	g := newTestGateway(t, &cannedProvider{content: "unused"}, 3)

	rec := g.post(t, "/api/generate-script", map[string]any{"genre": ""})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "INVALID_INPUT", body["code"])
	assert.NotEmpty(t, body["error"])
}

func TestGenerateEndpointMissingCharacters(t *testing.T) {
	g := newTestGateway(t, &cannedProvider{content: "unused"}, 3)

	// The characters field is required even when the list is empty.
	rec := g.post(t, "/api/generate-script", map[string]any{
		"genre": "comedy",
		"tone":  "casual",
	})

	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "INVALID_INPUT", body["code"])

	rec = g.post(t, "/api/generate-script", map[string]any{
		"genre":      "comedy",
		"characters": []string{},
		"tone":       "casual",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestGenerateEndpointQuota(t *testing.T) {
	g := newTestGateway(t, &cannedProvider{content: "a script"}, 1)

	req := map[string]any{"genre": "drama", "characters": []string{"Lena"}, "tone": "dramatic", "userId": "user-1"}

	rec := g.post(t, "/api/generate-script", req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, float64(0), body["remainingGenerations"])

	rec = g.post(t, "/api/generate-script", req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "LIMIT_REACHED", body["code"])
}

func TestGenerateEndpointUpstreamError(t *testing.T) {
	g := newTestGateway(t, &cannedProvider{
		err: domain.NewDomainError("test", domain.ErrUpstreamServer, "status 503"),
	}, 3)

	rec := g.post(t, "/api/generate-script", map[string]any{"genre": "drama", "characters": []string{"Lena"}, "tone": "dramatic"})

	require.Equal(t, http.StatusBadGateway, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "UPSTREAM_SERVER", body["code"])
	// Provider detail stays server-side; the client gets a sanitized message.
	assert.NotContains(t, body["error"], "503")
}

func TestAnalyzeEndpoint(t *testing.T) {
	g := newTestGateway(t, &cannedProvider{content: `{
		"overallScore": 75,
		"summary": "A clear premise with a slow middle.",
		"suggestions": [
			{"type": "dialogue", "title": "Sharpen the banter", "description": "Lines feel flat.", "severity": "medium"}
		]
	}`}, 3)

	rec := g.post(t, "/api/script-doctor/analyze", map[string]any{
		"script": "INT. OFFICE - DAY\n\nTwo people argue.",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, float64(75), body["overallScore"])
	assert.Equal(t, "A clear premise with a slow middle.", body["summary"])
	suggestions := body["suggestions"].([]any)
	require.Len(t, suggestions, 1)
}

func TestAnalyzeEndpointBlankScript(t *testing.T) {
	g := newTestGateway(t, &cannedProvider{content: "unused"}, 3)

	rec := g.post(t, "/api/script-doctor/analyze", map[string]any{"script": ""})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Script content is required", body["error"])
}

func TestApplySuggestionPlanGate(t *testing.T) {
	g := newTestGateway(t, &cannedProvider{content: `{
		"improvedScript": "INT. OFFICE - DAY\n\nA tighter opening.",
		"appliedChanges": ["Cut the first beat"],
		"confidence": "high"
	}`}, 3)

	body := map[string]any{
		"script": "INT. OFFICE - DAY",
		"suggestion": map[string]any{
			"type": "structure", "title": "Tighten", "description": "Cut the first beat.", "severity": "low",
		},
		"userPlan": "free",
	}

	rec := g.post(t, "/api/script-doctor/apply-suggestion", body)
	require.Equal(t, http.StatusForbidden, rec.Code)
	resp := decodeBody(t, rec)
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "PLAN_REQUIRED", resp["code"])
	assert.Contains(t, resp["error"], "Upgrade")

	body["userPlan"] = "pro"
	rec = g.post(t, "/api/script-doctor/apply-suggestion", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp = decodeBody(t, rec)
	assert.Equal(t, "INT. OFFICE - DAY\n\nA tighter opening.", resp["improvedScript"])
	assert.Equal(t, "high", resp["confidence"])
	changes := resp["appliedChanges"].([]any)
	require.Len(t, changes, 1)
}

func TestRewriteEndpoint(t *testing.T) {
	g := newTestGateway(t, &cannedProvider{content: `{
		"options": ["One.", "Two.", "Three."],
		"reasoning": "Each version tightens the pacing differently."
	}`}, 3)

	// Rewrite is not plan-gated; no userPlan needed.
	rec := g.post(t, "/api/script-doctor/rewrite", map[string]any{
		"text":  "INT. OFFICE - DAY",
		"tone":  "humorous",
		"genre": "comedy",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	options := body["options"].([]any)
	assert.Len(t, options, 3)
	assert.NotEmpty(t, body["reasoning"])
}

func TestRewriteEndpointBlankText(t *testing.T) {
	g := newTestGateway(t, &cannedProvider{content: "unused"}, 3)

	rec := g.post(t, "/api/script-doctor/rewrite", map[string]any{"text": "  "})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "INVALID_INPUT", body["code"])
}

func TestExportFDXEndpoint(t *testing.T) {
	g := newTestGateway(t, &cannedProvider{content: "unused"}, 3)

	rec := g.post(t, "/api/export/fdx", map[string]any{
		"script":   "INT. OFFICE - DAY\n\nA desk lamp flickers.",
		"title":    "Night Shift",
		"userPlan": "pro",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/xml", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Night_Shift.fdx"`, rec.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "<?xml"))
	assert.Contains(t, rec.Body.String(), "INT. OFFICE - DAY")
}

func TestExportFDXPlanGate(t *testing.T) {
	g := newTestGateway(t, &cannedProvider{content: "unused"}, 3)

	rec := g.post(t, "/api/export/fdx", map[string]any{
		"script": "INT. OFFICE - DAY",
	})

	require.Equal(t, http.StatusForbidden, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "PLAN_REQUIRED", body["code"])
}

func TestOptionsPreflight(t *testing.T) {
	g := newTestGateway(t, &cannedProvider{content: "unused"}, 3)

	req := httptest.NewRequest(http.MethodOptions, "/api/generate-script", nil)
	rec := httptest.NewRecorder()
	g.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Empty(t, rec.Body.String())
}

func TestCORSHeadersOnErrors(t *testing.T) {
	g := newTestGateway(t, &cannedProvider{content: "unused"}, 3)

	rec := g.post(t, "/api/script-doctor/analyze", map[string]any{"script": ""})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMethodNotAllowed(t *testing.T) {
	g := newTestGateway(t, &cannedProvider{content: "unused"}, 3)

	req := httptest.NewRequest(http.MethodGet, "/api/generate-script", nil)
	rec := httptest.NewRecorder()
	g.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestInvalidJSONBody(t *testing.T) {
	g := newTestGateway(t, &cannedProvider{content: "unused"}, 3)

	req := httptest.NewRequest(http.MethodPost, "/api/generate-script", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	g.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "INVALID_INPUT", body["code"])
}

func TestTokenPlanResolver(t *testing.T) {
	resolver := NewTokenPlanResolver([]config.PlanToken{
		{Token: "tok-pro", Plan: "pro"},
		{Token: "tok-studio", Plan: "studio"},
	})

	tests := []struct {
		name   string
		header string
		want   domain.Plan
	}{
		{"pro token", "Bearer tok-pro", domain.PlanPro},
		{"studio token", "Bearer tok-studio", domain.PlanStudio},
		{"unknown token", "Bearer nope", domain.PlanFree},
		{"no header", "", domain.PlanFree},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			// The claimed plan must be ignored by the token resolver.
			plan, err := resolver.Resolve(req, domain.PlanStudio)
			require.NoError(t, err)
			assert.Equal(t, tt.want, plan)
		})
	}
}

func TestTrustedPlanResolver(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)

	plan, err := TrustedPlanResolver{}.Resolve(req, domain.PlanPro)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanPro, plan)

	plan, err = TrustedPlanResolver{}.Resolve(req, domain.Plan("enterprise"))
	require.NoError(t, err)
	assert.Equal(t, domain.PlanFree, plan)
}
