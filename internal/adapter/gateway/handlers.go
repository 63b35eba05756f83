package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"readyscriptpro/internal/domain"
	"readyscriptpro/internal/usecase"
)

const maxBodyBytes = 1 << 20 // 1MB

// Handlers binds the script service to the HTTP routes.
type Handlers struct {
	svc    *usecase.ScriptService
	plans  PlanResolver
	quota  *usecase.UsageCounter
	logger *slog.Logger
}

// NewHandlers wires the service, plan resolver and usage counter together.
func NewHandlers(svc *usecase.ScriptService, plans PlanResolver, quota *usecase.UsageCounter, logger *slog.Logger) *Handlers {
	return &Handlers{svc: svc, plans: plans, quota: quota, logger: logger}
}

type generateRequest struct {
	domain.ScriptRequest
	UserID string `json:"userId,omitempty"`
}

type generateResponse struct {
	Script    string       `json:"script"`
	Model     string       `json:"model"`
	Usage     domain.Usage `json:"usage"`
	Remaining *int         `json:"remainingGenerations,omitempty"`
}

// HandleGenerate serves POST /api/generate-script.
func (h *Handlers) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		writeError(w, h.logger, err)
		return
	}

	// Anonymous requests skip the daily counter.
	if req.UserID != "" {
		ok, err := h.quota.CanGenerate(r.Context(), req.UserID)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		if !ok {
			writeError(w, h.logger, domain.NewDomainError(
				"Handlers.HandleGenerate",
				domain.ErrLimitReached,
				"Daily generation limit reached. The counter resets at midnight UTC.",
			))
			return
		}
	}

	result, err := h.svc.Generate(r.Context(), req.ScriptRequest)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp := generateResponse{
		Script: result.Script,
		Model:  result.Model,
		Usage:  result.Usage,
	}
	if req.UserID != "" {
		if err := h.quota.UseGeneration(r.Context(), req.UserID); err != nil {
			writeError(w, h.logger, err)
			return
		}
		remaining, err := h.quota.Remaining(r.Context(), req.UserID)
		if err == nil {
			resp.Remaining = &remaining
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

type analyzeRequest struct {
	Script string `json:"script"`
	Focus  string `json:"focus,omitempty"`
}

// HandleAnalyze serves POST /api/script-doctor/analyze.
func (h *Handlers) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Script) == "" {
		writeError(w, h.logger, domain.NewDomainError(
			"Handlers.HandleAnalyze", domain.ErrInvalidInput, "Script content is required",
		))
		return
	}

	analysis, err := h.svc.Analyze(r.Context(), req.Script, req.Focus)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

type applyRequest struct {
	Script     string            `json:"script"`
	Suggestion domain.Suggestion `json:"suggestion"`
	Context    string            `json:"context,omitempty"`
	UserPlan   domain.Plan       `json:"userPlan,omitempty"`
}

// HandleApplySuggestion serves POST /api/script-doctor/apply-suggestion.
// Applying suggestions requires a paid plan.
func (h *Handlers) HandleApplySuggestion(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	plan, ok := h.resolvePlan(w, r, req.UserPlan)
	if !ok {
		return
	}
	if !plan.Paid() {
		writeError(w, h.logger, domain.NewDomainError(
			"Handlers.HandleApplySuggestion",
			domain.ErrPlanRequired,
			"Applying suggestions requires a Pro subscription. Upgrade to unlock the script doctor.",
		))
		return
	}
	if strings.TrimSpace(req.Script) == "" || strings.TrimSpace(req.Suggestion.Description) == "" {
		writeError(w, h.logger, domain.NewDomainError(
			"Handlers.HandleApplySuggestion", domain.ErrInvalidInput, "Script and suggestion are required",
		))
		return
	}

	result, err := h.svc.ApplySuggestion(r.Context(), req.Script, req.Suggestion, req.Context)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleRewrite serves POST /api/script-doctor/rewrite.
func (h *Handlers) HandleRewrite(w http.ResponseWriter, r *http.Request) {
	var req domain.RewriteRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, h.logger, domain.NewDomainError(
			"Handlers.HandleRewrite", domain.ErrInvalidInput, "Text to rewrite is required",
		))
		return
	}

	rewrite, err := h.svc.Rewrite(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rewrite)
}

// decodeBody reads and decodes a JSON request body, writing the error
// response itself on failure.
func (h *Handlers) decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		var maxErr *http.MaxBytesError
		detail := "The request body is not valid JSON"
		if errors.As(err, &maxErr) {
			detail = "Request body too large (max 1MB)"
		}
		writeError(w, h.logger, domain.NewDomainError(
			"Handlers.decodeBody", domain.ErrInvalidInput, detail,
		))
		return false
	}
	return true
}

func (h *Handlers) resolvePlan(w http.ResponseWriter, r *http.Request, claimed domain.Plan) (domain.Plan, bool) {
	plan, err := h.plans.Resolve(r, claimed)
	if err != nil {
		writeError(w, h.logger, err)
		return "", false
	}
	return plan, true
}
