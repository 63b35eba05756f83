package gateway

import (
	"fmt"
	"net/http"
	"strings"

	"readyscriptpro/internal/domain"
	"readyscriptpro/internal/usecase"
)

type exportRequest struct {
	Script   string      `json:"script"`
	Title    string      `json:"title,omitempty"`
	UserPlan domain.Plan `json:"userPlan,omitempty"`
}

// HandleExportFDX serves POST /api/export/fdx. Final Draft export requires
// a paid plan. On success the response is the raw FDX document, not the
// JSON envelope.
func (h *Handlers) HandleExportFDX(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	plan, ok := h.resolvePlan(w, r, req.UserPlan)
	if !ok {
		return
	}
	if !plan.Paid() {
		writeError(w, h.logger, domain.NewDomainError(
			"Handlers.HandleExportFDX",
			domain.ErrPlanRequired,
			"Final Draft export requires a Pro subscription. Upgrade to export FDX files.",
		))
		return
	}
	if strings.TrimSpace(req.Script) == "" {
		writeError(w, h.logger, domain.NewDomainError(
			"Handlers.HandleExportFDX", domain.ErrInvalidInput, "Script content is required",
		))
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "Untitled Script"
	}

	doc, err := usecase.BuildFDX(title, req.Script)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFilename(title)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

// exportFilename builds a safe download name from the script title.
func exportFilename(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	name := b.String()
	if name == "" {
		name = "script"
	}
	return name + ".fdx"
}
