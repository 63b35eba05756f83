package domain

// SuggestionType categorizes what part of the script a suggestion targets.
type SuggestionType string

const (
	SuggestionStructure  SuggestionType = "structure"
	SuggestionPacing     SuggestionType = "pacing"
	SuggestionDialogue   SuggestionType = "dialogue"
	SuggestionTransition SuggestionType = "transition"
)

// Valid reports whether t is a known suggestion type.
func (t SuggestionType) Valid() bool {
	switch t {
	case SuggestionStructure, SuggestionPacing, SuggestionDialogue, SuggestionTransition:
		return true
	}
	return false
}

// Severity ranks how much a suggestion matters.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// Suggestion is a single actionable improvement found by the script doctor.
type Suggestion struct {
	ID          string         `json:"id"`
	Type        SuggestionType `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Severity    Severity       `json:"severity"`
}

// Analysis is the script doctor's full report.
type Analysis struct {
	OverallScore int          `json:"overallScore"`
	Summary      string       `json:"summary"`
	Suggestions  []Suggestion `json:"suggestions"`
}

// Confidence grades how certain the script doctor is about an applied
// change.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Valid reports whether c is a known confidence grade.
func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	}
	return false
}

// ApplyResult is the outcome of applying one suggestion to a script.
type ApplyResult struct {
	ImprovedScript string     `json:"improvedScript"`
	AppliedChanges []string   `json:"appliedChanges"`
	Confidence     Confidence `json:"confidence"`
}

// RewriteRequest asks for alternative versions of a piece of script text.
type RewriteRequest struct {
	Text              string `json:"text"`
	Context           string `json:"context,omitempty"`
	Tone              string `json:"tone,omitempty"`
	Genre             string `json:"genre,omitempty"`
	PreserveStructure bool   `json:"preserveStructure,omitempty"`
}

// Rewrite holds the alternative versions produced for a piece of text,
// with one shared reasoning note.
type Rewrite struct {
	Options   []string `json:"options"`
	Reasoning string   `json:"reasoning"`
}

// Plan is a subscription tier.
type Plan string

const (
	PlanFree   Plan = "free"
	PlanPro    Plan = "pro"
	PlanStudio Plan = "studio"
)

// Valid reports whether p is a known plan.
func (p Plan) Valid() bool {
	switch p {
	case PlanFree, PlanPro, PlanStudio:
		return true
	}
	return false
}

// Paid reports whether p unlocks the gated features.
func (p Plan) Paid() bool {
	return p == PlanPro || p == PlanStudio
}
