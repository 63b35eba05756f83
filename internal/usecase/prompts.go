package usecase

import (
	"encoding/json"
	"fmt"
	"strings"

	"readyscriptpro/internal/domain"
)

// Sampling temperatures per feature. Generation is creative, analysis and
// suggestion application are deliberately conservative.
const (
	TemperatureGenerate = 0.7
	TemperatureAnalyze  = 0.3
	TemperatureApply    = 0.3
	TemperatureRewrite  = 0.5
)

const generateSystemPrompt = `You are a professional video script writer. ` +
	`You write tight, engaging scripts tailored to the requested platform and format. ` +
	`Respond with the script text only, no commentary.`

const analyzeSystemPrompt = `You are an experienced script doctor. ` +
	`You analyze video scripts for structure, pacing, dialogue, and transitions. ` +
	`The user message is a JSON object carrying the script and an optional focus area. ` +
	`Respond with a single JSON object and nothing else, matching exactly this shape: ` +
	`{"overallScore": <0-100>, "summary": "...", "suggestions": [{"type": "structure|pacing|dialogue|transition", ` +
	`"title": "...", "description": "...", "severity": "low|medium|high"}]}`

const applySystemPrompt = `You are an experienced script doctor. ` +
	`The user message is a JSON object carrying a script, one suggestion, and optional notes. ` +
	`Rewrite the full script so that it applies the suggestion while preserving ` +
	`everything that already works. ` +
	`Respond with a single JSON object and nothing else, matching exactly this shape: ` +
	`{"improvedScript": "...", "appliedChanges": ["..."], "confidence": "high|medium|low"}`

const rewriteSystemPrompt = `You are an experienced script doctor. ` +
	`Produce exactly three distinct rewrites of the given text. ` +
	`Respond with a single JSON object and nothing else, matching exactly this shape: ` +
	`{"options": ["...", "...", "..."], "reasoning": "..."}`

// modeDirective returns the format instruction for a script mode.
func modeDirective(mode domain.ScriptMode) string {
	switch mode {
	case domain.ModeDialogOnly:
		return "Format: dialogue lines only. No narration, scene headings, or camera directions."
	case domain.ModeShootingScript:
		return "Format: full shooting script with scene headings (INT./EXT.), camera directions, and action lines."
	default:
		return "Format: voiceover narration track. Write flowing narration, no dialogue attribution."
	}
}

// BuildGeneratePrompt assembles the system and user messages for script
// generation from a validated request. The fixed formatting rules, the mode
// behavior and the word-count ceiling for the chosen length tier, live in
// the system message; the user message carries only the creative brief.
func BuildGeneratePrompt(req domain.ScriptRequest) (system, user string) {
	var sys strings.Builder
	sys.WriteString(generateSystemPrompt)
	sys.WriteString("\n\n")
	sys.WriteString(modeDirective(req.Mode))
	fmt.Fprintf(&sys, "\nKeep the script under roughly %d words.", req.Length.WordCeiling())

	var b strings.Builder
	fmt.Fprintf(&b, "Write a %s video script.\n", req.Genre)
	if req.Platform != "" {
		fmt.Fprintf(&b, "Target platform: %s.\n", req.Platform)
	}
	fmt.Fprintf(&b, "Tone: %s.\n", req.Tone)
	if req.Keywords != "" {
		fmt.Fprintf(&b, "Work in these keywords naturally: %s.\n", req.Keywords)
	}
	if len(req.Characters) > 0 {
		fmt.Fprintf(&b, "Characters: %s.", strings.Join(req.Characters, ", "))
	}

	return sys.String(), strings.TrimRight(b.String(), "\n")
}

// BuildAnalyzePrompt assembles the messages for a script doctor analysis.
// The user message is a literal JSON object so script text cannot bleed into
// the instructions. focus narrows the analysis to one concern and may be
// empty.
func BuildAnalyzePrompt(script, focus string) (system, user string) {
	raw, _ := json.Marshal(struct {
		Script string `json:"script"`
		Focus  string `json:"focus,omitempty"`
	}{Script: script, Focus: focus})
	return analyzeSystemPrompt, string(raw)
}

// BuildApplyPrompt assembles the messages for applying one suggestion to a
// script. Like the analyze prompt, the user message is a literal JSON
// object. context carries extra caller notes and may be empty.
func BuildApplyPrompt(script string, sug domain.Suggestion, context string) (system, user string) {
	raw, _ := json.Marshal(struct {
		Script     string            `json:"script"`
		Suggestion domain.Suggestion `json:"suggestion"`
		Context    string            `json:"context,omitempty"`
	}{Script: script, Suggestion: sug, Context: context})
	return applySystemPrompt, string(raw)
}

// BuildRewritePrompt assembles the messages for a text rewrite. All fields
// except Text are optional refinements.
func BuildRewritePrompt(req domain.RewriteRequest) (system, user string) {
	var b strings.Builder
	if req.Genre != "" {
		fmt.Fprintf(&b, "Genre: %s\n", req.Genre)
	}
	if req.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s\n", req.Tone)
	}
	if req.Context != "" {
		fmt.Fprintf(&b, "Context: %s\n", req.Context)
	}
	if req.PreserveStructure {
		b.WriteString("Preserve the structure of the original text: keep the same beats in the same order.\n")
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString("Text to rewrite:\n\n")
	b.WriteString(req.Text)
	return rewriteSystemPrompt, b.String()
}
