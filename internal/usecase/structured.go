package usecase

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonschema"

	"readyscriptpro/internal/domain"
)

// jsonFenceRe matches a ```json fenced block anywhere in the text.
var jsonFenceRe = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

// anyFenceRe matches any fenced block anywhere in the text.
var anyFenceRe = regexp.MustCompile("(?s)```\\s*(.*?)\\s*```")

// ExtractStructured recovers a JSON document from assistant prose and
// unmarshals it into out. Models wrap JSON in markdown fences or surround it
// with commentary; the pipeline tries progressively looser recoveries:
//
//  1. the whole text as JSON
//  2. a ```json fenced block
//  3. any fenced block
//  4. the first balanced {...} span
//
// When schema is non-empty, candidates that do not validate against it are
// rejected and the next recovery is tried.
func ExtractStructured(text string, schema json.RawMessage, out any) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("%w: empty assistant output", domain.ErrProtocol)
	}

	var lastErr error
	for _, candidate := range jsonCandidates(text) {
		var parsed any
		if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
			lastErr = err
			continue
		}
		if len(schema) > 0 {
			if err := validateJSONSchema(schema, parsed); err != nil {
				lastErr = err
				continue
			}
		}
		if err := json.Unmarshal([]byte(candidate), out); err != nil {
			lastErr = err
			continue
		}
		return nil
	}

	if lastErr != nil {
		return fmt.Errorf("%w: no parsable JSON in assistant output: %v", domain.ErrProtocol, lastErr)
	}
	return fmt.Errorf("%w: no parsable JSON in assistant output", domain.ErrProtocol)
}

// jsonCandidates returns the recovery candidates for text, in priority order.
func jsonCandidates(text string) []string {
	candidates := []string{text}

	if m := jsonFenceRe.FindStringSubmatch(text); len(m) > 1 && strings.TrimSpace(m[1]) != "" {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}
	if m := anyFenceRe.FindStringSubmatch(text); len(m) > 1 && strings.TrimSpace(m[1]) != "" {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}
	if span := balancedObject(text); span != "" {
		candidates = append(candidates, span)
	}

	return candidates
}

// balancedObject returns the first balanced {...} span in text, or "".
// Braces inside JSON strings are skipped.
func balancedObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				span := text[start : i+1]
				if json.Valid([]byte(span)) {
					return span
				}
				return ""
			}
		}
	}
	return ""
}

// validateJSONSchema validates parsed JSON against a JSON Schema.
func validateJSONSchema(schemaBytes json.RawMessage, data any) error {
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile([]byte(schemaBytes))
	if err != nil {
		return fmt.Errorf("invalid schema: %w", err)
	}
	result := schema.Validate(data)
	if !result.IsValid() {
		return fmt.Errorf("%s", result.Error())
	}
	return nil
}

// Schemas for the structured script-doctor outputs. Recovered candidates
// must match before they are accepted.
var analysisSchema = json.RawMessage(`{
	"type": "object",
	"required": ["overallScore", "suggestions"],
	"properties": {
		"overallScore": {"type": "integer", "minimum": 0, "maximum": 100},
		"summary": {"type": "string"},
		"suggestions": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["type", "title", "description", "severity"],
				"properties": {
					"type": {"enum": ["structure", "pacing", "dialogue", "transition"]},
					"title": {"type": "string"},
					"description": {"type": "string"},
					"severity": {"enum": ["low", "medium", "high"]}
				}
			}
		}
	}
}`)

var applySchema = json.RawMessage(`{
	"type": "object",
	"required": ["improvedScript"],
	"properties": {
		"improvedScript": {"type": "string"},
		"appliedChanges": {"type": "array", "items": {"type": "string"}},
		"confidence": {"enum": ["high", "medium", "low"]}
	}
}`)

var rewriteSchema = json.RawMessage(`{
	"type": "object",
	"required": ["options"],
	"properties": {
		"options": {
			"type": "array",
			"minItems": 3,
			"maxItems": 3,
			"items": {"type": "string"}
		},
		"reasoning": {"type": "string"}
	}
}`)
