package usecase

import (
	"encoding/json"
	"fmt"
	"strings"

	"readyscriptpro/internal/domain"
)

// textStrategy tries to pull assistant text out of one known completion
// payload shape. Strategies are probed in order; the first hit wins.
type textStrategy struct {
	name string
	fn   func(map[string]any) (string, bool)
}

var textStrategies = []textStrategy{
	{"choices.message.content", fromChoiceMessage},
	{"content", fromContentString},
	{"content.blocks", fromContentBlocks},
	{"text", fromTextField},
}

// ExtractText recovers the assistant text from a raw completion body.
// Different upstream gateways wrap the text in different envelopes; the
// strategies cover every shape seen in production.
func ExtractText(raw json.RawMessage) (string, error) {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("%w: completion body is not a JSON object: %v", domain.ErrProtocol, err)
	}

	for _, s := range textStrategies {
		if text, ok := s.fn(payload); ok {
			return text, nil
		}
	}

	return "", fmt.Errorf("%w: no assistant text in completion payload", domain.ErrProtocol)
}

// ExtractResponseText pulls the assistant text from a ChatResponse, using the
// decoded message when present and falling back to probing the raw body.
func ExtractResponseText(resp *domain.ChatResponse) (string, error) {
	if text := strings.TrimSpace(resp.Message.Content); text != "" {
		return text, nil
	}
	if len(resp.Raw) > 0 {
		return ExtractText(resp.Raw)
	}
	return "", fmt.Errorf("%w: empty completion", domain.ErrProtocol)
}

// fromChoiceMessage handles the OpenAI shape: choices[0].message.content.
func fromChoiceMessage(payload map[string]any) (string, bool) {
	choices, ok := payload["choices"].([]any)
	if !ok || len(choices) == 0 {
		return "", false
	}
	choice, ok := choices[0].(map[string]any)
	if !ok {
		return "", false
	}
	msg, ok := choice["message"].(map[string]any)
	if !ok {
		return "", false
	}
	return nonEmptyString(msg["content"])
}

// fromContentString handles a top-level content string.
func fromContentString(payload map[string]any) (string, bool) {
	return nonEmptyString(payload["content"])
}

// fromContentBlocks handles block lists: content[0].text.
func fromContentBlocks(payload map[string]any) (string, bool) {
	blocks, ok := payload["content"].([]any)
	if !ok || len(blocks) == 0 {
		return "", false
	}
	block, ok := blocks[0].(map[string]any)
	if !ok {
		return "", false
	}
	return nonEmptyString(block["text"])
}

// fromTextField handles a top-level text string.
func fromTextField(payload map[string]any) (string, bool) {
	return nonEmptyString(payload["text"])
}

func nonEmptyString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return s, true
}
