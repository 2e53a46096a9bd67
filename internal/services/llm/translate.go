package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"subflow/internal/language"
)

const translationPrompt = `You translate subtitle lines for video.
Detect the source language yourself. Translate the user's text into %s (language code %q).
Keep the meaning and tone, keep it about as long as the original, and do not add notes.
Respond with JSON only: {"translation": "<translated text>"}`

// Translate translates one subtitle line into target.
func (c *Client) Translate(ctx context.Context, text string, target language.Code) (string, error) {
	if strings.TrimSpace(string(target)) == "" {
		return "", errors.New("llm translate: target language required")
	}
	prompt := fmt.Sprintf(translationPrompt, language.DisplayName(target), string(target))
	content, err := c.CompleteJSON(ctx, prompt, text)
	if err != nil {
		return "", fmt.Errorf("llm translate: %w", err)
	}
	var parsed struct {
		Translation string `json:"translation"`
	}
	if err := DecodeLLMJSON(content, &parsed); err != nil {
		return "", fmt.Errorf("llm translate: parse payload: %w", err)
	}
	translated := strings.TrimSpace(parsed.Translation)
	if translated == "" {
		return "", errors.New("llm translate: empty translation")
	}
	return translated, nil
}
