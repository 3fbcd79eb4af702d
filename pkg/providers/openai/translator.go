package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/harunnryd/voxlate/pkg/adapters/translate"
	"github.com/harunnryd/voxlate/pkg/errorsx"
	"github.com/harunnryd/voxlate/pkg/resilience"
)

// Translator asks an OpenAI compatible chat completions endpoint for a
// translation.
type Translator struct {
	APIKey  string
	Model   string
	BaseURL string
	Client  *http.Client
}

func NewTranslator(apiKey, model string) *Translator {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Translator{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: "https://api.openai.com/v1",
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *Translator) Name() string { return "openai" }

func (a *Translator) Translate(ctx context.Context, text, target string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model":       a.Model,
		"temperature": 0,
		"messages": []map[string]string{
			{"role": "system", "content": translate.SystemPrompt},
			{"role": "user", "content": translate.Prompt(text, target)},
		},
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(a.BaseURL, "/")+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if a.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.APIKey)
	}
	resp, err := a.client().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", resilience.RateLimitFromResponse("openai", resp, string(msg))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("openai: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	var payload struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", errorsx.Newf(errorsx.ReasonTranslateMalformed, "openai: decode: %w", err)
	}
	if len(payload.Choices) == 0 {
		return "", errorsx.Wrap(errors.New("openai: no choices"), errorsx.ReasonTranslateMalformed)
	}
	return translate.CleanOutput(payload.Choices[0].Message.Content), nil
}

func (a *Translator) client() *http.Client {
	if a.Client != nil {
		return a.Client
	}
	return http.DefaultClient
}

var _ translate.Translator = (*Translator)(nil)
