// Package gemini translates through the Gemini API using the genai SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/harunnryd/voxlate/pkg/adapters/translate"
	"github.com/harunnryd/voxlate/pkg/errorsx"
	"github.com/harunnryd/voxlate/pkg/resilience"
	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.0-flash"

type Config struct {
	APIKey string
	Model  string
	// BaseURL overrides the API endpoint.
	BaseURL string
}

type Translator struct {
	client *genai.Client
	model  string
}

func New(ctx context.Context, cfg Config) (*Translator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini: api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Translator{client: client, model: cfg.Model}, nil
}

func (t *Translator) Name() string { return "gemini" }

func (t *Translator) Translate(ctx context.Context, text, target string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(translate.SystemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0),
	}
	resp, err := t.client.Models.GenerateContent(ctx, t.model, genai.Text(translate.Prompt(text, target)), cfg)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) && apiErr.Code == 429 {
			return "", resilience.RateLimitError{Provider: "gemini", Message: apiErr.Message}
		}
		return "", fmt.Errorf("gemini: generate: %w", err)
	}
	out := translate.CleanOutput(resp.Text())
	if out == "" {
		return "", errorsx.New(errorsx.ReasonTranslateMalformed, "gemini: empty response")
	}
	return out, nil
}

var _ translate.Translator = (*Translator)(nil)
