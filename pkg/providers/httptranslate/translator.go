// Package httptranslate talks to the translation backend's
// POST /translate endpoint.
package httptranslate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/harunnryd/voxlate/pkg/adapters/translate"
	"github.com/harunnryd/voxlate/pkg/errorsx"
	"github.com/harunnryd/voxlate/pkg/resilience"
)

const DefaultBaseURL = "http://localhost:5000"

type Config struct {
	BaseURL string
	Timeout time.Duration
	// APIKey is sent as a bearer token when set.
	APIKey string
}

type Translator struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func New(cfg Config) *Translator {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Translator{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

func (t *Translator) Name() string { return "http" }

type request struct {
	Text   string `json:"text"`
	Target string `json:"target"`
}

type response struct {
	TranslatedText *string `json:"translatedText"`
}

func (t *Translator) Translate(ctx context.Context, text, target string) (string, error) {
	body, err := json.Marshal(request{Text: text, Target: target})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/translate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate: request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", resilience.RateLimitFromResponse("translate", resp, string(msg))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("translate: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errorsx.Newf(errorsx.ReasonTranslateMalformed, "translate: decode: %w", err)
	}
	if out.TranslatedText == nil {
		return "", errorsx.New(errorsx.ReasonTranslateMalformed, "translate: response missing translatedText")
	}
	return *out.TranslatedText, nil
}

var _ translate.Translator = (*Translator)(nil)
