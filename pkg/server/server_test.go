package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/harunnryd/voxlate/pkg/history"
	"github.com/harunnryd/voxlate/pkg/pipeline"
	"github.com/harunnryd/voxlate/pkg/providers/mock"
	"github.com/harunnryd/voxlate/pkg/translation"
)

func newTestServer(t *testing.T, sttCfg mock.STTConfig) (*Server, *pipeline.Controller) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctrl, err := pipeline.New(context.Background(), pipeline.Config{
		Recognizer: mock.NewRecognizer(sttCfg),
		Translator: translation.NewClient(translation.Config{Translator: mock.NewTranslator(mock.TranslatorConfig{})}),
		Logger:     logger,
	})
	if err != nil {
		t.Fatalf("controller: %v", err)
	}
	t.Cleanup(func() { _ = ctrl.Close() })
	return New(Config{}, ctrl, logger), ctrl
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func TestLanguagesAndState(t *testing.T) {
	s, _ := newTestServer(t, mock.STTConfig{})
	w := do(t, s, http.MethodGet, "/languages", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	list := decode[languageList](t, w)
	if len(list.Languages) != 39 || list.Target != "hi" || list.Input != "en" {
		t.Fatalf("unexpected language list: %d %s %s", len(list.Languages), list.Target, list.Input)
	}

	w = do(t, s, http.MethodGet, "/state", "")
	var st map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if st["mode"] != "idle" || st["target"] != "hi" {
		t.Fatalf("unexpected state %v", st)
	}
	if w := do(t, s, http.MethodGet, "/healthz", ""); w.Code != http.StatusOK {
		t.Fatalf("expected healthz 200, got %d", w.Code)
	}
}

func TestTranslateEndpoint(t *testing.T) {
	s, ctrl := newTestServer(t, mock.STTConfig{})
	w := do(t, s, http.MethodPost, "/translate", `{"text":"hello"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode[translateResponse](t, w)
	if resp.Translation != "hi:hello" || resp.Target != "hi" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if len(ctrl.History()) != 1 {
		t.Fatalf("expected exchange recorded")
	}

	cases := []string{``, `{"text":"  "}`, `{"text":1}`, `{"txt":"hello"}`}
	for _, body := range cases {
		if w := do(t, s, http.MethodPost, "/translate", body); w.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, w.Code)
		}
	}
}

func TestListenEndpoints(t *testing.T) {
	s, _ := newTestServer(t, mock.STTConfig{})
	w := do(t, s, http.MethodPost, "/listen/once", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"listening_once"`) {
		t.Fatalf("unexpected listen once response %d %s", w.Code, w.Body.String())
	}
	if w := do(t, s, http.MethodPost, "/listen/once", ""); w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for second once, got %d", w.Code)
	}
	if w := do(t, s, http.MethodPost, "/listen/toggle", ""); !strings.Contains(w.Body.String(), `"listening_continuous"`) {
		t.Fatalf("expected continuous after toggle, got %s", w.Body.String())
	}
	if w := do(t, s, http.MethodPost, "/listen/stop", ""); !strings.Contains(w.Body.String(), `"idle"`) {
		t.Fatalf("expected idle after stop, got %s", w.Body.String())
	}
	if w := do(t, s, http.MethodGet, "/listen/stop", ""); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

func TestListenUnsupported(t *testing.T) {
	s, _ := newTestServer(t, mock.STTConfig{Unsupported: true})
	w := do(t, s, http.MethodPost, "/listen/live", "")
	if w.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", w.Code)
	}
	body := decode[errorBody](t, w)
	if body.Kind != "unsupported" {
		t.Fatalf("unexpected error body %+v", body)
	}
}

func TestLanguageEndpoints(t *testing.T) {
	s, _ := newTestServer(t, mock.STTConfig{})
	if w := do(t, s, http.MethodPut, "/target", `{"code":"xx"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	w := do(t, s, http.MethodPut, "/target", `{"code":"FR"}`)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"target":"fr"`) {
		t.Fatalf("unexpected target response %d %s", w.Code, w.Body.String())
	}
	w = do(t, s, http.MethodPut, "/input", `{"code":"ja"}`)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"input":"ja"`) {
		t.Fatalf("unexpected input response %d %s", w.Code, w.Body.String())
	}
}

func TestHistoryEndpoints(t *testing.T) {
	s, ctrl := newTestServer(t, mock.STTConfig{})
	w := do(t, s, http.MethodGet, "/history", "")
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("expected empty array, got %s", w.Body.String())
	}
	if _, err := ctrl.Translate(context.Background(), "hello", false); err != nil {
		t.Fatalf("translate: %v", err)
	}

	entries := decode[[]history.Exchange](t, do(t, s, http.MethodGet, "/history", ""))
	if len(entries) != 1 || entries[0].SourceText != "hello" {
		t.Fatalf("unexpected history %+v", entries)
	}

	w = do(t, s, http.MethodGet, "/history/export", "")
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "translation_history.json") {
		t.Fatalf("unexpected content disposition %q", cd)
	}
	exported := decode[[]history.Exchange](t, w)
	if len(exported) != 1 {
		t.Fatalf("unexpected export %+v", exported)
	}

	if w := do(t, s, http.MethodDelete, "/history", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without confirmation, got %d", w.Code)
	}
	if len(ctrl.History()) != 1 {
		t.Fatalf("history cleared without confirmation")
	}
	if w := do(t, s, http.MethodDelete, "/history?confirm=true", ""); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if len(ctrl.History()) != 0 {
		t.Fatalf("expected empty history")
	}
}

func TestSpeakEndpoint(t *testing.T) {
	s, _ := newTestServer(t, mock.STTConfig{})
	if w := do(t, s, http.MethodPost, "/speak", ""); w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}
	if w := do(t, s, http.MethodPost, "/speak", `{"text":"namaste"}`); w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}
}

func TestWebsocketStreamsUpdates(t *testing.T) {
	s, _ := newTestServer(t, mock.STTConfig{})
	ts := httptest.NewServer(s)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first Message
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read state: %v", err)
	}
	if first.Type != "state" || first.State == nil || first.State.Target != "hi" {
		t.Fatalf("unexpected first message %+v", first)
	}

	resp, err := http.Post(ts.URL+"/translate", "application/json", strings.NewReader(`{"text":"hello"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()

	for {
		var raw map[string]any
		if err := conn.ReadJSON(&raw); err != nil {
			t.Fatalf("read update: %v", err)
		}
		update, _ := raw["update"].(map[string]any)
		if raw["type"] == "update" && update["kind"] == "exchange" {
			ex, _ := update["exchange"].(map[string]any)
			if ex["translated"] != "hi:hello" {
				t.Fatalf("unexpected exchange %v", ex)
			}
			break
		}
	}
}

func TestStopRefusesRequests(t *testing.T) {
	s, _ := newTestServer(t, mock.STTConfig{})
	if err := s.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if w := do(t, s, http.MethodGet, "/state", ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 while draining, got %d", w.Code)
	}
}

func TestCheckOrigin(t *testing.T) {
	cases := []struct {
		cfg    Config
		origin string
		want   bool
	}{
		{Config{}, "", true},
		{Config{}, "http://example.com", true},
		{Config{}, "http://evil.com", false},
		{Config{AllowAnyOrigin: true}, "http://evil.com", true},
		{Config{AllowedOrigins: []string{"http://localhost:3000"}}, "http://localhost:3000/", true},
		{Config{AllowedOrigins: []string{"app.local"}}, "https://app.local", true},
		{Config{AllowedOrigins: []string{"https://app.local"}}, "http://app.local", false},
	}
	for _, tc := range cases {
		s := &Server{cfg: tc.cfg}
		req := httptest.NewRequest(http.MethodGet, "http://example.com/ws", nil)
		if tc.origin != "" {
			req.Header.Set("Origin", tc.origin)
		}
		if got := s.checkOrigin(req); got != tc.want {
			t.Fatalf("origin %q with %+v: got %v, want %v", tc.origin, tc.cfg, got, tc.want)
		}
	}
}
