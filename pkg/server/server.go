// Package server exposes a Controller over HTTP and streams its state
// changes to websocket clients.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/harunnryd/voxlate/pkg/errorsx"
	"github.com/harunnryd/voxlate/pkg/history"
	"github.com/harunnryd/voxlate/pkg/languages"
	"github.com/harunnryd/voxlate/pkg/logging"
	"github.com/harunnryd/voxlate/pkg/pipeline"
)

// Controller is the part of pipeline.Controller the server drives.
type Controller interface {
	StartOnce() error
	StartLive() error
	Stop() error
	ToggleLive() error
	Translate(ctx context.Context, text string, autoSpeak bool) (string, error)
	Speak(text string) error
	SetTargetLanguage(code string) error
	SetInputLanguage(code string) error
	State() pipeline.State
	History() []history.Exchange
	ExportHistory(w io.Writer) error
	ClearHistory(ctx context.Context, confirmed bool) error
	AddListener(l pipeline.Listener)
}

type Config struct {
	Addr           string   `mapstructure:"addr"`
	AllowAnyOrigin bool     `mapstructure:"allow_any_origin"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = "127.0.0.1:8080"
	}
	return c
}

type Server struct {
	cfg      Config
	ctrl     Controller
	log      *slog.Logger
	server   *http.Server
	upgrader websocket.Upgrader
	mux      *http.ServeMux

	mu      sync.Mutex
	clients map[*client]struct{}

	draining atomic.Bool
}

// New registers the server as a listener on ctrl.
func New(cfg Config, ctrl Controller, logger *slog.Logger) *Server {
	cfg = cfg.withDefaults()
	s := &Server{
		cfg:  cfg,
		ctrl: ctrl,
		log:  logging.NewComponentLogger(logger, "server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		clients: make(map[*client]struct{}),
	}
	s.upgrader.CheckOrigin = s.checkOrigin
	s.mux = s.routes()
	ctrl.AddListener(s)
	return s
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /languages", s.handleLanguages)
	mux.HandleFunc("GET /state", s.handleState)
	mux.HandleFunc("POST /listen/once", s.handleListen(s.ctrl.StartOnce))
	mux.HandleFunc("POST /listen/live", s.handleListen(s.ctrl.StartLive))
	mux.HandleFunc("POST /listen/toggle", s.handleListen(s.ctrl.ToggleLive))
	mux.HandleFunc("POST /listen/stop", s.handleListen(s.ctrl.Stop))
	mux.HandleFunc("POST /translate", s.handleTranslate)
	mux.HandleFunc("POST /speak", s.handleSpeak)
	mux.HandleFunc("PUT /target", s.handleLanguage(s.ctrl.SetTargetLanguage))
	mux.HandleFunc("PUT /input", s.handleLanguage(s.ctrl.SetInputLanguage))
	mux.HandleFunc("GET /history", s.handleHistory)
	mux.HandleFunc("GET /history/export", s.handleExport)
	mux.HandleFunc("DELETE /history", s.handleClear)
	mux.HandleFunc("GET /ws", s.handleWS)
	return mux
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.draining.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	s.mux.ServeHTTP(w, r)
}

// Start binds the listen address and serves until ctx ends or Stop is
// called. Bind errors are returned.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.server = &http.Server{
		Addr:              s.cfg.Addr,
		ReadHeaderTimeout: 5 * time.Second,
		Handler:           s,
	}
	go func() {
		<-ctx.Done()
		_ = s.server.Close()
	}()
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("server_error", slog.String("error", err.Error()))
		}
	}()
	s.log.Info("server_listening", slog.String("addr", ln.Addr().String()))
	return nil
}

// Stop refuses new requests, closes every websocket client and shuts the
// listener down.
func (s *Server) Stop() error {
	s.draining.Store(true)
	s.mu.Lock()
	for c := range s.clients {
		c.close()
	}
	s.clients = make(map[*client]struct{})
	s.mu.Unlock()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

type languageList struct {
	Languages []languages.Tag `json:"languages"`
	Target    string          `json:"target"`
	Input     string          `json:"input"`
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	st := s.ctrl.State()
	writeJSON(w, http.StatusOK, languageList{Languages: languages.All(), Target: st.Target, Input: st.Input})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.State())
}

func (s *Server) handleListen(op func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := op(); err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s.ctrl.State())
	}
}

type translateRequest struct {
	Text  string `json:"text"`
	Speak bool   `json:"speak"`
}

type translateResponse struct {
	Text        string `json:"text"`
	Translation string `json:"translation"`
	Target      string `json:"target"`
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "text is required"})
		return
	}
	target := s.ctrl.State().Target
	out, err := s.ctrl.Translate(r.Context(), req.Text, req.Speak)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, translateResponse{Text: req.Text, Translation: out, Target: target})
}

type speakRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	var req speakRequest
	if r.ContentLength != 0 {
		if err := decodeBody(w, r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
	}
	if err := s.ctrl.Speak(req.Text); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type languageRequest struct {
	Code string `json:"code"`
}

func (s *Server) handleLanguage(set func(string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req languageRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
		if _, ok := languages.Lookup(req.Code); !ok {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "unsupported language: " + req.Code})
			return
		}
		if err := set(req.Code); err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s.ctrl.State())
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries := s.ctrl.History()
	if entries == nil {
		entries = []history.Exchange{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="translation_history.json"`)
	if err := s.ctrl.ExportHistory(w); err != nil {
		s.log.Warn("history_export_failed", slog.String("error", err.Error()))
	}
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	confirmed := r.URL.Query().Get("confirm") == "true"
	if err := s.ctrl.ClearHistory(r.Context(), confirmed); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Message is one websocket notification.
type Message struct {
	Type   string                `json:"type"`
	State  *pipeline.State       `json:"state,omitempty"`
	Change *pipeline.StateChange `json:"change,omitempty"`
	Update *pipeline.Update      `json:"update,omitempty"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := newClient(uuid.NewString(), conn)
	st := s.ctrl.State()
	c.enqueue(Message{Type: "state", State: &st})

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.log.Debug("ws_client_attached", slog.String("client_id", c.id))

	go c.loop()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	c.close()
	s.log.Debug("ws_client_detached", slog.String("client_id", c.id))
}

// OnStateChange implements pipeline.Listener.
func (s *Server) OnStateChange(change pipeline.StateChange) {
	s.broadcast(Message{Type: "mode", Change: &change})
}

// OnUpdate implements pipeline.Listener.
func (s *Server) OnUpdate(update pipeline.Update) {
	s.broadcast(Message{Type: "update", Update: &update})
}

func (s *Server) broadcast(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		c.enqueue(msg)
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if s.cfg.AllowAnyOrigin {
		return true
	}
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	origin = strings.TrimRight(origin, "/")
	originHost := strings.TrimPrefix(origin, "https://")
	originHost = strings.TrimPrefix(originHost, "http://")
	if strings.EqualFold(originHost, r.Host) {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		a := strings.TrimRight(strings.TrimSpace(allowed), "/")
		if a == "" {
			continue
		}
		if strings.HasPrefix(a, "http://") || strings.HasPrefix(a, "https://") {
			if strings.EqualFold(a, origin) {
				return true
			}
			continue
		}
		if strings.EqualFold(a, originHost) {
			return true
		}
	}
	return false
}

type errorBody struct {
	Error string       `json:"error"`
	Kind  errorsx.Kind `json:"kind,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Warn("request_failed", slog.Int("status", status), slog.String("error", err.Error()))
	}
	body := errorBody{Error: err.Error()}
	if kind := errorsx.KindOf(err); kind != errorsx.KindInternal {
		body.Kind = kind
	}
	writeJSON(w, status, body)
}

func statusFor(err error) int {
	var invalid *pipeline.InvalidTransitionError
	switch {
	case errors.Is(err, pipeline.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, pipeline.ErrClearNotConfirmed):
		return http.StatusBadRequest
	case errors.As(err, &invalid):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	switch errorsx.KindOf(err) {
	case errorsx.KindUnsupported:
		return http.StatusNotImplemented
	case errorsx.KindCaptureError:
		return http.StatusBadGateway
	case errorsx.KindStorageCorruption:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return errors.New("invalid request body: " + err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
