package deepgram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/harunnryd/voxlate/pkg/adapters/stt"
	"github.com/harunnryd/voxlate/pkg/audio"
	"github.com/harunnryd/voxlate/pkg/errorsx"
	"github.com/harunnryd/voxlate/pkg/frames"
	"github.com/harunnryd/voxlate/pkg/logging"
	"github.com/harunnryd/voxlate/pkg/redact"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	client "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
)

// ErrNoSpeech ends a session that heard nothing final before the deadline.
var ErrNoSpeech = errors.New("deepgram: no speech detected")

type Config struct {
	APIKey string
	Model  string
	// Language overrides the per-session hint when set.
	Language       string
	SampleRate     int
	Encoding       string
	UtteranceEndMS int
	// MaxSession bounds how long one capture waits for a final transcript.
	MaxSession time.Duration
}

// Recognizer opens one Deepgram live transcription socket per capture
// session and ends the session on the first final transcript.
type Recognizer struct {
	cfg    Config
	source audio.Source
	logger *slog.Logger
}

func New(cfg Config, source audio.Source, logger *slog.Logger) *Recognizer {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = audio.DefaultSampleRate
	}
	if cfg.Encoding == "" {
		cfg.Encoding = "linear16"
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	if cfg.MaxSession <= 0 {
		cfg.MaxSession = 15 * time.Second
	}
	return &Recognizer{
		cfg:    cfg,
		source: source,
		logger: logging.NewComponentLogger(logger, "deepgram_stt"),
	}
}

func (r *Recognizer) Name() string { return "deepgram" }

func (r *Recognizer) Begin(ctx context.Context, cfg stt.Config) (stt.Session, error) {
	if r.source == nil {
		return nil, stt.ErrUnsupported
	}
	sctx, cancel := context.WithCancel(ctx)
	mic, err := r.source.Open(sctx)
	if err != nil {
		cancel()
		if errorsx.HasReason(err, errorsx.ReasonUnsupported) {
			return nil, fmt.Errorf("%w: %v", stt.ErrUnsupported, err)
		}
		return nil, errorsx.Wrap(err, errorsx.ReasonCaptureError)
	}

	s := &session{
		id:     cfg.SessionID,
		out:    make(chan frames.Frame, 4),
		cancel: cancel,
		mic:    mic,
		logger: r.logger.With(slog.String("session_id", cfg.SessionID)),
		meta: map[string]string{
			frames.MetaSource:   "deepgram",
			frames.MetaLanguage: cfg.LanguageHint,
			frames.MetaTraceID:  cfg.TraceID,
		},
	}

	opts := &interfaces.LiveTranscriptionOptions{
		Model:          r.cfg.Model,
		Language:       r.language(cfg.LanguageHint),
		Encoding:       r.cfg.Encoding,
		SampleRate:     r.cfg.SampleRate,
		Channels:       1,
		InterimResults: false,
		SmartFormat:    true,
		Punctuate:      true,
	}
	if r.cfg.UtteranceEndMS > 0 {
		opts.InterimResults = true
		opts.UtteranceEndMs = strconv.Itoa(r.cfg.UtteranceEndMS)
	}

	dg, err := client.NewWSUsingCallback(sctx, r.cfg.APIKey, &interfaces.ClientOptions{EnableKeepAlive: true}, opts, &callback{s: s})
	if err != nil {
		s.teardown()
		return nil, errorsx.Newf(errorsx.ReasonCaptureConnect, "deepgram: create client: %w", err)
	}
	s.dg = dg
	if !dg.Connect() {
		s.teardown()
		return nil, errorsx.New(errorsx.ReasonCaptureConnect, "deepgram: connection failed")
	}
	s.logger.Info("capture_connected",
		slog.String("model", r.cfg.Model),
		slog.String("language", opts.Language))

	go func() {
		if err := dg.Stream(mic); err != nil && sctx.Err() == nil && !errors.Is(err, io.EOF) {
			s.finish(frames.NewErrorFrame(s.id, errorsx.Newf(errorsx.ReasonCaptureError, "deepgram: stream: %w", err), s.meta))
		}
	}()
	go func() {
		t := time.NewTimer(r.cfg.MaxSession)
		defer t.Stop()
		select {
		case <-t.C:
			s.finish(frames.NewErrorFrame(s.id, errorsx.Wrap(ErrNoSpeech, errorsx.ReasonCaptureError), s.meta))
		case <-sctx.Done():
			s.finish(nil)
		}
	}()
	return s, nil
}

func (r *Recognizer) language(hint string) string {
	if r.cfg.Language != "" {
		return r.cfg.Language
	}
	if hint == "" {
		return "en"
	}
	return hint
}

type session struct {
	id     string
	out    chan frames.Frame
	cancel context.CancelFunc
	mic    io.ReadCloser
	dg     *client.WSCallback
	logger *slog.Logger
	meta   map[string]string

	mu   sync.Mutex
	done bool
}

func (s *session) ID() string                  { return s.id }
func (s *session) Frames() <-chan frames.Frame { return s.out }

func (s *session) Cancel() error {
	s.finish(nil)
	return nil
}

// finish emits f (if any) and the ended frame exactly once, then tears the
// socket down off the callback goroutine.
func (s *session) finish(f frames.Frame) {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.done = true
	if f != nil {
		s.out <- f
	}
	s.out <- frames.NewEndedFrame(s.id, s.meta)
	close(s.out)
	s.mu.Unlock()
	go s.teardown()
}

func (s *session) teardown() {
	s.cancel()
	if s.mic != nil {
		_ = s.mic.Close()
	}
	if s.dg != nil {
		s.dg.Stop()
	}
}

type callback struct {
	s *session
}

func (c *callback) Open(*msginterfaces.OpenResponse) error {
	c.s.logger.Debug("deepgram_connection_opened")
	return nil
}

func (c *callback) Message(mr *msginterfaces.MessageResponse) error {
	if len(mr.Channel.Alternatives) == 0 {
		return nil
	}
	transcript := strings.TrimSpace(mr.Channel.Alternatives[0].Transcript)
	if transcript == "" || !(mr.IsFinal || mr.SpeechFinal) {
		return nil
	}
	c.s.logger.Info("transcript_final", slog.String("transcript", redact.Preview(transcript, 80)))
	c.s.finish(frames.NewTranscriptFrame(c.s.id, transcript, c.s.meta))
	return nil
}

func (c *callback) Metadata(md *msginterfaces.MetadataResponse) error {
	c.s.logger.Debug("deepgram_metadata_received", slog.String("request_id", md.RequestID))
	return nil
}

func (c *callback) SpeechStarted(*msginterfaces.SpeechStartedResponse) error {
	return nil
}

func (c *callback) UtteranceEnd(*msginterfaces.UtteranceEndResponse) error {
	return nil
}

func (c *callback) Close(*msginterfaces.CloseResponse) error {
	c.s.logger.Debug("deepgram_connection_closed")
	c.s.finish(nil)
	return nil
}

func (c *callback) Error(er *msginterfaces.ErrorResponse) error {
	c.s.logger.Error("deepgram_error",
		slog.String("error_code", er.ErrCode),
		slog.String("error_message", er.ErrMsg))
	err := errorsx.Newf(errorsx.ReasonCaptureError, "deepgram: %s: %s", er.ErrCode, er.ErrMsg)
	c.s.finish(frames.NewErrorFrame(c.s.id, err, c.s.meta))
	return nil
}

func (c *callback) UnhandledEvent(byData []byte) error {
	c.s.logger.Debug("deepgram_unhandled_event", slog.Int("bytes", len(byData)))
	return nil
}

var (
	_ stt.Recognizer                   = (*Recognizer)(nil)
	_ msginterfaces.LiveMessageCallback = (*callback)(nil)
)
