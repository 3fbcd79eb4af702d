// Package pipeline coordinates capture, translation, speech and history for
// one user. All mutable state lives inside the Controller's event loop.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harunnryd/voxlate/pkg/adapters/stt"
	"github.com/harunnryd/voxlate/pkg/errorsx"
	"github.com/harunnryd/voxlate/pkg/frames"
	"github.com/harunnryd/voxlate/pkg/history"
	"github.com/harunnryd/voxlate/pkg/languages"
	"github.com/harunnryd/voxlate/pkg/logging"
	"github.com/harunnryd/voxlate/pkg/metrics"
	"github.com/harunnryd/voxlate/pkg/redact"
)

var (
	// ErrClosed is returned by operations on a closed Controller.
	ErrClosed = errors.New("pipeline: controller closed")
	// ErrClearNotConfirmed guards the destructive history clear.
	ErrClearNotConfirmed = errors.New("pipeline: clearing history requires confirmation")
)

// Translator is the fail-open translation dependency. The string is always
// usable; the error only explains an empty result.
type Translator interface {
	TranslateDetailed(ctx context.Context, text, target string) (string, error)
}

// Speaker renders text audibly without blocking.
type Speaker interface {
	Speak(text string, tag languages.Tag)
	Cancel()
}

type Config struct {
	Recognizer     stt.Recognizer
	Translator     Translator
	Speaker        Speaker
	Ledger         *history.Ledger
	IDs            *history.IDGen
	TargetLanguage string
	InputLanguage  string
	Observer       metrics.Observer
	Logger         *slog.Logger
}

// State is a point-in-time view of the Controller.
type State struct {
	Mode        Mode   `json:"mode"`
	Target      string `json:"target"`
	Input       string `json:"input"`
	Transcript  string `json:"transcript"`
	Translation string `json:"translation"`
	Unsupported bool   `json:"capture_unsupported"`
	HistoryLen  int    `json:"history_len"`
	// HistoryDetached is set while writes are held back because the stored
	// history could not be read.
	HistoryDetached bool `json:"history_detached,omitempty"`
}

type Controller struct {
	recognizer stt.Recognizer
	translator Translator
	speaker    Speaker
	ledger     *history.Ledger
	ids        *history.IDGen
	observer   metrics.Observer
	log        *slog.Logger

	ops       chan func()
	done      chan struct{}
	postMu    sync.RWMutex
	closed    bool
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	// pending counts dispatched sequences not yet committed. A cond instead
	// of a WaitGroup, since dispatch can start while Drain is waiting.
	pendingMu   sync.Mutex
	pendingCond *sync.Cond
	pending     int

	// Owned by the loop goroutine.
	fsm         *modeMachine
	session     stt.Session
	sessionID   string
	unsupported error
	target      string
	input       string
	transcript  string
	translation string
	dispatched  uint64
	displayed   uint64
	listeners   []Listener
}

// New loads the ledger and starts the controller loop. A missing or corrupt
// persisted history is logged and replaced by an empty ledger. An unreadable
// one leaves the ledger detached until the store can be read again.
func New(ctx context.Context, cfg Config) (*Controller, error) {
	if cfg.Translator == nil {
		return nil, errors.New("pipeline: translator is required")
	}
	if cfg.TargetLanguage == "" {
		cfg.TargetLanguage = languages.DefaultTarget
	}
	if cfg.InputLanguage == "" {
		cfg.InputLanguage = languages.DefaultInput
	}
	target, ok := languages.Lookup(cfg.TargetLanguage)
	if !ok {
		return nil, fmt.Errorf("pipeline: unknown target language %q", cfg.TargetLanguage)
	}
	input, ok := languages.Lookup(cfg.InputLanguage)
	if !ok {
		return nil, fmt.Errorf("pipeline: unknown input language %q", cfg.InputLanguage)
	}
	if cfg.IDs == nil {
		cfg.IDs = history.NewIDGen()
	}
	obs := cfg.Observer
	if obs == nil {
		obs = metrics.NoopObserver{}
	}
	log := logging.NewComponentLogger(cfg.Logger, "pipeline")
	if cfg.Ledger == nil {
		cfg.Ledger = history.NewLedger(history.Config{Logger: cfg.Logger})
	}
	if err := cfg.Ledger.Load(ctx); err != nil {
		event := "history_reset"
		if cfg.Ledger.Detached() {
			event = "history_detached"
		}
		log.Warn(event,
			slog.String("reason", string(errorsx.Reason(err))),
			slog.String("error", err.Error()))
	}
	cfg.IDs.Observe(cfg.Ledger.MaxID())

	lctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		recognizer: cfg.Recognizer,
		translator: cfg.Translator,
		speaker:    cfg.Speaker,
		ledger:     cfg.Ledger,
		ids:        cfg.IDs,
		observer:   obs,
		log:        log,
		ops:        make(chan func(), 64),
		done:       make(chan struct{}),
		ctx:        lctx,
		cancel:     cancel,
		target:     target.Code,
		input:      input.Code,
	}
	c.pendingCond = sync.NewCond(&c.pendingMu)
	c.fsm = newModeMachine(c.onModeChange)
	go c.loop()
	return c, nil
}

func (c *Controller) loop() {
	defer close(c.done)
	for {
		select {
		case op := <-c.ops:
			op()
		case <-c.ctx.Done():
			c.shutdown()
			return
		}
	}
}

// shutdown runs every op queued before close, so accepted commits are
// still recorded.
func (c *Controller) shutdown() {
	c.postMu.Lock()
	c.closed = true
	c.postMu.Unlock()
	for {
		select {
		case op := <-c.ops:
			op()
		default:
			c.cancelSession()
			if c.fsm.Mode() != ModeIdle {
				_ = c.fsm.Transition(ModeIdle, "closed")
			}
			return
		}
	}
}

// post queues fn on the loop. It reports false once the controller is
// closing.
func (c *Controller) post(fn func()) bool {
	c.postMu.RLock()
	defer c.postMu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.ops <- fn:
		return true
	case <-c.ctx.Done():
		return false
	}
}

// call runs fn on the loop and waits for it.
func (c *Controller) call(fn func()) error {
	finished := make(chan struct{})
	if !c.post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrClosed
	}
	select {
	case <-finished:
		return nil
	case <-c.done:
		select {
		case <-finished:
			return nil
		default:
			return ErrClosed
		}
	}
}

func (c *Controller) run(fn func() error) error {
	var err error
	if cerr := c.call(func() { err = fn() }); cerr != nil {
		return cerr
	}
	return err
}

// StartOnce listens for a single utterance. Valid only while idle.
func (c *Controller) StartOnce() error {
	return c.run(c.startOnce)
}

// StartLive enters continuous listening. From ListeningOnce the open
// session is kept and restarts when it ends. In live mode it is a no-op.
func (c *Controller) StartLive() error {
	return c.run(c.startLive)
}

// Stop returns to idle and cancels the active capture. In-flight
// translations still complete and are recorded.
func (c *Controller) Stop() error {
	return c.run(func() error { return c.stop("stop") })
}

// ToggleLive stops live mode when active and starts it otherwise.
func (c *Controller) ToggleLive() error {
	return c.run(func() error {
		if c.fsm.Mode() == ModeListeningContinuous {
			return c.stop("toggle_live")
		}
		return c.startLive()
	})
}

// Translate translates typed text into the current target language and
// waits for the result, which is "" when translation failed.
func (c *Controller) Translate(ctx context.Context, text string, autoSpeak bool) (string, error) {
	reply := make(chan string, 1)
	if err := c.call(func() {
		c.transcript = text
		c.notify(Update{Kind: UpdateTranscript, Transcript: text})
		c.dispatch(text, autoSpeak, reply, "")
	}); err != nil {
		return "", err
	}
	select {
	case out := <-reply:
		return out, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Speak replays text in the current target language. Blank text replays the
// displayed translation.
func (c *Controller) Speak(text string) error {
	return c.call(func() {
		if strings.TrimSpace(text) == "" {
			text = c.translation
		}
		if c.speaker != nil {
			c.speaker.Speak(text, languages.Resolve(c.target))
		}
	})
}

func (c *Controller) SetTargetLanguage(code string) error {
	tag, ok := languages.Lookup(code)
	if !ok {
		return fmt.Errorf("pipeline: unknown target language %q", code)
	}
	return c.call(func() {
		c.target = tag.Code
		c.notify(Update{Kind: UpdateLanguage, Target: c.target, Input: c.input})
	})
}

// SetInputLanguage changes the recognition hint used by the next capture.
func (c *Controller) SetInputLanguage(code string) error {
	tag, ok := languages.Lookup(code)
	if !ok {
		return fmt.Errorf("pipeline: unknown input language %q", code)
	}
	return c.call(func() {
		c.input = tag.Code
		c.notify(Update{Kind: UpdateLanguage, Target: c.target, Input: c.input})
	})
}

func (c *Controller) State() State {
	var st State
	_ = c.call(func() {
		st = State{
			Mode:        c.fsm.Mode(),
			Target:      c.target,
			Input:       c.input,
			Transcript:  c.transcript,
			Translation: c.translation,
			Unsupported: c.unsupported != nil,
			HistoryLen:  c.ledger.Len(),

			HistoryDetached: c.ledger.Detached(),
		}
	})
	return st
}

func (c *Controller) Mode() Mode             { return c.State().Mode }
func (c *Controller) TargetLanguage() string { return c.State().Target }
func (c *Controller) InputLanguage() string  { return c.State().Input }
func (c *Controller) Transcript() string     { return c.State().Transcript }
func (c *Controller) Translation() string    { return c.State().Translation }

// History returns the ledger newest-first.
func (c *Controller) History() []history.Exchange {
	return c.ledger.All()
}

// ExportHistory writes the ledger as JSON. It does not touch pipeline state.
func (c *Controller) ExportHistory(w io.Writer) error {
	return c.ledger.Export(w)
}

// ClearHistory empties the ledger. confirmed must be true.
func (c *Controller) ClearHistory(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return ErrClearNotConfirmed
	}
	return c.run(func() error {
		err := c.ledger.Clear(ctx)
		c.log.Info("history_cleared")
		c.notify(Update{Kind: UpdateHistory})
		return err
	})
}

func (c *Controller) AddListener(l Listener) {
	_ = c.call(func() { c.listeners = append(c.listeners, l) })
}

// Drain waits for dispatched translations to be recorded, including any
// dispatched while it waits.
func (c *Controller) Drain() error {
	c.pendingMu.Lock()
	for c.pending > 0 {
		c.pendingCond.Wait()
	}
	c.pendingMu.Unlock()
	return nil
}

func (c *Controller) admit() {
	c.pendingMu.Lock()
	c.pending++
	c.pendingMu.Unlock()
}

func (c *Controller) settle() {
	c.pendingMu.Lock()
	c.pending--
	if c.pending == 0 {
		c.pendingCond.Broadcast()
	}
	c.pendingMu.Unlock()
}

// Close stops the loop and cancels any capture. It is safe to call twice.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		<-c.done
		if c.speaker != nil {
			c.speaker.Cancel()
		}
	})
	return nil
}

func (c *Controller) startOnce() error {
	if mode := c.fsm.Mode(); mode != ModeIdle {
		return errorsx.Wrap(&InvalidTransitionError{From: mode, To: ModeListeningOnce}, errorsx.ReasonInvalidTransition)
	}
	if err := c.beginCapture("start_once"); err != nil {
		return err
	}
	return c.fsm.Transition(ModeListeningOnce, "start_once")
}

func (c *Controller) startLive() error {
	switch c.fsm.Mode() {
	case ModeListeningContinuous:
		return nil
	case ModeListeningOnce:
		return c.fsm.Transition(ModeListeningContinuous, "start_live")
	}
	if err := c.beginCapture("start_live"); err != nil {
		return err
	}
	return c.fsm.Transition(ModeListeningContinuous, "start_live")
}

func (c *Controller) stop(reason string) error {
	c.cancelSession()
	if c.fsm.Mode() == ModeIdle {
		return nil
	}
	return c.fsm.Transition(ModeIdle, reason)
}

func (c *Controller) beginCapture(reason string) error {
	if c.unsupported != nil {
		return c.unsupported
	}
	if c.recognizer == nil {
		c.markUnsupported(stt.ErrUnsupported)
		return c.unsupported
	}
	c.cancelSession()

	sid := uuid.NewString()
	hint := languages.LocaleFor(c.input, c.input)
	sess, err := c.recognizer.Begin(c.ctx, stt.Config{SessionID: sid, TraceID: sid, LanguageHint: hint})
	if err != nil {
		if errors.Is(err, stt.ErrUnsupported) {
			c.markUnsupported(err)
			return c.unsupported
		}
		err = errorsx.Wrap(err, errorsx.ReasonCaptureError)
		c.log.Warn("capture_begin_failed",
			slog.String("provider", c.recognizer.Name()),
			slog.String("error", err.Error()))
		c.record(metrics.EventCaptureError, sid, map[string]any{"error": err.Error()})
		c.notifyError(err)
		return err
	}
	if id := sess.ID(); id != "" {
		sid = id
	}
	c.session = sess
	c.sessionID = sid
	c.log.Debug("capture_started",
		slog.String("session_id", sid),
		slog.String("language", hint),
		slog.String("reason", reason))
	c.record(metrics.EventCaptureStarted, sid, map[string]any{"language": hint, "reason": reason})
	go c.forward(sid, sess)
	return nil
}

func (c *Controller) markUnsupported(err error) {
	c.unsupported = errorsx.Wrap(err, errorsx.ReasonUnsupported)
	c.log.Warn("capture_unsupported", slog.String("error", err.Error()))
	c.notifyError(c.unsupported)
}

func (c *Controller) cancelSession() {
	if c.session == nil {
		return
	}
	sess := c.session
	c.session = nil
	c.sessionID = ""
	if err := sess.Cancel(); err != nil {
		c.log.Debug("capture_cancel_failed", slog.String("error", err.Error()))
	}
}

// forward moves a session's frames onto the loop, tagged with its id.
func (c *Controller) forward(id string, sess stt.Session) {
	for f := range sess.Frames() {
		if !c.post(func() { c.onFrame(id, f) }) {
			return
		}
	}
}

func (c *Controller) onFrame(id string, f frames.Frame) {
	if id != c.sessionID {
		c.log.Debug("stale_frame_dropped",
			slog.String("session_id", id),
			slog.String("kind", string(f.Kind())))
		return
	}
	switch fr := f.(type) {
	case frames.TranscriptFrame:
		c.onTranscript(id, fr.Text())
	case frames.ErrorFrame:
		c.onCaptureError(id, fr.Err())
	case frames.EndedFrame:
		c.onEnded(id)
	}
}

func (c *Controller) onTranscript(id, text string) {
	c.transcript = text
	c.log.Info("transcript_final",
		slog.String("session_id", id),
		slog.String("text", redact.Preview(text, 80)))
	c.record(metrics.EventTranscriptFinal, id, map[string]any{"text": text})
	c.notify(Update{Kind: UpdateTranscript, Transcript: text})
	c.dispatch(text, true, nil, id)
}

func (c *Controller) onCaptureError(id string, err error) {
	err = errorsx.Wrap(err, errorsx.ReasonCaptureError)
	c.log.Warn("capture_error",
		slog.String("session_id", id),
		slog.String("error", err.Error()))
	c.record(metrics.EventCaptureError, id, map[string]any{"error": err.Error()})
	c.notifyError(err)
	c.cancelSession()
	if c.fsm.Mode() != ModeIdle {
		_ = c.fsm.Transition(ModeIdle, "capture_error")
	}
}

func (c *Controller) onEnded(id string) {
	c.session = nil
	c.sessionID = ""
	c.record(metrics.EventCaptureEnded, id, nil)
	switch c.fsm.Mode() {
	case ModeListeningContinuous:
		if err := c.beginCapture("restart"); err != nil {
			_ = c.fsm.Transition(ModeIdle, "restart_failed")
		}
	case ModeListeningOnce:
		_ = c.fsm.Transition(ModeIdle, "session_ended")
	}
}

type sequence struct {
	seq       uint64
	id        int64
	at        time.Time
	text      string
	target    string
	autoSpeak bool
	reply     chan<- string
	sessionID string
}

// dispatch starts one translate sequence. The target language and the
// exchange id are fixed here, not when the response arrives.
func (c *Controller) dispatch(text string, autoSpeak bool, reply chan<- string, sessionID string) {
	if sessionID == "" {
		// typed text gets its own trace
		sessionID = uuid.NewString()
	}
	c.dispatched++
	id, at := c.ids.Next()
	s := sequence{
		seq:       c.dispatched,
		id:        id,
		at:        at,
		text:      text,
		target:    c.target,
		autoSpeak: autoSpeak,
		reply:     reply,
		sessionID: sessionID,
	}
	c.admit()
	go func() {
		out, err := c.translator.TranslateDetailed(metrics.WithTraceID(c.ctx, s.sessionID), s.text, s.target)
		committed := c.post(func() {
			defer c.settle()
			c.commit(s, out, err)
		})
		if !committed {
			c.settle()
			if s.reply != nil {
				s.reply <- out
			}
		}
	}()
}

// commit records a finished sequence. A sequence older than the one on
// display is stale: it is kept in history but neither shown nor spoken.
func (c *Controller) commit(s sequence, out string, err error) {
	if err != nil {
		c.notifyError(err)
	}
	stale := s.seq < c.displayed
	if !stale {
		c.displayed = s.seq
		c.translation = out
		c.notify(Update{Kind: UpdateTranslation, Translation: out, Target: s.target})
	}

	ex := history.Exchange{
		ID:             s.id,
		SourceText:     s.text,
		TargetLanguage: s.target,
		TranslatedText: out,
		CreatedAt:      s.at.UTC(),
	}
	if perr := c.ledger.Append(context.Background(), ex); perr != nil {
		c.notifyError(perr)
	}

	if !stale && s.autoSpeak && out != "" && c.speaker != nil {
		c.speaker.Speak(out, languages.Resolve(s.target))
	}
	if stale {
		c.log.Debug("stale_translation_recorded",
			slog.Uint64("seq", s.seq),
			slog.Uint64("displayed_seq", c.displayed))
	}
	c.record(metrics.EventExchangeCommitted, s.sessionID, map[string]any{
		"exchange_id": s.id,
		"stale":       stale,
		"empty":       out == "",
	})
	c.notify(Update{Kind: UpdateExchange, Exchange: &ex, Stale: stale, Target: s.target})
	if s.reply != nil {
		s.reply <- out
	}
}

func (c *Controller) onModeChange(change StateChange) {
	c.log.Info("mode_changed",
		slog.String("from", change.From.String()),
		slog.String("to", change.To.String()),
		slog.String("reason", change.Reason))
	c.observer.RecordEvent(metrics.MetricsEvent{
		Name: metrics.EventModeChanged,
		Time: change.Timestamp,
		Tags: map[string]string{
			metrics.TagComponent: "pipeline",
			metrics.TagMode:      change.To.String(),
		},
		Fields: map[string]any{"from": change.From.String(), "reason": change.Reason},
	})
	for _, l := range c.listeners {
		l.OnStateChange(change)
	}
}

func (c *Controller) notify(u Update) {
	for _, l := range c.listeners {
		l.OnUpdate(u)
	}
}

func (c *Controller) notifyError(err error) {
	c.notify(Update{Kind: UpdateError, ErrorKind: errorsx.KindOf(err), Error: err.Error()})
}

func (c *Controller) record(name, sessionID string, fields map[string]any) {
	tags := map[string]string{
		metrics.TagComponent: "pipeline",
		metrics.TagTarget:    c.target,
	}
	if sessionID != "" {
		tags[metrics.TagSessionID] = sessionID
		tags[metrics.TagTraceID] = sessionID
	}
	c.observer.RecordEvent(metrics.MetricsEvent{
		Name:   name,
		Time:   time.Now(),
		Tags:   tags,
		Fields: fields,
	})
}
