package mock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harunnryd/voxlate/pkg/adapters/stt"
	"github.com/harunnryd/voxlate/pkg/frames"
)

// Result scripts the outcome of one capture session.
type Result struct {
	Text  string
	Err   error
	Delay time.Duration
	// Hold keeps the session open until Deliver, Fail or Cancel is called.
	Hold bool
}

type STTConfig struct {
	// Script is consumed one entry per session. Once exhausted, sessions hold.
	Script      []Result
	Unsupported bool
}

// Recognizer is a scripted stt.Recognizer that also counts concurrency.
type Recognizer struct {
	mu        sync.Mutex
	cfg       STTConfig
	next      int
	attempts  int
	begins    int
	active    int
	maxActive int
	started   chan *Session
	hints     []string
}

func NewRecognizer(cfg STTConfig) *Recognizer {
	return &Recognizer{cfg: cfg, started: make(chan *Session, 64)}
}

func (r *Recognizer) Name() string { return "mock_stt" }

func (r *Recognizer) Begin(ctx context.Context, cfg stt.Config) (stt.Session, error) {
	r.mu.Lock()
	r.attempts++
	if r.cfg.Unsupported {
		r.mu.Unlock()
		return nil, stt.ErrUnsupported
	}
	res := Result{Hold: true}
	if r.next < len(r.cfg.Script) {
		res = r.cfg.Script[r.next]
		r.next++
	}
	r.begins++
	r.active++
	if r.active > r.maxActive {
		r.maxActive = r.active
	}
	r.hints = append(r.hints, cfg.LanguageHint)
	r.mu.Unlock()

	id := cfg.SessionID
	if id == "" {
		id = uuid.NewString()
	}
	s := &Session{
		id:     id,
		out:    make(chan frames.Frame, 4),
		parent: r,
		meta:   map[string]string{frames.MetaSource: "mock", frames.MetaLanguage: cfg.LanguageHint},
	}
	select {
	case r.started <- s:
	default:
	}
	if !res.Hold {
		go s.play(ctx, res)
	}
	return s, nil
}

// Begins reports how many sessions were started.
func (r *Recognizer) Begins() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.begins
}

// Attempts reports how many times Begin was called, including failures.
func (r *Recognizer) Attempts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts
}

// Active reports how many sessions are open right now.
func (r *Recognizer) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// MaxActive reports the highest number of simultaneously open sessions.
func (r *Recognizer) MaxActive() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxActive
}

// Hints returns the language hints passed to Begin, in order.
func (r *Recognizer) Hints() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.hints...)
}

// NextSession waits for the next session started by Begin.
func (r *Recognizer) NextSession(ctx context.Context) (*Session, error) {
	select {
	case s := <-r.started:
		return s, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Recognizer) release() {
	r.mu.Lock()
	r.active--
	r.mu.Unlock()
}

// Session is a mock capture session driven by its script or by the test.
type Session struct {
	id     string
	out    chan frames.Frame
	parent *Recognizer
	meta   map[string]string

	mu     sync.Mutex
	result bool
	closed bool
}

func (s *Session) ID() string                  { return s.id }
func (s *Session) Frames() <-chan frames.Frame { return s.out }

// Deliver emits a final transcript and ends the session.
func (s *Session) Deliver(text string) {
	s.finish(frames.NewTranscriptFrame(s.id, text, s.meta))
}

// Emit sends a final transcript but leaves the session open.
func (s *Session) Emit(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.result {
		return
	}
	s.result = true
	s.out <- frames.NewTranscriptFrame(s.id, text, s.meta)
}

// Fail emits a capture error and ends the session.
func (s *Session) Fail(err error) {
	s.finish(frames.NewErrorFrame(s.id, err, s.meta))
}

// End closes the session without a result.
func (s *Session) End() {
	s.finish(nil)
}

func (s *Session) Cancel() error {
	s.finish(nil)
	return nil
}

func (s *Session) play(ctx context.Context, res Result) {
	if res.Delay > 0 {
		t := time.NewTimer(res.Delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			s.End()
			return
		}
	}
	if res.Err != nil {
		s.Fail(res.Err)
		return
	}
	s.Deliver(res.Text)
}

func (s *Session) finish(f frames.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if f != nil && !s.result {
		s.result = true
		s.out <- f
	}
	s.closed = true
	s.parent.release()
	s.out <- frames.NewEndedFrame(s.id, s.meta)
	close(s.out)
}

var (
	_ stt.Recognizer = (*Recognizer)(nil)
	_ stt.Session    = (*Session)(nil)
)
