package frames

import "time"

type Kind string

const (
	KindTranscript Kind = "transcript"
	KindError      Kind = "error"
	KindEnded      Kind = "ended"
)

const (
	MetaSessionID = "session_id"
	MetaTraceID   = "trace_id"
	MetaLanguage  = "language"
	MetaSource    = "source"
	MetaReason    = "reason"
)

// Frame is one event emitted by a capture session. A session emits exactly
// one TranscriptFrame or ErrorFrame, followed by an EndedFrame.
type Frame interface {
	Kind() Kind
	PTS() int64
	Meta() map[string]string
}

type TranscriptFrame struct {
	pts  int64
	text string
	meta map[string]string
}

func NewTranscriptFrame(sessionID string, text string, meta map[string]string) TranscriptFrame {
	return TranscriptFrame{
		pts:  time.Now().UnixNano(),
		text: text,
		meta: mergeMeta(sessionID, meta),
	}
}

func (t TranscriptFrame) Kind() Kind              { return KindTranscript }
func (t TranscriptFrame) PTS() int64              { return t.pts }
func (t TranscriptFrame) Meta() map[string]string { return cloneMeta(t.meta) }
func (t TranscriptFrame) Text() string            { return t.text }

type ErrorFrame struct {
	pts  int64
	err  error
	meta map[string]string
}

func NewErrorFrame(sessionID string, err error, meta map[string]string) ErrorFrame {
	return ErrorFrame{
		pts:  time.Now().UnixNano(),
		err:  err,
		meta: mergeMeta(sessionID, meta),
	}
}

func (e ErrorFrame) Kind() Kind              { return KindError }
func (e ErrorFrame) PTS() int64              { return e.pts }
func (e ErrorFrame) Meta() map[string]string { return cloneMeta(e.meta) }
func (e ErrorFrame) Err() error              { return e.err }

type EndedFrame struct {
	pts  int64
	meta map[string]string
}

func NewEndedFrame(sessionID string, meta map[string]string) EndedFrame {
	return EndedFrame{
		pts:  time.Now().UnixNano(),
		meta: mergeMeta(sessionID, meta),
	}
}

func (e EndedFrame) Kind() Kind              { return KindEnded }
func (e EndedFrame) PTS() int64              { return e.pts }
func (e EndedFrame) Meta() map[string]string { return cloneMeta(e.meta) }

// SessionID returns the capture session a frame belongs to.
func SessionID(f Frame) string {
	if f == nil {
		return ""
	}
	return f.Meta()[MetaSessionID]
}

func mergeMeta(sessionID string, meta map[string]string) map[string]string {
	out := make(map[string]string, 1+len(meta))
	for k, v := range meta {
		out[k] = v
	}
	if sessionID != "" {
		out[MetaSessionID] = sessionID
	}
	return out
}

func cloneMeta(meta map[string]string) map[string]string {
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
