package observers

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harunnryd/voxlate/pkg/metrics"
	"github.com/harunnryd/voxlate/pkg/redact"
)

// maxOpenTimelines bounds file handles in long continuous sessions, where
// every utterance starts a new trace.
const maxOpenTimelines = 32

// TimelineObserver appends one JSONL line per event to <dir>/<trace>.jsonl.
// A trace file is closed once its exchange is committed or its capture
// failed; later events for the same trace reopen it in append mode.
type TimelineObserver struct {
	dir string

	mu     sync.Mutex
	open   map[string]*traceFile
	starts map[string]time.Time
	order  []string
}

type traceFile struct {
	f *os.File
}

type timelineEvent struct {
	Time      time.Time         `json:"time"`
	ElapsedMS int64             `json:"elapsed_ms"`
	Event     string            `json:"event"`
	Value     float64           `json:"value,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
	TraceID   string            `json:"trace_id,omitempty"`
	Tags      map[string]string `json:"tags,omitempty"`
	Fields    map[string]any    `json:"fields,omitempty"`
}

func NewTimelineObserver(dir string) *TimelineObserver {
	return &TimelineObserver{
		dir:    dir,
		open:   make(map[string]*traceFile),
		starts: make(map[string]time.Time),
	}
}

func (o *TimelineObserver) RecordEvent(ev metrics.MetricsEvent) {
	sessionID, traceID := ev.Tags[metrics.TagSessionID], ev.Tags[metrics.TagTraceID]
	name := traceName(traceID, sessionID)
	if name == "" || strings.TrimSpace(o.dir) == "" {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	start, ok := o.starts[name]
	if !ok {
		start = ev.Time
		o.starts[name] = start
	}
	line, err := json.Marshal(timelineEvent{
		Time:      ev.Time.UTC(),
		ElapsedMS: ev.Time.Sub(start).Milliseconds(),
		Event:     ev.Name,
		Value:     ev.Value,
		SessionID: sessionID,
		TraceID:   traceID,
		Tags:      ev.Tags,
		Fields:    sanitizeFields(ev.Fields),
	})
	if err != nil {
		return
	}
	tf := o.fileLocked(name)
	if tf == nil {
		return
	}
	_, _ = tf.f.Write(append(line, '\n'))

	switch ev.Name {
	case metrics.EventExchangeCommitted, metrics.EventCaptureError:
		o.closeLocked(name)
		delete(o.starts, name)
	}
}

// Close closes every open trace file.
func (o *TimelineObserver) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	var err error
	for name := range o.open {
		err = errors.Join(err, o.closeLocked(name))
	}
	o.order = nil
	clear(o.starts)
	return err
}

func (o *TimelineObserver) fileLocked(name string) *traceFile {
	if tf := o.open[name]; tf != nil {
		return tf
	}
	if err := os.MkdirAll(o.dir, 0o755); err != nil {
		return nil
	}
	f, err := os.OpenFile(filepath.Join(o.dir, name+".jsonl"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil
	}
	for len(o.order) >= maxOpenTimelines {
		oldest := o.order[0]
		o.closeLocked(oldest)
		delete(o.starts, oldest)
	}
	tf := &traceFile{f: f}
	o.open[name] = tf
	o.order = append(o.order, name)
	return tf
}

func (o *TimelineObserver) closeLocked(name string) error {
	tf := o.open[name]
	delete(o.open, name)
	for i, n := range o.order {
		if n == name {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
	if tf == nil {
		return nil
	}
	return tf.f.Close()
}

// openCount reports how many trace files are open.
func (o *TimelineObserver) openCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.open)
}

// traceName picks the trace id, falling back to the session id, and maps it
// to a safe file name.
func traceName(traceID, sessionID string) string {
	id := strings.TrimSpace(traceID)
	if id == "" {
		id = strings.TrimSpace(sessionID)
	}
	if id == "" {
		return ""
	}
	return strings.Map(func(r rune) rune {
		if r == '-' || r == '_' || r == '.' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, id)
}

// sanitizeFields redacts free-form string fields such as transcripts and
// translations.
func sanitizeFields(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		if s, ok := v.(string); ok {
			v = redact.Text(s)
		}
		out[k] = v
	}
	return out
}

var _ metrics.Observer = (*TimelineObserver)(nil)
