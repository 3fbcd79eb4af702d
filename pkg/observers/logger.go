package observers

import (
	"context"
	"log/slog"
	"sort"

	"github.com/harunnryd/voxlate/pkg/metrics"
)

// LoggerObserver mirrors pipeline events into slog. Capture errors and
// failed translations log at warn, everything else at debug.
type LoggerObserver struct {
	log *slog.Logger
}

func NewLoggerObserver(log *slog.Logger) *LoggerObserver {
	if log == nil {
		log = slog.Default()
	}
	return &LoggerObserver{log: log.With(slog.String("component", "metrics"))}
}

func (o *LoggerObserver) RecordEvent(ev metrics.MetricsEvent) {
	level := eventLevel(ev)
	ctx := context.Background()
	if !o.log.Enabled(ctx, level) {
		return
	}
	attrs := make([]slog.Attr, 0, 2+len(ev.Tags)+len(ev.Fields))
	if ev.Value != 0 {
		attrs = append(attrs, slog.Float64("value", ev.Value))
	}
	keys := make([]string, 0, len(ev.Tags))
	for k := range ev.Tags {
		if k != metrics.TagComponent {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.String(k, ev.Tags[k]))
	}
	for k, v := range sanitizeFields(ev.Fields) {
		attrs = append(attrs, slog.Any(k, v))
	}
	o.log.LogAttrs(ctx, level, ev.Name, attrs...)
}

func eventLevel(ev metrics.MetricsEvent) slog.Level {
	switch ev.Name {
	case metrics.EventCaptureError:
		return slog.LevelWarn
	case metrics.EventTranslationCompleted:
		if ok, present := ev.Fields["ok"].(bool); present && !ok {
			return slog.LevelWarn
		}
	}
	return slog.LevelDebug
}

// MultiObserver fans one event out to several observers.
type MultiObserver []metrics.Observer

func NewMultiObserver(list ...metrics.Observer) MultiObserver {
	return MultiObserver(list)
}

func (m MultiObserver) RecordEvent(ev metrics.MetricsEvent) {
	for _, obs := range m {
		if obs != nil {
			obs.RecordEvent(ev)
		}
	}
}

var (
	_ metrics.Observer = (*LoggerObserver)(nil)
	_ metrics.Observer = MultiObserver(nil)
)
