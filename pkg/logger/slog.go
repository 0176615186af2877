package logger

import (
	"context"
	"log/slog"
	"time"
)

// Handler returns a slog.Handler that writes to l's sinks. Attributes become
// extra fields and groups are flattened into dotted keys.
func (l *Logger) Handler() slog.Handler {
	return &slogHandler{logger: l}
}

// Slog returns a *slog.Logger backed by Handler.
func (l *Logger) Slog() *slog.Logger {
	return slog.New(l.Handler())
}

type slogHandler struct {
	logger *Logger
	prefix string
	attrs  Fields
}

func (h *slogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.logger.core.enabled(Level(level))
}

func (h *slogHandler) Handle(_ context.Context, r slog.Record) error {
	fields := make(Fields, len(h.attrs)+r.NumAttrs())
	for k, v := range h.attrs {
		fields[k] = v
	}
	r.Attrs(func(a slog.Attr) bool {
		addAttr(fields, h.prefix, a)
		return true
	})

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	h.logger.core.write(&Record{
		Time:    ts,
		Level:   Level(r.Level),
		Logger:  h.logger.core.name,
		Message: r.Message,
		Source:  sourceFromPC(r.PC),
		Extra:   merge(h.logger.fields, fields),
	})

	return nil
}

func (h *slogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}

	fields := make(Fields, len(h.attrs)+len(attrs))
	for k, v := range h.attrs {
		fields[k] = v
	}
	for _, a := range attrs {
		addAttr(fields, h.prefix, a)
	}

	return &slogHandler{logger: h.logger, prefix: h.prefix, attrs: fields}
}

func (h *slogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	return &slogHandler{logger: h.logger, prefix: h.prefix + name + ".", attrs: h.attrs}
}

func addAttr(fields Fields, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		if len(group) == 0 {
			return
		}
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, ga := range group {
			addAttr(fields, prefix, ga)
		}
		return
	}

	fields[prefix+a.Key] = a.Value.Any()
}
