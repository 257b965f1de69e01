package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
	"time"
)

// consoleHandler writes one line per record:
//
//	2026-01-02T15:04:05Z INFO matcher (batch 0195f3a2): batch started inputs=3
//
// The component and the batch or request id are lifted out of the attributes
// into the prefix. Attributes added through With are rendered once.
type consoleHandler struct {
	out       *lockedWriter
	level     slog.Leveler
	addSource bool

	group     string
	component string
	scope     string
	attrs     []byte
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) write(p []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := l.w.Write(p)
	return err
}

type linePrefix struct {
	component string
	scope     string
}

func newConsoleHandler(w io.Writer, level slog.Leveler, addSource bool) *consoleHandler {
	return &consoleHandler{out: &lockedWriter{w: w}, level: level, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	prefix := linePrefix{component: h.component, scope: h.scope}
	var tail []byte
	record.Attrs(func(attr slog.Attr) bool {
		tail = appendAttr(tail, h.group, attr, &prefix)
		return true
	})

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	buf := make([]byte, 0, 96+len(h.attrs)+len(tail))
	buf = ts.UTC().AppendFormat(buf, time.RFC3339)
	buf = append(buf, ' ')
	buf = append(buf, levelLabel(record.Level)...)
	buf = append(buf, ' ')
	if prefix.component != "" {
		buf = append(buf, prefix.component...)
		if prefix.scope != "" {
			buf = append(buf, " ("...)
			buf = append(buf, prefix.scope...)
			buf = append(buf, ')')
		}
		buf = append(buf, ": "...)
	}
	if record.Message == "" {
		buf = append(buf, "(no message)"...)
	} else {
		buf = append(buf, record.Message...)
	}
	if h.addSource && record.PC != 0 {
		if src := record.Source(); src != nil {
			buf = append(buf, " ["...)
			buf = append(buf, filepath.Base(src.File)...)
			buf = append(buf, ':')
			buf = strconv.AppendInt(buf, int64(src.Line), 10)
			buf = append(buf, ']')
		}
	}
	buf = append(buf, h.attrs...)
	buf = append(buf, tail...)
	buf = append(buf, '\n')
	return h.out.write(buf)
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.attrs = slices.Clone(h.attrs)
	prefix := linePrefix{component: h.component, scope: h.scope}
	for _, attr := range attrs {
		clone.attrs = appendAttr(clone.attrs, clone.group, attr, &prefix)
	}
	clone.component, clone.scope = prefix.component, prefix.scope
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.group = joinKey(h.group, name)
	return &clone
}

func appendAttr(buf []byte, group string, attr slog.Attr, prefix *linePrefix) []byte {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return buf
	}
	if attr.Value.Kind() == slog.KindGroup {
		inner := group
		if attr.Key != "" {
			inner = joinKey(group, attr.Key)
		}
		for _, member := range attr.Value.Group() {
			buf = appendAttr(buf, inner, member, prefix)
		}
		return buf
	}
	if group == "" {
		switch attr.Key {
		case FieldComponent:
			if prefix.component == "" {
				prefix.component = attr.Value.String()
			}
			return buf
		case FieldBatchID:
			if prefix.scope == "" {
				prefix.scope = "batch " + shortID(attr.Value.String())
			}
			return buf
		case FieldCorrelationID:
			if prefix.scope == "" {
				prefix.scope = "req " + shortID(attr.Value.String())
			}
			return buf
		}
	}
	buf = append(buf, ' ')
	buf = append(buf, joinKey(group, attr.Key)...)
	buf = append(buf, '=')
	return appendValue(buf, attr.Value)
}

func appendValue(buf []byte, v slog.Value) []byte {
	var s string
	switch v.Kind() {
	case slog.KindInt64:
		return strconv.AppendInt(buf, v.Int64(), 10)
	case slog.KindUint64:
		return strconv.AppendUint(buf, v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.AppendFloat(buf, v.Float64(), 'f', -1, 64)
	case slog.KindBool:
		return strconv.AppendBool(buf, v.Bool())
	case slog.KindTime:
		return v.Time().UTC().AppendFormat(buf, time.RFC3339)
	case slog.KindDuration:
		s = v.Duration().String()
	case slog.KindString:
		s = v.String()
	default:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = fmt.Sprint(v.Any())
		}
	}
	if needsQuotes(s) {
		return strconv.AppendQuote(buf, s)
	}
	return append(buf, s...)
}

func joinKey(group, key string) string {
	if group == "" {
		return key
	}
	if key == "" {
		return group
	}
	return group + "." + key
}

func needsQuotes(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' {
			return true
		}
	}
	return false
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
