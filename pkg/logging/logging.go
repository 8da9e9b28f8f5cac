// Package logging builds the slog loggers used by the CLI and carries request
// scoped attributes through a context.
package logging

import (
	"context"
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

type ctxKey string

const slogFields ctxKey = "slog_fields"

// ContextHandler adds any attributes stored with AppendCtx to each record
type ContextHandler struct {
	slog.Handler
}

// Handle adds contextual attributes to the Record before calling the underlying handler
func (h ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs, ok := ctx.Value(slogFields).([]slog.Attr); ok {
		r.AddAttrs(attrs...)
	}
	return h.Handler.Handle(ctx, r)
}

func (h ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return ContextHandler{h.Handler.WithAttrs(attrs)}
}

func (h ContextHandler) WithGroup(name string) slog.Handler {
	return ContextHandler{h.Handler.WithGroup(name)}
}

// AppendCtx returns a copy of parent carrying attr in addition to any attributes already set
func AppendCtx(parent context.Context, attr ...slog.Attr) context.Context {
	if parent == nil {
		parent = context.Background()
	}
	var attrs []slog.Attr
	if v, ok := parent.Value(slogFields).([]slog.Attr); ok {
		attrs = append(attrs, v...)
	}
	attrs = append(attrs, attr...)
	return context.WithValue(parent, slogFields, attrs)
}

// Attrs returns the attributes attached to ctx
func Attrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	attrs, _ := ctx.Value(slogFields).([]slog.Attr)
	return attrs
}

// Logger creates a text or json logger writing to w
func Logger(w io.Writer, json bool, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{
		AddSource: level == slog.LevelDebug,
		Level:     level,
	}
	var h slog.Handler = slog.NewTextHandler(w, opts)
	if json {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(ContextHandler{h})
}

// RotatingFile is a size-rotated log file
func RotatingFile(path string, maxMB, backups int) io.WriteCloser {
	if maxMB <= 0 {
		maxMB = 100
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxMB,
		MaxBackups: backups,
		Compress:   true,
	}
}
