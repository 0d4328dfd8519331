package logger

import (
	"context"
	"log/slog"
)

// ContextExtractor pulls one attribute out of a request context, for example
// the client IP or the user a login is being decided for.
type ContextExtractor func(ctx context.Context) (slog.Attr, bool)

// contextHandler appends extracted attributes to every record it handles.
type contextHandler struct {
	slog.Handler
	extractors []ContextExtractor
}

// withContext wraps next. With no usable extractors next is returned as is.
func withContext(next slog.Handler, extractors ...ContextExtractor) slog.Handler {
	var usable []ContextExtractor
	for _, ex := range extractors {
		if ex != nil {
			usable = append(usable, ex)
		}
	}
	if len(usable) == 0 {
		return next
	}
	return &contextHandler{Handler: next, extractors: usable}
}

func (h *contextHandler) Handle(ctx context.Context, rec slog.Record) error {
	for _, ex := range h.extractors {
		if attr, ok := ex(ctx); ok && !attr.Equal(slog.Attr{}) {
			rec.AddAttrs(attr)
		}
	}
	return h.Handler.Handle(ctx, rec)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithAttrs(attrs), extractors: h.extractors}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithGroup(name), extractors: h.extractors}
}
