package logging

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// Redacted replaces the value of credential attributes.
const Redacted = "[REDACTED]"

// sensitiveKeys are attribute keys whose values never reach a log sink.
var sensitiveKeys = map[string]bool{
	"password":      true,
	"passphrase":    true,
	"token":         true,
	"authorization": true,
	"pfx":           true,
	"privatepem":    true,
	"key":           true,
}

func redactCredentials(_ []string, a slog.Attr) slog.Attr {
	if sensitiveKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, Redacted)
	}
	return a
}

// teeHandler sends records to the console handler and to a JSON file
// handler. Each side filters by its own level, so a file can keep SOAP
// debug traces while the console stays at info.
type teeHandler struct {
	console slog.Handler
	file    slog.Handler
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.console.Enabled(ctx, level) || h.file.Enabled(ctx, level)
}

// Handle writes to both sides. A failing file write does not stop the
// console record; both errors are reported.
func (h *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	if h.console.Enabled(ctx, r.Level) {
		errs = append(errs, h.console.Handle(ctx, r.Clone()))
	}
	if h.file.Enabled(ctx, r.Level) {
		errs = append(errs, h.file.Handle(ctx, r))
	}
	return errors.Join(errs...)
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &teeHandler{console: h.console.WithAttrs(attrs), file: h.file.WithAttrs(attrs)}
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	return &teeHandler{console: h.console.WithGroup(name), file: h.file.WithGroup(name)}
}
