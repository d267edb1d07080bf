// Package mainlib holds the process setup shared by commands: logging and the default HTTP client.
package mainlib

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"go.senan.xyz/coverfetch"
	"go.senan.xyz/coverfetch/clientutil"
)

// Logging registers -log-level and -log-format, and installs a default logger on stderr
// once flags are parsed. Stdout is left for command output and the plugin protocol.
// The returned exit func exits 1 if anything was logged at error level.
func Logging() (exit func()) {
	level := new(slog.LevelVar)
	format := logFormatText
	flag.TextVar(level, "log-level", level, "Set the logging level")
	flag.Var(&format, "log-format", `Log format, "text" or "json"`)

	var errors atomic.Int64
	slog.SetDefault(slog.New(&countingHandler{
		Handler: lazyHandler{level: level, format: &format},
		errors:  &errors,
	}))
	slog.SetLogLoggerLevel(slog.LevelError)

	return func() {
		if errors.Load() > 0 {
			os.Exit(1)
		}
		os.Exit(0)
	}
}

type logFormat string

const (
	logFormatText logFormat = "text"
	logFormatJSON logFormat = "json"
)

func (f *logFormat) Set(v string) error {
	switch logFormat(v) {
	case logFormatText, logFormatJSON:
		*f = logFormat(v)
		return nil
	}
	return fmt.Errorf("unknown log format %q", v)
}
func (f *logFormat) String() string { return string(*f) }

// lazyHandler picks its handler per record, since -log-format is only known after the
// logger is installed.
type lazyHandler struct {
	level  *slog.LevelVar
	format *logFormat
	wrap   []func(slog.Handler) slog.Handler
}

func (h lazyHandler) handler() slog.Handler {
	opts := &slog.HandlerOptions{Level: h.level}
	var r slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if *h.format == logFormatJSON {
		r = slog.NewJSONHandler(os.Stderr, opts)
	}
	for _, w := range h.wrap {
		r = w(r)
	}
	return r
}

func (h lazyHandler) Enabled(_ context.Context, l slog.Level) bool { return l >= h.level.Level() }
func (h lazyHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.handler().Handle(ctx, r)
}
func (h lazyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.with(func(n slog.Handler) slog.Handler { return n.WithAttrs(attrs) })
}
func (h lazyHandler) WithGroup(name string) slog.Handler {
	return h.with(func(n slog.Handler) slog.Handler { return n.WithGroup(name) })
}
func (h lazyHandler) with(w func(slog.Handler) slog.Handler) lazyHandler {
	h.wrap = append(h.wrap[:len(h.wrap):len(h.wrap)], w)
	return h
}

// countingHandler counts error records, including those from derived loggers.
type countingHandler struct {
	slog.Handler
	errors *atomic.Int64
}

func (h *countingHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		h.errors.Add(1)
	}
	return h.Handler.Handle(ctx, r)
}
func (h *countingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &countingHandler{Handler: h.Handler.WithAttrs(attrs), errors: h.errors}
}
func (h *countingHandler) WithGroup(name string) slog.Handler {
	return &countingHandler{Handler: h.Handler.WithGroup(name), errors: h.errors}
}

const (
	connectTimeout = 15 * time.Second
	readTimeout    = 10 * time.Second
)

// WrapClient sets the default transport to one that logs requests and identifies us to
// MusicBrainz and the Cover Art Archive. Call after flags are parsed so -log-level applies.
func WrapClient() {
	chain := clientutil.Chain(
		clientutil.WithLogging(slog.Default()),
		clientutil.WithUserAgent(coverfetch.UserAgent),
	)
	http.DefaultTransport = chain(clientutil.NewTransport(connectTimeout, readTimeout))
}
