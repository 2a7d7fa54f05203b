// Package log provides structured logging (slog) for code running inside
// the interop libraries, where there is no host-provided logger.
//
// In the WASM guest, records are serialized and handed to the host through
// the interop_host.log_message import. In the native library they are
// written as JSON lines to stderr.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"slices"
)

// GuestHandler implements slog.Handler for the library side of the boundary.
type GuestHandler struct {
	opts   handlerConfig
	attrs  []slog.Attr
	groups []string
}

// HandlerOption configures the GuestHandler.
type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	writer    io.Writer
	level     slog.Leveler
	addSource bool
}

func defaultHandlerConfig() handlerConfig {
	return handlerConfig{
		level:  slog.LevelInfo,
		writer: os.Stderr,
	}
}

// WithLevel sets the minimum log level to report.
// Records below this level are dropped before serialization.
func WithLevel(level slog.Leveler) HandlerOption {
	return func(c *handlerConfig) {
		c.level = level
	}
}

// WithSource enables reporting of source location (file/line).
func WithSource(enabled bool) HandlerOption {
	return func(c *handlerConfig) {
		c.addSource = enabled
	}
}

// WithWriter sets where records go when there is no host to forward to.
func WithWriter(w io.Writer) HandlerOption {
	return func(c *handlerConfig) {
		c.writer = w
	}
}

// NewHandler creates a new GuestHandler with the given options.
func NewHandler(opts ...HandlerOption) *GuestHandler {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &GuestHandler{opts: cfg}
}

// Install makes a GuestHandler the default slog handler.
func Install(opts ...HandlerOption) {
	slog.SetDefault(slog.New(NewHandler(opts...)))
}

// Enabled reports whether the handler handles records at the given level.
func (h *GuestHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.level.Level()
}

// WithAttrs returns a new GuestHandler that includes the given attributes.
func (h *GuestHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.attrs = slices.Clone(h.attrs)
	for _, a := range attrs {
		clone.attrs = append(clone.attrs, h.qualify(a))
	}
	return &clone
}

// WithGroup returns a new GuestHandler that prefixes later keys with name.
func (h *GuestHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(slices.Clone(h.groups), name)
	return &clone
}

func (h *GuestHandler) qualify(a slog.Attr) slog.Attr {
	for i := len(h.groups) - 1; i >= 0; i-- {
		a.Key = h.groups[i] + "." + a.Key
	}
	return a
}

// wire converts a record, including accumulated attributes, to its wire form.
func (h *GuestHandler) wire(record slog.Record) LogMessageWire {
	msg := LogMessageWire{
		Level:     record.Level.String(),
		Message:   record.Message,
		Timestamp: record.Time,
	}
	if h.opts.addSource {
		msg.Source = sourceOf(record)
	}
	for _, a := range h.attrs {
		msg.Attrs = append(msg.Attrs, toLogAttrWire(a))
	}
	record.Attrs(func(attr slog.Attr) bool {
		msg.Attrs = append(msg.Attrs, toLogAttrWire(h.qualify(attr)))
		return true
	})
	return msg
}
