package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/muesli/termenv"
	"go.trai.ch/sift/internal/ui/output"
	"go.trai.ch/sift/internal/ui/style"
)

// PrettyHandler is a slog.Handler that writes one colored line per record.
//
// Attributes are rendered as key=value with groups flattened into dotted
// keys. An error value is followed by the zerr metadata of its chain, so a
// failed checkpoint logged as "err", err shows up as err="..." err.path=...
type PrettyHandler struct {
	out   *termenv.Output
	level slog.Leveler
	// prefix holds the attrs added by WithAttrs, already formatted.
	prefix []string
	group  string
}

// NewPrettyHandler creates a PrettyHandler writing to w.
func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	if w == nil {
		w = os.Stderr
	}

	var level slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}

	return &PrettyHandler{
		out:   output.New(w),
		level: level,
	}
}

// Enabled reports whether the handler handles records at the given level.
func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and writes the record.
//
//nolint:gocritic // slog.Handler interface requires slog.Record by value
func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	glyph, color := decoration(r.Level)

	var b strings.Builder
	if glyph != "" {
		b.WriteString(glyph + " ")
	}
	b.WriteString(r.Message)

	parts := slices.Clone(h.prefix)
	r.Attrs(func(attr slog.Attr) bool {
		parts = append(parts, formatAttr(h.group, attr)...)
		return true
	})
	for _, part := range parts {
		b.WriteString(" " + part)
	}

	styled := h.out.String(b.String()).Foreground(color)
	_, err := h.out.WriteString(styled.String() + "\n")
	return err
}

// WithAttrs returns a Handler with attrs appended.
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := h.clone()
	for _, attr := range attrs {
		c.prefix = append(c.prefix, formatAttr(h.group, attr)...)
	}
	return c
}

// WithGroup returns a Handler that prefixes attribute keys with name.
func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := h.clone()
	c.group = joinKey(h.group, name)
	return c
}

func (h *PrettyHandler) clone() *PrettyHandler {
	c := *h
	c.prefix = slices.Clip(h.prefix)
	return &c
}

func decoration(level slog.Level) (string, termenv.Color) {
	switch {
	case level >= slog.LevelError:
		return style.Cross, termenv.RGBColor(string(style.Red))
	case level >= slog.LevelWarn:
		return style.Warning, termenv.RGBColor(string(style.Yellow))
	case level < slog.LevelInfo:
		return style.Tilde, termenv.RGBColor(string(style.Muted))
	default:
		return "", termenv.RGBColor(string(style.Muted))
	}
}

// formatAttr renders attr as one or more key=value parts.
func formatAttr(group string, attr slog.Attr) []string {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return nil
	}

	key := joinKey(group, attr.Key)
	switch attr.Value.Kind() {
	case slog.KindGroup:
		var parts []string
		for _, a := range attr.Value.Group() {
			parts = append(parts, formatAttr(key, a)...)
		}
		return parts
	case slog.KindAny:
		if err, ok := attr.Value.Any().(error); ok {
			parts := []string{key + "=" + quoteValue(err.Error())}
			for _, a := range errorMetadata(err) {
				parts = append(parts, formatAttr(key, a)...)
			}
			return parts
		}
	}
	return []string{key + "=" + quoteValue(attr.Value.String())}
}

// errorMetadata flattens the zerr metadata of err's chain into attrs, outer
// layers first and keys sorted within a layer.
func errorMetadata(err error) []slog.Attr {
	var attrs []slog.Attr
	for _, entry := range collectErrorEntries(err) {
		for _, k := range slices.Sorted(maps.Keys(entry.Metadata)) {
			attrs = append(attrs, slog.String(k, fmt.Sprint(entry.Metadata[k])))
		}
	}
	return attrs
}

func joinKey(group, key string) string {
	switch {
	case group == "":
		return key
	case key == "":
		return group
	default:
		return group + "." + key
	}
}

// quoteValue quotes values that would otherwise break key=value parsing,
// such as paths with spaces.
func quoteValue(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\r\n\"=") {
		return strconv.Quote(s)
	}
	return s
}
