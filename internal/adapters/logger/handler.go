package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/muesli/termenv"
	"go.trai.ch/hotload/internal/ui/output"
	"go.trai.ch/hotload/internal/ui/style"
)

// Attribute keys the engine attaches to translation and cache errors. The
// pretty handler gives them a fixed place in the line instead of key=value.
const (
	attrClass    = "class"
	attrHash     = "hash"
	attrExitCode = "exit_code"
	attrStderr   = "stderr"
)

var runAttrKeys = []string{attrClass, attrHash, attrExitCode, attrStderr}

const hashWidth = 12

// PrettyHandler is a slog.Handler that produces human-readable, colored output.
//
// A record about a class is tagged "[Class@hash]", a translator exit code is
// shown as "(exit N)" and captured translator stderr is printed below the
// message behind a gutter.
type PrettyHandler struct {
	out   *termenv.Output
	level slog.Leveler
	attrs []groupedAttr
	group string
}

type groupedAttr struct {
	group string
	attr  slog.Attr
}

// NewPrettyHandler creates a new PrettyHandler writing to w.
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

// Handle formats and outputs the log record.
//
//nolint:gocritic // slog.Handler interface requires slog.Record by value
func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	var l line
	for _, ga := range h.attrs {
		l.add(ga.group, ga.attr)
	}
	r.Attrs(func(attr slog.Attr) bool {
		l.add(h.group, attr)
		return true
	})

	symbol, color := levelStyle(r.Level)
	head, body, _ := strings.Cut(r.Message, "\n")

	var b strings.Builder
	if symbol != "" {
		b.WriteString(symbol + " ")
	}
	if tag := l.tag(); tag != "" {
		b.WriteString(tag + " ")
	}
	b.WriteString(head)
	if l.exitCode != "" {
		b.WriteString(" (exit " + l.exitCode + ")")
	}
	if len(l.rest) > 0 {
		b.WriteString(" " + strings.Join(l.rest, " "))
	}
	if body != "" {
		b.WriteString("\n" + body)
	}
	for _, s := range l.stderr {
		b.WriteString("\n  │ " + s)
	}

	styled := h.out.String(b.String()).Foreground(color)
	_, err := h.out.WriteString(styled.String() + "\n")

	return err
}

// WithAttrs returns a new Handler with the given attributes appended.
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]groupedAttr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	for _, attr := range attrs {
		newAttrs = append(newAttrs, groupedAttr{group: h.group, attr: attr})
	}

	return &PrettyHandler{
		out:   h.out,
		level: h.level,
		attrs: newAttrs,
		group: h.group,
	}
}

// WithGroup returns a new Handler that qualifies later attributes with name.
func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &PrettyHandler{
		out:   h.out,
		level: h.level,
		attrs: h.attrs,
		group: qualify(h.group, name),
	}
}

func levelStyle(level slog.Level) (string, termenv.Color) {
	switch {
	case level >= slog.LevelError:
		return style.Cross, termenv.RGBColor(string(style.Red))
	case level >= slog.LevelWarn:
		return style.Warning, termenv.RGBColor(string(style.Yellow))
	default:
		return "", termenv.RGBColor(string(style.Slate))
	}
}

// line accumulates the attributes of one record.
type line struct {
	class    string
	hash     string
	exitCode string
	stderr   []string
	rest     []string
}

func (l *line) add(group string, attr slog.Attr) {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return
	}

	if attr.Value.Kind() == slog.KindGroup {
		g := group
		if attr.Key != "" {
			g = qualify(group, attr.Key)
		}
		for _, sub := range attr.Value.Group() {
			l.add(g, sub)
		}
		return
	}

	if group == "" {
		switch attr.Key {
		case attrClass:
			l.class = attr.Value.String()
			return
		case attrHash:
			l.hash = shortHash(attr.Value.String())
			return
		case attrExitCode:
			l.exitCode = attr.Value.String()
			return
		case attrStderr:
			if s := strings.TrimRight(attr.Value.String(), "\n"); s != "" {
				l.stderr = append(l.stderr, strings.Split(s, "\n")...)
			}
			return
		}
	}

	l.rest = append(l.rest, qualify(group, attr.Key)+"="+attr.Value.String())
}

func (l *line) tag() string {
	switch {
	case l.class != "" && l.hash != "":
		return "[" + l.class + "@" + l.hash + "]"
	case l.class != "":
		return "[" + l.class + "]"
	case l.hash != "":
		return "[" + l.hash + "]"
	default:
		return ""
	}
}

func qualify(group, key string) string {
	if group == "" {
		return key
	}
	return group + "." + key
}

func shortHash(hash string) string {
	if len(hash) > hashWidth {
		return hash[:hashWidth]
	}
	return hash
}
