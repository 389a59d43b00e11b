package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"golang.org/x/term"
)

const (
	appTag     = "[Taker-Mine]"
	timeLayout = "2006-01-02 15:04:05"
)

// createHandler creates the appropriate slog.Handler based on format
func createHandler(format string, level slog.Level, output io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevel,
	}

	switch format {
	case "json":
		return slog.NewJSONHandler(output, opts)
	case "color":
		if isTerminal(output) {
			return NewColorHandler(output, opts)
		}
		// Fall back to text if not a terminal
		return slog.NewTextHandler(output, opts)
	case "text":
		return slog.NewTextHandler(output, opts)
	default:
		if isTerminal(output) {
			return NewColorHandler(output, opts)
		}
		return slog.NewTextHandler(output, opts)
	}
}

// replaceLevel names LevelSuccess in the built-in text and JSON handlers.
func replaceLevel(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.LevelKey {
		if level, ok := a.Value.Any().(slog.Level); ok {
			a.Value = slog.StringValue(levelName(level))
		}
	}
	return a
}

// isTerminal checks if the writer is a terminal
func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

// ColorHandler renders records as
//
//	[Taker-Mine] [2006-01-02 15:04:05] [INFO   ] message key=value ...
//
// with the level tag and attribute values colored by level.
type ColorHandler struct {
	opts   *slog.HandlerOptions
	output io.Writer
	mu     *sync.Mutex
	attrs  []slog.Attr
	group  string
}

// NewColorHandler creates a new ColorHandler
func NewColorHandler(output io.Writer, opts *slog.HandlerOptions) *ColorHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &ColorHandler{
		opts:   opts,
		output: output,
		mu:     &sync.Mutex{},
	}
}

// Enabled reports whether the handler handles records at the given level
func (h *ColorHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

// Handle handles the Record with color-coded output
func (h *ColorHandler) Handle(_ context.Context, r slog.Record) error {
	paint := levelColor(r.Level)

	var b strings.Builder
	b.WriteString(color.HiGreenString(appTag))
	b.WriteByte(' ')
	b.WriteString(color.HiBlackString("[%s]", r.Time.Format(timeLayout)))
	b.WriteByte(' ')
	b.WriteString(paint.Sprintf("[%-7s]", levelName(r.Level)))
	b.WriteByte(' ')
	b.WriteString(r.Message)

	write := func(prefix string, a slog.Attr) {
		a.Value = a.Value.Resolve()
		if a.Equal(slog.Attr{}) {
			return
		}
		fmt.Fprintf(&b, " %s%s=%s", prefix, a.Key, paint.Sprint(a.Value.String()))
	}
	// h.attrs already carry their group prefix
	for _, a := range h.attrs {
		write("", a)
	}
	prefix := ""
	if h.group != "" {
		prefix = h.group + "."
	}
	r.Attrs(func(a slog.Attr) bool {
		write(prefix, a)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.output, b.String())
	return err
}

// WithAttrs returns a new Handler with additional attributes
func (h *ColorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	next.attrs = append(next.attrs, h.attrs...)
	for _, a := range attrs {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		next.attrs = append(next.attrs, a)
	}
	return &next
}

// WithGroup returns a new Handler with the given group
func (h *ColorHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	if h.group != "" {
		next.group = h.group + "." + name
	} else {
		next.group = name
	}
	return &next
}

// levelColor returns the palette for a level
func levelColor(level slog.Level) *color.Color {
	switch {
	case level < slog.LevelInfo:
		return color.New(color.FgMagenta)
	case level == LevelSuccess:
		return color.New(color.FgGreen)
	case level < slog.LevelWarn:
		return color.New(color.FgCyan)
	case level < slog.LevelError:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}
