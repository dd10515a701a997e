// Package logger is the process wide structured logger. It wraps log/slog
// with a colored text handler, a JSON handler and helpers that add the
// fields carried by a LogContext.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// Config holds logger configuration.
type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // text, json
	Output string // stdout, stderr, or file path
}

// sink is where log lines go and how they are rendered.
type sink struct {
	w      io.Writer
	closer io.Closer
	format string
	color  bool
}

var (
	// level is shared by every handler so SetLevel never rebuilds them.
	level = new(slog.LevelVar)

	mu     sync.Mutex
	out    = sink{w: os.Stdout, format: "text"}
	active atomic.Pointer[slog.Logger]
)

func init() {
	out.color = isTerminal(os.Stdout.Fd())
	rebuild()
}

// rebuild installs a logger for out. Callers hold mu, except init.
func rebuild() {
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if out.format == "json" {
		h = slog.NewJSONHandler(out.w, opts)
	} else {
		h = NewTextHandler(out.w, opts, out.color)
	}
	active.Store(slog.New(h))
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug, true
	case "INFO":
		return slog.LevelInfo, true
	case "WARN", "WARNING":
		return slog.LevelWarn, true
	case "ERROR":
		return slog.LevelError, true
	}
	return 0, false
}

func parseFormat(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	return s, s == "text" || s == "json"
}

func openOutput(dest string) (sink, error) {
	switch strings.ToLower(dest) {
	case "", "stdout":
		return sink{w: os.Stdout, color: isTerminal(os.Stdout.Fd())}, nil
	case "stderr":
		return sink{w: os.Stderr, color: isTerminal(os.Stderr.Fd())}, nil
	}
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return sink{}, fmt.Errorf("failed to open log file %q: %w", dest, err)
	}
	return sink{w: f, closer: f}, nil
}

// Init applies cfg. Empty fields keep their current value. Log files are
// opened in append mode and never colored.
func Init(cfg Config) error {
	var lvl slog.Level
	if cfg.Level != "" {
		var ok bool
		if lvl, ok = parseLevel(cfg.Level); !ok {
			return fmt.Errorf("invalid log level %q", cfg.Level)
		}
	}
	format := ""
	if cfg.Format != "" {
		var ok bool
		if format, ok = parseFormat(cfg.Format); !ok {
			return fmt.Errorf("invalid log format %q", cfg.Format)
		}
	}

	mu.Lock()
	defer mu.Unlock()

	if cfg.Output != "" {
		next, err := openOutput(cfg.Output)
		if err != nil {
			return err
		}
		if out.closer != nil {
			_ = out.closer.Close()
		}
		next.format = out.format
		out = next
	}
	if format != "" {
		out.format = format
	}
	if cfg.Level != "" {
		level.Set(lvl)
	}
	rebuild()
	return nil
}

// InitWithWriter sends output to w. Used by tests.
func InitWithWriter(w io.Writer, lvl, format string, color bool) {
	mu.Lock()
	out = sink{w: w, format: out.format, color: color}
	if f, ok := parseFormat(format); ok {
		out.format = f
	}
	rebuild()
	mu.Unlock()

	SetLevel(lvl)
}

// SetLevel changes the minimum level. Unknown levels are ignored.
func SetLevel(s string) {
	if l, ok := parseLevel(s); ok {
		level.Set(l)
	}
}

// SetFormat switches between text and json. Unknown formats are ignored.
func SetFormat(s string) {
	f, ok := parseFormat(s)
	if !ok {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	if out.format != f {
		out.format = f
		rebuild()
	}
}

// Default returns the active slog logger.
func Default() *slog.Logger {
	return active.Load()
}

// With returns a logger that adds args to every record.
func With(args ...any) *slog.Logger {
	return active.Load().With(args...)
}

func Debug(msg string, args ...any) { active.Load().Debug(msg, args...) }
func Info(msg string, args ...any)  { active.Load().Info(msg, args...) }
func Warn(msg string, args ...any)  { active.Load().Warn(msg, args...) }
func Error(msg string, args ...any) { active.Load().Error(msg, args...) }

// DebugCtx logs at debug level, prefixing the fields of ctx's LogContext.
func DebugCtx(ctx context.Context, msg string, args ...any) {
	logCtx(ctx, slog.LevelDebug, msg, args)
}

func InfoCtx(ctx context.Context, msg string, args ...any) {
	logCtx(ctx, slog.LevelInfo, msg, args)
}

func WarnCtx(ctx context.Context, msg string, args ...any) {
	logCtx(ctx, slog.LevelWarn, msg, args)
}

func ErrorCtx(ctx context.Context, msg string, args ...any) {
	logCtx(ctx, slog.LevelError, msg, args)
}

func logCtx(ctx context.Context, lvl slog.Level, msg string, args []any) {
	if ctx == nil {
		ctx = context.Background()
	}
	l := active.Load()
	if !l.Enabled(ctx, lvl) {
		return
	}
	l.Log(ctx, lvl, msg, appendContextFields(ctx, args)...)
}

// appendContextFields puts the LogContext fields ahead of args.
func appendContextFields(ctx context.Context, args []any) []any {
	lc := FromContext(ctx)
	if lc == nil {
		return args
	}

	fields := make([]any, 0, 12+len(args))
	for _, f := range []struct {
		key string
		val any
		set bool
	}{
		{KeyTraceID, lc.TraceID, lc.TraceID != ""},
		{KeySpanID, lc.SpanID, lc.SpanID != ""},
		{KeyPackage, lc.Package, lc.Package != ""},
		{KeyStage, lc.Stage, lc.Stage != ""},
		{KeyRequestID, lc.RequestID, lc.RequestID != 0},
		{KeyPriority, lc.Priority, lc.Priority != 0},
	} {
		if f.set {
			fields = append(fields, f.key, f.val)
		}
	}
	return append(fields, args...)
}

// Debugf, Warnf and Errorf serve printf style callers such as the
// Badger logger adapter.
func Debugf(format string, v ...any) { logf(slog.LevelDebug, format, v) }
func Infof(format string, v ...any)  { logf(slog.LevelInfo, format, v) }
func Warnf(format string, v ...any)  { logf(slog.LevelWarn, format, v) }
func Errorf(format string, v ...any) { logf(slog.LevelError, format, v) }

func logf(lvl slog.Level, format string, v []any) {
	l := active.Load()
	if !l.Enabled(context.Background(), lvl) {
		return
	}
	l.Log(context.Background(), lvl, fmt.Sprintf(format, v...))
}
