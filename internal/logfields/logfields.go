// Package logfields holds the canonical log keys and the trace level shared
// by the pipeline packages.
package logfields

import "log/slog"

// LevelTrace sits below slog.LevelDebug and is used for per-file chatter.
const LevelTrace = slog.LevelDebug - 4

const (
	KeyPath     = "path"
	KeyOutput   = "output"
	KeyHandler  = "handler"
	KeyStage    = "stage"
	KeyError    = "error"
	KeyDuration = "duration_ms"
)

func Path(p string) slog.Attr       { return slog.String(KeyPath, p) }
func Output(p string) slog.Attr     { return slog.String(KeyOutput, p) }
func Handler(n string) slog.Attr    { return slog.String(KeyHandler, n) }
func Stage(s string) slog.Attr      { return slog.String(KeyStage, s) }
func DurationMS(ms int64) slog.Attr { return slog.Int64(KeyDuration, ms) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

// ParseLevel accepts the slog level names plus "TRACE".
func ParseLevel(s string) (slog.Level, error) {
	if s == "TRACE" || s == "trace" {
		return LevelTrace, nil
	}
	var l slog.Level
	err := l.UnmarshalText([]byte(s))
	return l, err
}

// ReplaceLevel renders LevelTrace as "TRACE" instead of "DEBUG-4". It is
// meant for slog.HandlerOptions.ReplaceAttr.
func ReplaceLevel(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
		a.Value = slog.StringValue("TRACE")
	}
	return a
}
