package stream

import (
	"context"
	"log/slog"
	"strings"

	"github.com/asticode/go-astiav"
)

// RouteLogs sends FFmpeg's log output to slog, dropping anything below level.
func RouteLogs(level slog.Level) {
	astiav.SetLogLevel(astiavLevel(level))
	astiav.SetLogCallback(func(c astiav.Classer, l astiav.LogLevel, fmt, msg string) {
		msg = strings.TrimSpace(msg)
		if msg == "" {
			return
		}
		attrs := []any{"component", "ffmpeg"}
		if c != nil {
			if cl := c.Class(); cl != nil {
				attrs = append(attrs, "class", cl.Name())
			}
		}
		slog.Log(context.Background(), slogLevel(l), msg, attrs...)
	})
}

func astiavLevel(l slog.Level) astiav.LogLevel {
	switch {
	case l <= slog.LevelDebug:
		return astiav.LogLevelDebug
	case l <= slog.LevelInfo:
		return astiav.LogLevelInfo
	case l <= slog.LevelWarn:
		return astiav.LogLevelWarning
	}
	return astiav.LogLevelError
}

func slogLevel(l astiav.LogLevel) slog.Level {
	switch {
	case l <= astiav.LogLevelError:
		return slog.LevelError
	case l <= astiav.LogLevelWarning:
		return slog.LevelWarn
	case l <= astiav.LogLevelInfo:
		return slog.LevelInfo
	}
	return slog.LevelDebug
}
