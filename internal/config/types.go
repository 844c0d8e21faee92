package config

import (
	"log/slog"
	"time"
)

type Config struct {
	MediaPath    string        // container file with video and optional audio
	PCMPath      string        // raw s16le stereo 44.1k fallback track
	AudioOut     string        // where the mixed stream goes; empty discards it
	PlayDuration time.Duration // 0 plays until the video ends or a signal arrives
	VideoFPS     int
	LogLevel     slog.Level
}
