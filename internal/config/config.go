package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, ErrConfig("LOG_LEVEL must be one of debug, info, warn, error")
	}
	return l, nil
}

func LoadConfig() (*Config, error) {
	fps, err := strconv.Atoi(getenv("VIDEO_FPS", "30"))
	if err != nil || fps <= 0 {
		return nil, ErrConfig("VIDEO_FPS must be a positive integer")
	}

	dur, err := time.ParseDuration(getenv("PLAY_DURATION", "0s"))
	if err != nil || dur < 0 {
		return nil, ErrConfig("PLAY_DURATION must be a non-negative duration like 30s")
	}

	levelName := getenv("LOG_LEVEL", "info")
	if v := os.Getenv("DEBUG"); v == "1" || strings.EqualFold(v, "true") {
		levelName = "debug"
	}
	level, err := parseLevel(levelName)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		MediaPath:    getenv("MEDIA_PATH", "demo.mp4"),
		PCMPath:      getenv("PCM_PATH", "demo.pcm"),
		AudioOut:     os.Getenv("AUDIO_OUT"),
		PlayDuration: dur,
		VideoFPS:     fps,
		LogLevel:     level,
	}
	return cfg, nil
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }
