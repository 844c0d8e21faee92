package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"MEDIA_PATH", "PCM_PATH", "AUDIO_OUT", "PLAY_DURATION", "VIDEO_FPS", "LOG_LEVEL", "DEBUG"} {
		t.Setenv(k, "")
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, &Config{
		MediaPath: "demo.mp4",
		PCMPath:   "demo.pcm",
		VideoFPS:  30,
		LogLevel:  slog.LevelInfo,
	}, cfg)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("MEDIA_PATH", "/media/clip.mkv")
	t.Setenv("PCM_PATH", "/media/bed.pcm")
	t.Setenv("AUDIO_OUT", "/tmp/out.pcm")
	t.Setenv("PLAY_DURATION", "90s")
	t.Setenv("VIDEO_FPS", "25")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("DEBUG", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "/media/clip.mkv", cfg.MediaPath)
	require.Equal(t, "/media/bed.pcm", cfg.PCMPath)
	require.Equal(t, "/tmp/out.pcm", cfg.AudioOut)
	require.Equal(t, 90*time.Second, cfg.PlayDuration)
	require.Equal(t, 25, cfg.VideoFPS)
	require.Equal(t, slog.LevelWarn, cfg.LogLevel)

	t.Setenv("DEBUG", "1")
	cfg, err = LoadConfig()
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoadConfigRejects(t *testing.T) {
	for _, tc := range []struct {
		key, val string
	}{
		{"VIDEO_FPS", "0"},
		{"VIDEO_FPS", "fast"},
		{"PLAY_DURATION", "-1s"},
		{"PLAY_DURATION", "forever"},
		{"LOG_LEVEL", "loud"},
	} {
		t.Run(tc.key+"="+tc.val, func(t *testing.T) {
			t.Setenv("DEBUG", "")
			t.Setenv(tc.key, tc.val)
			_, err := LoadConfig()
			var cerr ErrConfig
			require.ErrorAs(t, err, &cerr)
		})
	}
}
