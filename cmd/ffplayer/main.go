package main

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sonroyaalmerol/ffplayer/internal/config"
	"github.com/sonroyaalmerol/ffplayer/internal/player"
	"github.com/sonroyaalmerol/ffplayer/internal/stream"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))
	stream.RouteLogs(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if cfg.PlayDuration > 0 {
		ctx, cancel = context.WithTimeout(ctx, cfg.PlayDuration)
		defer cancel()
	}

	var out io.Writer = io.Discard
	if cfg.AudioOut != "" {
		f, err := os.Create(cfg.AudioOut)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		out = f
	}

	if err := run(ctx, cfg, out); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cfg *config.Config, out io.Writer) error {
	pcm, _ := player.OpenFileAudioSource(cfg.PCMPath)
	media := stream.Open(cfg.MediaPath)
	if err := media.Status().Err(); err != nil {
		slog.Warn("playing in degraded mode", "err", err)
	}

	mixer := player.NewMixer()
	mixer.SetSources(pcm, media.Audio())
	mixer.Resume()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return audioDevice(gctx, mixer, out) })
	g.Go(func() error { return renderLoop(gctx, media.Video(), cfg.VideoFPS) })
	err := g.Wait()
	if errors.Is(err, errVideoFinished) {
		err = nil
	}

	// the callback must be quiet before any source goes away
	mixer.Pause()
	mixer.Detach()
	if cerr := media.Close(); cerr != nil {
		slog.Warn("closing container failed", "err", cerr)
	}
	_ = pcm.Close()

	slog.Info("playback finished",
		"frames", media.Video().Frames(),
		"routedAudioPackets", media.Video().Routed(),
		"pcm", pcm.Stats(),
		"decoded", statsOf(media.Audio()))
	return err
}

func statsOf(s *player.AudioSource) player.AudioStats {
	if s == nil {
		return player.AudioStats{}
	}
	return s.Stats()
}

// audioDevice stands in for the sound card: one mixer callback per period, on its own
// clock, written to out as s16le.
func audioDevice(ctx context.Context, mixer *player.Mixer, out io.Writer) error {
	callback := mixer.Callback()
	buf := make([]byte, player.PeriodBytes)
	t := time.NewTicker(player.PeriodDuration())
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
		callback(nil, buf, len(buf))
		if _, err := out.Write(buf); err != nil {
			return err
		}
	}
}

// errVideoFinished stops the errgroup once the container has played out.
var errVideoFinished = errors.New("video finished")

// renderLoop uploads one picture per tick. It returns errVideoFinished at the end of the
// container. An inert container never finishes, the PCM track keeps playing until ctx ends.
func renderLoop(ctx context.Context, video *player.VideoSource, fps int) error {
	surface := player.NewPlanarSurface()
	t := time.NewTicker(time.Second / time.Duration(fps))
	defer t.Stop()

	slog.Info("render loop started", "width", video.Width(), "height", video.Height(), "fps", fps)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
		if video.Read(surface) || !video.Done() {
			continue
		}
		if video.Frames() == 0 {
			slog.Info("no video to render, waiting for shutdown")
			<-ctx.Done()
			return nil
		}
		slog.Info("video finished", "frames", video.Frames(), "uploads", surface.Updates())
		return errVideoFinished
	}
}
