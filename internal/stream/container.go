package stream

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"
	"github.com/sonroyaalmerol/ffplayer/internal/player"
)

// Status records which part of opening a container failed. A nil field means that part
// is usable.
type Status struct {
	Open  error
	Video error
	Audio error
}

// Err joins every setup failure.
func (s Status) Err() error {
	return errors.Join(s.Open, s.Video, s.Audio)
}

// Container owns one opened media file: its format context, the decoders for the best
// video and audio streams, and the audio source fed from it. Opening never fails hard;
// a broken file leaves an inert Container whose Status tells what went wrong.
type Container struct {
	path   string
	closer *astikit.Closer
	status Status

	fc    *astiav.FormatContext
	video *player.VideoSource
	audio *player.AudioSource
}

// Open opens path and prepares decoders for its best video and audio streams.
func Open(path string) *Container {
	c := &Container{
		path:   path,
		closer: astikit.NewCloser(),
		video:  player.NewVideoSource(player.VideoSourceOptions{}),
	}

	if err := c.openInput(); err != nil {
		c.status.Open = err
		c.status.Video = err
		c.status.Audio = err
		slog.Warn("container unavailable, video and audio are inert", "path", path, "err", err)
		c.release()
		return c
	}

	vst, vdec, err := c.openVideo()
	if err != nil {
		c.status.Video = err
		c.status.Audio = fmt.Errorf("%w: %w", ErrVideoUnavailable, err)
		slog.Warn("video stream unavailable, container is inert", "path", path, "err", err)
		c.release()
		return c
	}

	ast, err := c.openAudio()
	audioIndex := -1
	if err != nil {
		c.status.Audio = err
		slog.Info("no usable audio stream, playing video only", "path", path, "err", err)
	} else {
		audioIndex = ast.Index()
	}

	cp := vst.CodecParameters()
	c.video = player.NewVideoSource(player.VideoSourceOptions{
		Demuxer:     &packetReader{fc: c.fc},
		Decoder:     vdec,
		VideoStream: vst.Index(),
		AudioStream: audioIndex,
		Audio:       c.audio,
		Width:       cp.Width(),
		Height:      cp.Height(),
	})
	c.closer.Add(c.video.Close)

	slog.Info("container opened", "path", path,
		"video", vst.Index(), "width", cp.Width(), "height", cp.Height(),
		"audio", audioIndex)
	return c
}

func (c *Container) openInput() error {
	fc := astiav.AllocFormatContext()
	if fc == nil {
		return fmt.Errorf("%w: alloc format context", ErrOpenInput)
	}
	c.closer.Add(fc.Free)

	if err := fc.OpenInput(c.path, nil, nil); err != nil {
		return fmt.Errorf("%w: %w", ErrOpenInput, err)
	}
	c.closer.Add(fc.CloseInput)

	if err := fc.FindStreamInfo(nil); err != nil {
		return fmt.Errorf("%w: %w", ErrStreamInfo, err)
	}
	c.fc = fc
	return nil
}

// openDecoder finds the best stream of type mt and opens a decoder for it. Everything
// acquired is registered on cl.
func (c *Container) openDecoder(cl *astikit.Closer, mt astiav.MediaType) (*astiav.Stream, *astiav.CodecContext, error) {
	st, codec, err := c.fc.FindBestStream(mt, -1, -1)
	if err != nil {
		if errors.Is(err, astiav.ErrDecoderNotFound) {
			return nil, nil, fmt.Errorf("%w: %s", ErrDecoderNotFound, mt)
		}
		return nil, nil, fmt.Errorf("%w: %s: %w", ErrNoStream, mt, err)
	}
	if st == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoStream, mt)
	}
	if codec == nil {
		if codec = astiav.FindDecoder(st.CodecParameters().CodecID()); codec == nil {
			return nil, nil, fmt.Errorf("%w: %s", ErrDecoderNotFound, st.CodecParameters().CodecID())
		}
	}

	cc := astiav.AllocCodecContext(codec)
	if cc == nil {
		return nil, nil, fmt.Errorf("%w: alloc codec context", ErrDecoderOpen)
	}
	cl.Add(cc.Free)

	if err := cc.FromCodecParameters(st.CodecParameters()); err != nil {
		return nil, nil, fmt.Errorf("%w: codec from params: %w", ErrDecoderOpen, err)
	}
	cc.SetTimeBase(st.TimeBase())

	if err := cc.Open(codec, nil); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrDecoderOpen, err)
	}
	return st, cc, nil
}

func (c *Container) openVideo() (*astiav.Stream, *videoDecoder, error) {
	cl := astikit.NewCloser()
	st, cc, err := c.openDecoder(cl, astiav.MediaTypeVideo)
	if err != nil {
		_ = cl.Close()
		return nil, nil, err
	}
	dec, err := newVideoDecoder(cc)
	if err != nil {
		_ = cl.Close()
		return nil, nil, err
	}
	cl.Add(dec.Free)
	c.closer.AddWithError(cl.Close)
	return st, dec, nil
}

func (c *Container) openAudio() (*astiav.Stream, error) {
	cl := astikit.NewCloser()
	st, cc, err := c.openDecoder(cl, astiav.MediaTypeAudio)
	if err != nil {
		_ = cl.Close()
		return nil, err
	}
	dec, err := newAudioDecoder(cc)
	if err != nil {
		_ = cl.Close()
		return nil, err
	}
	cl.Add(dec.Free)
	rs, err := newResampler()
	if err != nil {
		_ = cl.Close()
		return nil, err
	}
	cl.Add(rs.Free)

	c.audio = player.NewDecodedAudioSource(c.path, dec, rs)
	cl.AddWithError(c.audio.Close)
	c.closer.AddWithError(cl.Close)
	return st, nil
}

// release frees a partially opened container and leaves it inert.
func (c *Container) release() {
	_ = c.closer.Close()
	c.closer = astikit.NewCloser()
	c.fc = nil
	c.audio = nil
}

func (c *Container) Status() Status { return c.status }

func (c *Container) Video() *player.VideoSource { return c.video }

// Audio returns the decoded audio source, or nil when the file has no usable audio.
func (c *Container) Audio() *player.AudioSource { return c.audio }

func (c *Container) Width() int  { return c.video.Width() }
func (c *Container) Height() int { return c.video.Height() }

// Close releases the audio source, the decoders and the format context, in that order.
// Detach the audio source from the mixer before calling it.
func (c *Container) Close() error {
	return c.closer.Close()
}
