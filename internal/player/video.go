package player

import (
	"errors"
	"io"
	"log/slog"
)

// VideoSource pulls decoded pictures out of a demuxer one at a time. Audio packets met on
// the way are routed to the paired AudioSource, so audio arrival is paced by video pulls.
//
// A VideoSource with a nil demuxer or decoder is inert: HasFrame always reports false.
type VideoSource struct {
	demux       Demuxer
	dec         VideoDecoder
	videoStream int
	audioStream int
	audio       *AudioSource

	held     Packet
	draining bool
	pic      Picture
	width    int
	height   int
	done     bool
	frames   int64
	routed   int64
}

// VideoSourceOptions describes the streams a VideoSource reads from.
type VideoSourceOptions struct {
	Demuxer     Demuxer
	Decoder     VideoDecoder
	VideoStream int
	// AudioStream is the index of the stream routed to Audio, or -1.
	AudioStream int
	Audio       *AudioSource
	Width       int
	Height      int
}

func NewVideoSource(o VideoSourceOptions) *VideoSource {
	v := &VideoSource{
		demux:       o.Demuxer,
		dec:         o.Decoder,
		videoStream: o.VideoStream,
		audioStream: o.AudioStream,
		audio:       o.Audio,
	}
	if v.demux == nil || v.dec == nil {
		v.done = true
		return v
	}
	v.width, v.height = o.Width, o.Height
	return v
}

func (v *VideoSource) Width() int  { return v.width }
func (v *VideoSource) Height() int { return v.height }

// Done reports whether the container is exhausted or the source is inert.
func (v *VideoSource) Done() bool { return v.done }

// Frames returns the number of pictures decoded so far.
func (v *VideoSource) Frames() int64 { return v.frames }

// Routed returns the number of audio packets handed to the audio source.
func (v *VideoSource) Routed() int64 { return v.routed }

// Picture returns the most recently decoded picture.
func (v *VideoSource) Picture() *Picture { return &v.pic }

// HasFrame advances to the next decoded picture. It returns false once the container is
// exhausted or the source is inert.
func (v *VideoSource) HasFrame() bool {
	if v.done {
		return false
	}

	for {
		if v.draining {
			if err := v.dec.ReceivePicture(&v.pic); err != nil {
				v.done = true
				return false
			}
			return v.gotPicture()
		}

		if v.held == nil {
			p, err := v.demux.ReadPacket()
			if errors.Is(err, ErrAgain) {
				return false
			}
			if errors.Is(err, io.EOF) {
				// flush pictures the decoder still holds back
				v.draining = true
				if err := v.dec.SendPacket(nil); err != nil && !errors.Is(err, io.EOF) {
					slog.Debug("video decoder flush failed", "err", err)
				}
				continue
			}
			if err != nil {
				v.done = true
				v.release()
				slog.Warn("demux failed, video stopped", "err", err)
				return false
			}

			if p.StreamIndex() != v.videoStream {
				v.route(p)
				continue
			}

			if err := v.dec.SendPacket(p); err != nil && !errors.Is(err, ErrAgain) {
				slog.Debug("video packet rejected", "err", err)
				p.Free()
				continue
			}
			v.held = p
		}

		if err := v.dec.ReceivePicture(&v.pic); err != nil {
			v.release()
			if !errors.Is(err, ErrAgain) && !errors.Is(err, io.EOF) {
				slog.Debug("video decode failed, skipping packet", "err", err)
			}
			continue
		}
		return v.gotPicture()
	}
}

func (v *VideoSource) gotPicture() bool {
	v.frames++
	if v.pic.Width > 0 {
		v.width, v.height = v.pic.Width, v.pic.Height
	}
	return true
}

func (v *VideoSource) route(p Packet) {
	if v.audio != nil && v.audioStream >= 0 && p.StreamIndex() == v.audioStream && v.audio.Push(p) {
		v.routed++
		return
	}
	p.Free()
}

func (v *VideoSource) release() {
	if v.held != nil {
		v.held.Free()
		v.held = nil
	}
}

// Read decodes the next picture and uploads it to dst. dst is left untouched on failure.
func (v *VideoSource) Read(dst Surface) bool {
	if dst == nil || !v.HasFrame() {
		return false
	}
	p := &v.pic
	if err := dst.UpdateYUV(p.Planes[0], p.Strides[0], p.Planes[1], p.Strides[1], p.Planes[2], p.Strides[2]); err != nil {
		slog.Warn("surface update failed", "err", err)
		return false
	}
	return true
}

// Close releases the held packet. The demuxer and decoders belong to whoever opened them.
func (v *VideoSource) Close() {
	v.release()
	v.done = true
}
