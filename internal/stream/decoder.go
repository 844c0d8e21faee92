package stream

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/asticode/go-astiav"
	"github.com/sonroyaalmerol/ffplayer/internal/player"
)

// packetReader reads packets from an opened format context, one freshly allocated packet
// per call so ownership can move to a queue.
type packetReader struct {
	fc *astiav.FormatContext
}

func (r *packetReader) ReadPacket() (player.Packet, error) {
	pkt := astiav.AllocPacket()
	if pkt == nil {
		return nil, fmt.Errorf("stream: alloc packet failed")
	}
	if err := r.fc.ReadFrame(pkt); err != nil {
		pkt.Free()
		return nil, translate(err)
	}
	return pkt, nil
}

type audioDecoder struct {
	cc    *astiav.CodecContext
	frame *astiav.Frame
}

func newAudioDecoder(cc *astiav.CodecContext) (*audioDecoder, error) {
	frame := astiav.AllocFrame()
	if frame == nil {
		return nil, fmt.Errorf("stream: alloc audio frame failed")
	}
	return &audioDecoder{cc: cc, frame: frame}, nil
}

func (d *audioDecoder) SendPacket(p player.Packet) error {
	pkt, ok := p.(*astiav.Packet)
	if !ok {
		return errNotAstiavPacket
	}
	return translate(d.cc.SendPacket(pkt))
}

func (d *audioDecoder) ReceiveFrame() (player.AudioFrame, error) {
	d.frame.Unref()
	if err := d.cc.ReceiveFrame(d.frame); err != nil {
		return nil, translate(err)
	}
	return d.frame, nil
}

func (d *audioDecoder) Free() {
	d.frame.Free()
}

// resampler converts decoded frames to s16 stereo 44.1k.
type resampler struct {
	swr *astiav.SoftwareResampleContext
	dst *astiav.Frame
	// set once swr has been configured by a successful conversion
	ready bool
}

func newResampler() (*resampler, error) {
	swr := astiav.AllocSoftwareResampleContext()
	if swr == nil {
		return nil, fmt.Errorf("stream: alloc swr failed")
	}
	dst := astiav.AllocFrame()
	if dst == nil {
		swr.Free()
		return nil, fmt.Errorf("stream: alloc resample frame failed")
	}
	return &resampler{swr: swr, dst: dst}, nil
}

// resampleSlack covers the samples swr may emit beyond the plain rate ratio on the first
// conversion, before its delay can be queried.
const resampleSlack = 256

func (r *resampler) Resample(f player.AudioFrame, out []byte) (int, error) {
	src, ok := f.(*astiav.Frame)
	if !ok {
		return 0, fmt.Errorf("stream: unexpected frame type %T", f)
	}
	normalizeLayout(src)

	n, err := r.convert(src, out)
	if errors.Is(err, astiav.ErrInputChanged) {
		// the source format moved under us, start over with a fresh context
		slog.Debug("audio input format changed, resetting resampler",
			"rate", src.SampleRate(), "layout", src.ChannelLayout().String())
		if err := r.reset(); err != nil {
			return 0, err
		}
		n, err = r.convert(src, out)
	}
	return n, err
}

func (r *resampler) convert(src *astiav.Frame, out []byte) (int, error) {
	srcRate := src.SampleRate()
	if srcRate <= 0 {
		srcRate = player.SampleRate
	}
	// swr_get_delay divides by the input rate, which stays 0 until the first conversion
	pending := int64(src.NbSamples())
	slack := resampleSlack
	if r.ready {
		pending += r.swr.Delay(int64(srcRate))
		slack = 1
	}
	nb := int(pending*player.SampleRate/int64(srcRate)) + slack
	if maxNb := len(out) / (player.Channels * player.BytesPerSample); nb > maxNb {
		nb = maxNb
	}

	r.dst.Unref()
	r.dst.SetChannelLayout(astiav.ChannelLayoutStereo)
	r.dst.SetSampleRate(player.SampleRate)
	r.dst.SetSampleFormat(astiav.SampleFormatS16)
	r.dst.SetNbSamples(nb)
	if err := r.dst.AllocBuffer(0); err != nil {
		return 0, fmt.Errorf("dst alloc buffer: %w", err)
	}

	if err := r.swr.ConvertFrame(src, r.dst); err != nil {
		return 0, fmt.Errorf("swr convert: %w", translate(err))
	}
	r.ready = true
	if r.dst.NbSamples() == 0 {
		return 0, nil
	}

	b, err := r.dst.Data().Bytes(1)
	if err != nil {
		return 0, fmt.Errorf("dst bytes: %w", err)
	}
	return copy(out, b), nil
}

func (r *resampler) reset() error {
	swr := astiav.AllocSoftwareResampleContext()
	if swr == nil {
		return fmt.Errorf("stream: alloc swr failed")
	}
	r.swr.Free()
	r.swr = swr
	r.ready = false
	return nil
}

func (r *resampler) Free() {
	r.dst.Free()
	r.swr.Free()
}

// normalizeLayout gives frames decoded without a channel order (raw PCM in WAV, NUT, AVI)
// the default layout for their channel count. swr stores its input layout in that
// normalized form, so leaving it unspecified makes every later frame look like a format
// change.
func normalizeLayout(f *astiav.Frame) {
	l := f.ChannelLayout()
	switch l.Channels() {
	case 1:
		if !l.Equal(astiav.ChannelLayoutMono) {
			f.SetChannelLayout(astiav.ChannelLayoutMono)
		}
	case 2:
		if !l.Equal(astiav.ChannelLayoutStereo) {
			f.SetChannelLayout(astiav.ChannelLayoutStereo)
		}
	}
}

// videoDecoder decodes pictures and hands them out as YUV 4:2:0 planes, scaling other
// pixel formats on the way.
type videoDecoder struct {
	cc     *astiav.CodecContext
	frame  *astiav.Frame
	scaled *astiav.Frame
	sws    *astiav.SoftwareScaleContext
	swsKey [3]int
}

func newVideoDecoder(cc *astiav.CodecContext) (*videoDecoder, error) {
	frame := astiav.AllocFrame()
	if frame == nil {
		return nil, fmt.Errorf("stream: alloc video frame failed")
	}
	scaled := astiav.AllocFrame()
	if scaled == nil {
		frame.Free()
		return nil, fmt.Errorf("stream: alloc scaled frame failed")
	}
	return &videoDecoder{cc: cc, frame: frame, scaled: scaled}, nil
}

func (d *videoDecoder) SendPacket(p player.Packet) error {
	if p == nil {
		return translate(d.cc.SendPacket(nil))
	}
	pkt, ok := p.(*astiav.Packet)
	if !ok {
		return errNotAstiavPacket
	}
	return translate(d.cc.SendPacket(pkt))
}

func (d *videoDecoder) ReceivePicture(dst *player.Picture) error {
	d.frame.Unref()
	if err := d.cc.ReceiveFrame(d.frame); err != nil {
		return translate(err)
	}

	src := d.frame
	if src.PixelFormat() != astiav.PixelFormatYuv420P {
		var err error
		if src, err = d.toYUV420P(src); err != nil {
			return err
		}
	}

	w, h := src.Width(), src.Height()
	b, err := src.Data().Bytes(1)
	if err != nil {
		return fmt.Errorf("picture bytes: %w", err)
	}
	cw, ch := (w+1)/2, (h+1)/2
	ySize, cSize := w*h, cw*ch
	if len(b) < ySize+2*cSize {
		return fmt.Errorf("stream: picture buffer too small: %d < %d", len(b), ySize+2*cSize)
	}

	dst.Width, dst.Height = w, h
	dst.Planes[0] = b[:ySize]
	dst.Planes[1] = b[ySize : ySize+cSize]
	dst.Planes[2] = b[ySize+cSize : ySize+2*cSize]
	dst.Strides = [3]int{w, cw, cw}
	return nil
}

func (d *videoDecoder) toYUV420P(src *astiav.Frame) (*astiav.Frame, error) {
	key := [3]int{src.Width(), src.Height(), int(src.PixelFormat())}
	if d.sws == nil || d.swsKey != key {
		if d.sws != nil {
			d.sws.Free()
			d.sws = nil
		}
		sws, err := astiav.CreateSoftwareScaleContext(
			src.Width(), src.Height(), src.PixelFormat(),
			src.Width(), src.Height(), astiav.PixelFormatYuv420P,
			astiav.NewSoftwareScaleContextFlags(astiav.SoftwareScaleContextFlagBilinear),
		)
		if err != nil {
			return nil, fmt.Errorf("create sws: %w", err)
		}
		d.sws, d.swsKey = sws, key
	}

	d.scaled.Unref()
	d.scaled.SetWidth(src.Width())
	d.scaled.SetHeight(src.Height())
	d.scaled.SetPixelFormat(astiav.PixelFormatYuv420P)
	if err := d.sws.ScaleFrame(src, d.scaled); err != nil {
		return nil, fmt.Errorf("sws scale: %w", err)
	}
	return d.scaled, nil
}

func (d *videoDecoder) Free() {
	if d.sws != nil {
		d.sws.Free()
	}
	d.scaled.Free()
	d.frame.Free()
}

var (
	_ player.Demuxer      = (*packetReader)(nil)
	_ player.AudioDecoder = (*audioDecoder)(nil)
	_ player.Resampler    = (*resampler)(nil)
	_ player.VideoDecoder = (*videoDecoder)(nil)
	_ io.Closer           = (*Container)(nil)
)
