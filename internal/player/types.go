package player

import "errors"

// ErrAgain is returned by decoders that need another packet before they can emit a frame.
var ErrAgain = errors.New("player: decoder needs more input")

// Packet is one compressed unit of an elementary stream. Whoever holds a Packet owns it
// and must Free it once it is no longer needed.
type Packet interface {
	StreamIndex() int
	Free()
}

// Demuxer reads packets in file order. It returns io.EOF once the container is exhausted.
type Demuxer interface {
	ReadPacket() (Packet, error)
}

// AudioFrame is a decoded audio frame. It is only valid until the next ReceiveFrame.
type AudioFrame interface {
	NbSamples() int
}

type AudioDecoder interface {
	SendPacket(p Packet) error
	// ReceiveFrame returns ErrAgain or io.EOF when the submitted packet has no more frames.
	ReceiveFrame() (AudioFrame, error)
}

// Resampler converts a decoded frame to the output format, writing into dst and returning
// the number of bytes written.
type Resampler interface {
	Resample(f AudioFrame, dst []byte) (int, error)
}

type VideoDecoder interface {
	// SendPacket submits p for decoding. A nil p starts draining the pictures the decoder
	// still holds.
	SendPacket(p Packet) error
	// ReceivePicture overwrites dst with the next decoded picture. It returns ErrAgain or
	// io.EOF when the submitted packet has no more pictures.
	ReceivePicture(dst *Picture) error
}

// Picture is a decoded planar YUV 4:2:0 image.
type Picture struct {
	Width   int
	Height  int
	Planes  [3][]byte
	Strides [3]int
}

// Surface is a render target accepting planar YUV updates.
type Surface interface {
	UpdateYUV(y []byte, yStride int, u []byte, uStride int, v []byte, vStride int) error
}

// AudioStats is a snapshot of an AudioSource's counters.
type AudioStats struct {
	Packets    int64 // packets taken off the queue, by file order
	Frames     int64
	Bytes      int64
	Underflows int64
	Failures   int64
}
