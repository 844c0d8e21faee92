package player

import (
	"encoding/binary"
	"io"
)

type fakePacket struct {
	stream int
	id     int
	// frames the decoder emits for this packet
	frames [][]byte
	// error the decoder returns instead of a frame
	recvErr error
	freed   bool
}

func (p *fakePacket) StreamIndex() int { return p.stream }
func (p *fakePacket) Free()            { p.freed = true }

type fakeFrame struct {
	data []byte
}

func (f fakeFrame) NbSamples() int { return len(f.data) / frameBytes }

type fakeAudioDecoder struct {
	pending [][]byte
	recvErr error
	sent    []int
}

func (d *fakeAudioDecoder) SendPacket(p Packet) error {
	fp := p.(*fakePacket)
	d.sent = append(d.sent, fp.id)
	d.pending = append(d.pending[:0], fp.frames...)
	d.recvErr = fp.recvErr
	return nil
}

func (d *fakeAudioDecoder) ReceiveFrame() (AudioFrame, error) {
	if d.recvErr != nil {
		err := d.recvErr
		d.recvErr = nil
		return nil, err
	}
	if len(d.pending) == 0 {
		return nil, ErrAgain
	}
	f := d.pending[0]
	d.pending = d.pending[1:]
	return fakeFrame{data: f}, nil
}

type copyResampler struct {
	err error
}

func (r *copyResampler) Resample(f AudioFrame, dst []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	return copy(dst, f.(fakeFrame).data), nil
}

type fakeDemuxer struct {
	packets []*fakePacket
	read    int
}

func (d *fakeDemuxer) ReadPacket() (Packet, error) {
	if d.read == len(d.packets) {
		return nil, io.EOF
	}
	p := d.packets[d.read]
	d.read++
	return p, nil
}

// fakeVideoDecoder emits one picture per video packet whose id is even; odd ids need
// more input.
type fakeVideoDecoder struct {
	held    *fakePacket
	emitted bool
	sent    []int
}

func (d *fakeVideoDecoder) SendPacket(p Packet) error {
	if p == nil {
		d.held = nil
		return nil
	}
	d.held = p.(*fakePacket)
	d.emitted = false
	d.sent = append(d.sent, d.held.id)
	return nil
}

func (d *fakeVideoDecoder) ReceivePicture(dst *Picture) error {
	if d.held == nil || d.emitted || d.held.id%2 != 0 {
		return ErrAgain
	}
	d.emitted = true
	id := byte(d.held.id)
	dst.Width, dst.Height = 4, 2
	dst.Planes = [3][]byte{
		{id, id, id, id, id, id, id, id},
		{id + 1, id + 1},
		{id + 2, id + 2},
	}
	dst.Strides = [3]int{4, 2, 2}
	return nil
}

// pattern returns n bytes counting up from start.
func pattern(start, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(start + i)
	}
	return b
}

// constant returns n stereo sample frames all set to v.
func constant(v int16, frames int) []byte {
	b := make([]byte, frames*frameBytes)
	for i := 0; i < len(b); i += BytesPerSample {
		binary.LittleEndian.PutUint16(b[i:], uint16(v))
	}
	return b
}

func samples(b []byte) []int16 {
	out := make([]int16, len(b)/BytesPerSample)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[i*BytesPerSample:]))
	}
	return out
}
