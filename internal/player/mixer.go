package player

import (
	"encoding/binary"
	"io"
	"math"
	"sync"
	"sync/atomic"
)

// Mixer is the audio device callback. Every pull zero-fills the destination and adds the
// output of up to two sources at full volume with hard int16 saturation.
//
// The source set is swapped atomically. SetSources only returns once no Fill is still
// reading the previous set, so the caller may then close the old sources.
type Mixer struct {
	sources atomic.Pointer[sourceSet]
	paused  atomic.Bool

	// held for the duration of a Fill; SetSources uses it as a barrier
	fillMu sync.Mutex
}

type sourceSet struct {
	list []*AudioSource
}

// NewMixer returns a paused mixer with no sources.
func NewMixer() *Mixer {
	mx := &Mixer{}
	mx.paused.Store(true)
	return mx
}

// SetSources replaces the mixed sources. nil entries are skipped.
func (mx *Mixer) SetSources(srcs ...*AudioSource) {
	set := &sourceSet{}
	for _, s := range srcs {
		if s != nil {
			set.list = append(set.list, s)
		}
	}
	mx.sources.Store(set)

	// wait out a Fill that may still hold the previous set
	mx.fillMu.Lock()
	mx.fillMu.Unlock()
}

// Detach removes every source and waits for an in-flight Fill to finish.
func (mx *Mixer) Detach() {
	mx.SetSources()
}

func (mx *Mixer) Pause()  { mx.paused.Store(true) }
func (mx *Mixer) Resume() { mx.paused.Store(false) }

func (mx *Mixer) Paused() bool { return mx.paused.Load() }

// Fill writes exactly len(dst) bytes of mixed audio to dst.
func (mx *Mixer) Fill(dst []byte) {
	clear(dst)
	if len(dst) == 0 || mx.paused.Load() {
		return
	}

	mx.fillMu.Lock()
	defer mx.fillMu.Unlock()

	set := mx.sources.Load()
	if set == nil {
		return
	}
	for _, s := range set.list {
		b, err := s.Read(len(dst))
		if err != nil || len(b) == 0 {
			continue
		}
		MixS16(dst, b)
	}
}

// Callback adapts Fill to the device's (userdata, stream, length) callback shape.
func (mx *Mixer) Callback() func(userdata any, stream []byte, length int) {
	return func(_ any, stream []byte, length int) {
		if length > len(stream) {
			length = len(stream)
		}
		mx.Fill(stream[:length])
	}
}

// Read fills p with one mixed period at most. It only fails when p cannot hold a sample.
func (mx *Mixer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if len(p) < BytesPerSample {
		return 0, io.ErrShortBuffer
	}
	if len(p) > PeriodBytes {
		p = p[:PeriodBytes]
	}
	p = p[:len(p)-len(p)%BytesPerSample]
	mx.Fill(p)
	return len(p), nil
}

// MixS16 adds the little-endian int16 samples of src onto dst with saturation. Bytes of
// dst beyond len(src) are left as is.
func MixS16(dst, src []byte) {
	n := min(len(dst), len(src))
	n -= n % BytesPerSample
	for i := 0; i < n; i += BytesPerSample {
		a := int32(int16(binary.LittleEndian.Uint16(dst[i:])))
		b := int32(int16(binary.LittleEndian.Uint16(src[i:])))
		sum := a + b
		if sum > math.MaxInt16 {
			sum = math.MaxInt16
		} else if sum < math.MinInt16 {
			sum = math.MinInt16
		}
		binary.LittleEndian.PutUint16(dst[i:], uint16(int16(sum)))
	}
}
