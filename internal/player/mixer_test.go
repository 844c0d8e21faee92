package player

import (
	"bytes"
	"io"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func rawSource(data []byte) *AudioSource {
	return NewRawAudioSource("raw", bytes.NewReader(data))
}

func TestMixerSumsTwoSources(t *testing.T) {
	mx := NewMixer()
	mx.SetSources(rawSource(constant(10000, PeriodSamples)), rawSource(constant(5000, PeriodSamples)))
	mx.Resume()

	dst := make([]byte, PeriodBytes)
	mx.Fill(dst)
	for i, v := range samples(dst) {
		require.Equal(t, int16(15000), v, "sample %d", i)
	}
}

func TestMixerSaturates(t *testing.T) {
	for _, tc := range []struct {
		a, b, want int16
	}{
		{30000, 10000, math.MaxInt16},
		{-30000, -10000, math.MinInt16},
		{math.MaxInt16, math.MinInt16, -1},
		{-200, 100, -100},
	} {
		mx := NewMixer()
		mx.SetSources(rawSource(constant(tc.a, 16)), rawSource(constant(tc.b, 16)))
		mx.Resume()

		dst := make([]byte, 16*frameBytes)
		mx.Fill(dst)
		for _, v := range samples(dst) {
			require.Equal(t, tc.want, v, "%d + %d", tc.a, tc.b)
		}
	}
}

func TestMixerSingleSourceIsExact(t *testing.T) {
	data := pattern(3, PeriodBytes)
	mx := NewMixer()
	mx.SetSources(nil, rawSource(data))
	mx.Resume()

	dst := make([]byte, PeriodBytes)
	mx.Fill(dst)
	require.Equal(t, data, dst)
}

func TestMixerSilentSourceDoesNotAbortOthers(t *testing.T) {
	data := constant(1234, 64)
	empty, _, _ := newDecoded()
	mx := NewMixer()
	mx.SetSources(empty, rawSource(data))
	mx.Resume()

	dst := make([]byte, len(data))
	mx.Fill(dst)
	require.Equal(t, data, dst)
}

func TestMixerShortSourceLeavesTailSilent(t *testing.T) {
	s, _, _ := newDecoded(&fakePacket{stream: 1, frames: [][]byte{constant(700, 8)}})
	mx := NewMixer()
	mx.SetSources(s)
	mx.Resume()

	dst := bytes.Repeat([]byte{0xff}, 16*frameBytes)
	mx.Fill(dst)
	got := samples(dst)
	for i, v := range got {
		if i < 8*Channels {
			require.Equal(t, int16(700), v)
		} else {
			require.Zero(t, v)
		}
	}
}

func TestMixerPausedOrEmptyFillsSilence(t *testing.T) {
	mx := NewMixer()
	require.True(t, mx.Paused())
	mx.SetSources(rawSource(constant(100, 32)))

	dst := bytes.Repeat([]byte{0xaa}, 32*frameBytes)
	mx.Fill(dst)
	require.Equal(t, make([]byte, len(dst)), dst)

	mx.Resume()
	mx.Detach()
	dst = bytes.Repeat([]byte{0xaa}, 32*frameBytes)
	mx.Fill(dst)
	require.Equal(t, make([]byte, len(dst)), dst)
}

func TestMixerCallbackAndRead(t *testing.T) {
	data := pattern(0, 3*PeriodBytes)
	mx := NewMixer()
	mx.SetSources(rawSource(data))
	mx.Resume()

	cb := mx.Callback()
	stream := make([]byte, 256)
	cb(nil, stream, 100)
	require.Equal(t, data[:100], stream[:100])
	require.Equal(t, make([]byte, 156), stream[100:])

	p := make([]byte, 2*PeriodBytes)
	n, err := mx.Read(p)
	require.NoError(t, err)
	require.Equal(t, PeriodBytes, n)
	require.Equal(t, data[100:100+PeriodBytes], p[:n])
}

func TestMixerReadShortBuffer(t *testing.T) {
	mx := NewMixer()
	mx.SetSources(rawSource(pattern(0, PeriodBytes)))
	mx.Resume()

	n, err := mx.Read(make([]byte, 1))
	require.ErrorIs(t, err, io.ErrShortBuffer)
	require.Zero(t, n)

	n, err = mx.Read(nil)
	require.NoError(t, err)
	require.Zero(t, n)

	// an odd length is trimmed to whole samples
	n, err = mx.Read(make([]byte, 7))
	require.NoError(t, err)
	require.Equal(t, 6, n)
}

func TestMixerSwapWhileFilling(t *testing.T) {
	mx := NewMixer()
	mx.Resume()

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		dst := make([]byte, PeriodBytes)
		for {
			select {
			case <-stop:
				return
			default:
			}
			mx.Fill(dst)
		}
	}()

	for i := 0; i < 200; i++ {
		s := rawSource(constant(int16(i), PeriodSamples))
		mx.SetSources(s)
		mx.Detach()
		// the previous set is no longer read once Detach returns
		require.NoError(t, s.Close())
	}
	close(stop)
	wg.Wait()
}

func TestMixS16(t *testing.T) {
	dst := constant(100, 4)
	MixS16(dst, constant(-300, 2))
	require.Equal(t, []int16{-200, -200, -200, -200, 100, 100, 100, 100}, samples(dst))
}
