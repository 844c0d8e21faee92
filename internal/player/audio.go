package player

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
)

var (
	// ErrNoData means a source has nothing to contribute to this pull.
	ErrNoData = errors.New("player: no audio data")
	// ErrSourceClosed is returned by pulls on a closed source.
	ErrSourceClosed = errors.New("player: audio source closed")
)

// AudioSource serves fixed-size slices of output-format audio to the mixer. It is either
// backed by a decoder fed through a PacketQueue, or by a raw s16le stereo 44.1k file that
// loops forever.
//
// Read is meant to be called from a single goroutine (the audio callback). Push may be
// called concurrently from the video pull loop.
type AudioSource struct {
	name string

	mu     sync.Mutex
	closed bool

	// decoded path
	queue *PacketQueue
	dec   AudioDecoder
	rs    Resampler
	held  Packet

	// raw file path
	file io.ReadSeeker

	buf    []byte
	fill   int
	cursor int // unconsumed trailing bytes of buf[:fill]; 0 when empty

	packets    atomic.Int64 // file-order position of the last popped packet, plus one
	frames     atomic.Int64
	bytes      atomic.Int64
	underflows atomic.Int64
	failures   atomic.Int64
}

// NewDecodedAudioSource creates a source that decodes queued packets with dec and converts
// them to the output format with rs.
func NewDecodedAudioSource(name string, dec AudioDecoder, rs Resampler) *AudioSource {
	return &AudioSource{
		name:  name,
		queue: NewPacketQueue(),
		dec:   dec,
		rs:    rs,
		buf:   make([]byte, ResampleBufferBytes),
	}
}

// NewRawAudioSource creates a looping source over already formatted samples.
func NewRawAudioSource(name string, r io.ReadSeeker) *AudioSource {
	return &AudioSource{
		name: name,
		file: r,
		buf:  make([]byte, PeriodBytes),
	}
}

// OpenFileAudioSource opens a raw sample file. A missing or unreadable file yields an inert
// source together with the error that made it inert.
func OpenFileAudioSource(path string) (*AudioSource, error) {
	f, err := os.Open(path)
	if err != nil {
		slog.Warn("raw audio source unavailable, playing silence", "path", path, "err", err)
		return &AudioSource{name: path}, fmt.Errorf("player: open raw audio: %w", err)
	}
	return NewRawAudioSource(path, f), nil
}

func (s *AudioSource) Name() string { return s.name }

// Push hands a packet to the decode queue. It returns false when the source has no queue,
// in which case the caller keeps ownership.
func (s *AudioSource) Push(p Packet) bool {
	if s == nil || s.queue == nil {
		return false
	}
	return s.queue.Push(p)
}

// Queued returns the number of packets waiting to be decoded.
func (s *AudioSource) Queued() int {
	if s.queue == nil {
		return 0
	}
	return s.queue.Len()
}

// Read returns up to length bytes of output audio. The returned slice aliases an internal
// buffer and is only valid until the next call. length is clamped to PeriodBytes.
func (s *AudioSource) Read(length int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSourceClosed
	}
	if length <= 0 {
		return nil, ErrNoData
	}
	if length > PeriodBytes {
		length = PeriodBytes
	}

	var (
		b   []byte
		err error
	)
	switch {
	case s.cursor > 0 || s.dec != nil:
		b, err = s.readDecoded(length)
	case s.file != nil:
		b, err = s.readFile(length)
	default:
		err = ErrNoData
	}
	if err != nil {
		s.underflows.Add(1)
		return nil, err
	}
	s.bytes.Add(int64(len(b)))
	return b, nil
}

func (s *AudioSource) readDecoded(length int) ([]byte, error) {
	if s.cursor == 0 {
		if err := s.decode(); err != nil {
			return nil, err
		}
	}

	start := s.fill - s.cursor
	if length >= s.cursor {
		length = s.cursor
		s.cursor = 0
	} else {
		s.cursor -= length
	}
	return s.buf[start : start+length], nil
}

// decode refills buf with the next resampled frame. It consumes queued packets until one
// yields a frame or the queue runs dry.
func (s *AudioSource) decode() error {
	for {
		if s.held == nil {
			p, seq, ok := s.queue.Pop()
			if !ok {
				return ErrNoData
			}
			s.packets.Store(seq + 1)
			if err := s.dec.SendPacket(p); err != nil && !errors.Is(err, ErrAgain) {
				p.Free()
				return s.fail("send packet", err)
			}
			s.held = p
		}

		f, err := s.dec.ReceiveFrame()
		if err != nil {
			s.release()
			if errors.Is(err, ErrAgain) || errors.Is(err, io.EOF) {
				continue
			}
			return s.fail("receive frame", err)
		}

		n, err := s.rs.Resample(f, s.buf)
		if err != nil {
			s.release()
			if errors.Is(err, ErrAgain) || errors.Is(err, io.EOF) {
				continue
			}
			return s.fail("resample", err)
		}
		n = min(n, len(s.buf))
		n -= n % frameBytes
		if n <= 0 {
			// resampler is buffering, try the next frame of the same packet
			continue
		}
		s.fill = n
		s.cursor = n
		s.frames.Add(1)
		return nil
	}
}

func (s *AudioSource) fail(op string, err error) error {
	s.failures.Add(1)
	slog.Warn("audio decode failed, pull is silent", "source", s.name, "op", op, "err", err)
	return fmt.Errorf("player: %s: %w", op, err)
}

func (s *AudioSource) release() {
	if s.held != nil {
		s.held.Free()
		s.held = nil
	}
}

func (s *AudioSource) readFile(length int) ([]byte, error) {
	n, err := io.ReadFull(s.file, s.buf[:length])
	switch {
	case err == nil:
		return s.buf[:n], nil
	case errors.Is(err, io.ErrUnexpectedEOF):
		// short tail, next pull starts over
		if err := s.rewind(); err != nil {
			return nil, err
		}
		return s.buf[:n], nil
	case errors.Is(err, io.EOF):
		if err := s.rewind(); err != nil {
			return nil, err
		}
		n, err = io.ReadFull(s.file, s.buf[:length])
		if n == 0 {
			return nil, ErrNoData
		}
		if err != nil {
			if err := s.rewind(); err != nil {
				return nil, err
			}
		}
		return s.buf[:n], nil
	default:
		return nil, s.fail("read raw audio", err)
	}
}

func (s *AudioSource) rewind() error {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return s.fail("rewind raw audio", err)
	}
	return nil
}

// Stats returns the source's counters. Safe to call from any goroutine.
func (s *AudioSource) Stats() AudioStats {
	return AudioStats{
		Packets:    s.packets.Load(),
		Frames:     s.frames.Load(),
		Bytes:      s.bytes.Load(),
		Underflows: s.underflows.Load(),
		Failures:   s.failures.Load(),
	}
}

// Close drops queued packets and releases the file. Detach the source from the mixer first.
func (s *AudioSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.release()
	if s.queue != nil {
		s.queue.Close()
	}
	s.cursor = 0
	if c, ok := s.file.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
