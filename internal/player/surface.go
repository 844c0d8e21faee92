package player

import (
	"errors"
	"sync"
)

var errShortPlane = errors.New("player: plane shorter than stride")

// PlanarSurface is an in-memory YUV render target. It copies every update, so the
// decoder's buffers can be reused right after UpdateYUV returns.
type PlanarSurface struct {
	mu      sync.Mutex
	planes  [3][]byte
	strides [3]int
	updates int64
}

func NewPlanarSurface() *PlanarSurface {
	return &PlanarSurface{}
}

func (s *PlanarSurface) UpdateYUV(y []byte, yStride int, u []byte, uStride int, v []byte, vStride int) error {
	in := [3][]byte{y, u, v}
	strides := [3]int{yStride, uStride, vStride}
	for i := range in {
		if strides[i] <= 0 || len(in[i]) < strides[i] {
			return errShortPlane
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range in {
		s.planes[i] = append(s.planes[i][:0], in[i]...)
		s.strides[i] = strides[i]
	}
	s.updates++
	return nil
}

// Plane returns a copy of plane i and its stride.
func (s *PlanarSurface) Plane(i int) ([]byte, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.planes[i]...), s.strides[i]
}

// Updates returns how many frames were uploaded.
func (s *PlanarSurface) Updates() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates
}
