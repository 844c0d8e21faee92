package stream

import (
	"errors"
	"io"

	"github.com/asticode/go-astiav"
	"github.com/sonroyaalmerol/ffplayer/internal/player"
)

var (
	ErrOpenInput        = errors.New("stream: open input failed")
	ErrStreamInfo       = errors.New("stream: find stream info failed")
	ErrNoStream         = errors.New("stream: no such stream")
	ErrDecoderNotFound  = errors.New("stream: no decoder for codec")
	ErrDecoderOpen      = errors.New("stream: decoder open failed")
	ErrVideoUnavailable = errors.New("stream: video unavailable, nothing paces audio")
	errNotAstiavPacket  = errors.New("stream: packet was not read by this container")
)

// translate maps FFmpeg's flow-control errors onto the player's.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, astiav.ErrEagain):
		return player.ErrAgain
	case errors.Is(err, astiav.ErrEof):
		return io.EOF
	}
	return err
}
