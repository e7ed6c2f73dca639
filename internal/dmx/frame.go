// Package dmx turns decoded bus data into fixture frames and writes them to
// a serial fixture controller.
//
// Every update is one 3-byte frame: channel high byte, channel low byte and
// the low 8 bits of the value. The controller requests its configuration by
// sending the line "setup"; the answer is the 16-bit big-endian maximum
// channel followed by the cached setup frames.
package dmx

import "fmt"

// DefaultMaxChannel is announced to the controller when none is configured.
const DefaultMaxChannel = 512

// Frame is one encoded channel update.
type Frame [3]byte

// NewFrame encodes channel and value. Values outside 0..255 wrap.
func NewFrame(channel, value int) Frame {
	return Frame{byte(channel >> 8 & 0xFF), byte(channel & 0xFF), byte(value & 0xFF)}
}

func (f Frame) Channel() int { return int(f[0])<<8 | int(f[1]) }

func (f Frame) Value() byte { return f[2] }

func (f Frame) String() string {
	return fmt.Sprintf("ch%d=%d", f.Channel(), f.Value())
}

// SetupMessage is a channel value replayed whenever the controller connects.
type SetupMessage struct {
	Channel int
	Value   int
}

func (m SetupMessage) Frame() Frame { return NewFrame(m.Channel, m.Value) }

// maxChannelWord encodes the handshake reply.
func maxChannelWord(n int) []byte {
	return []byte{byte(n >> 8 & 0xFF), byte(n & 0xFF)}
}

// Sink accepts frames for output. Port and the Art-Net output implement it.
type Sink interface {
	WriteFrame(f Frame) error
	IsOpen() bool
	Close() error
}
