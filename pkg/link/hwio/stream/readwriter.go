// Package stream carries frames over a byte stream, e.g. a TCP bridge
// to the bus or a UART.
package stream

import (
	"io"
	"net"
	"time"

	"github.com/robotalks/xrlink/pkg/link/frame"
)

// DefaultMaxFrameSize limits frames read from the stream.
const DefaultMaxFrameSize = 4096

// ReadWriter reads and writes whole frames over a byte stream.
// Frames are self-delimited by their header, no extra framing is added.
type ReadWriter struct {
	io.ReadWriteCloser
	MaxFrameSize int
}

// New creates a ReadWriter with io.ReadWriteCloser.
func New(s io.ReadWriteCloser) *ReadWriter {
	return &ReadWriter{ReadWriteCloser: s, MaxFrameSize: DefaultMaxFrameSize}
}

// ReadPacket implements PacketConn.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	return frame.ReadFrom(p, p.MaxFrameSize)
}

// WritePacket implements PacketConn.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	for len(pkt) > 0 {
		n, err := p.Write(pkt)
		if err != nil {
			return err
		}
		pkt = pkt[n:]
	}
	return nil
}

// Dial connects over network.
func Dial(network, addr string, timeout time.Duration) (*ReadWriter, error) {
	conn, err := net.DialTimeout(network, addr, timeout)
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}
