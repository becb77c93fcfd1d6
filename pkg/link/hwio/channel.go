// Package hwio adapts packet connections to the peripheral bus bridge
// into link.Hardware.
package hwio

import (
	"errors"
	"sync"

	"github.com/golang/glog"
)

// ErrClosed indicates I/O on a channel which is not initialized.
var ErrClosed = errors.New("channel closed")

// PacketConn reads/writes whole frames.
type PacketConn interface {
	ReadPacket() ([]byte, error)
	WritePacket([]byte) error
	Close() error
}

// Dialer opens a PacketConn.
type Dialer func() (PacketConn, error)

// DefaultRxBacklog is the default number of inbound frames buffered.
const DefaultRxBacklog = 64

// Channel implements link.Hardware over a PacketConn. A reader goroutine
// receives frames in the background and buffers them until the worker
// reads.
type Channel struct {
	Dial      Dialer
	RxBacklog int

	conn    PacketConn
	rxCh    chan []byte
	readErr error
	doneCh  chan struct{}
	exitCh  chan struct{}
	notify  func()
	lock    sync.Mutex
}

// NewChannel creates a Channel.
func NewChannel(dial Dialer) *Channel {
	return &Channel{Dial: dial, RxBacklog: DefaultRxBacklog}
}

// SetRxNotifier implements link.RxNotifiable.
func (c *Channel) SetRxNotifier(fn func()) {
	c.lock.Lock()
	c.notify = fn
	c.lock.Unlock()
}

// Init implements link.Hardware.
func (c *Channel) Init() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.conn != nil {
		return nil
	}
	conn, err := c.Dial()
	if err != nil {
		return err
	}
	backlog := c.RxBacklog
	if backlog <= 0 {
		backlog = DefaultRxBacklog
	}
	c.conn, c.readErr = conn, nil
	c.rxCh = make(chan []byte, backlog)
	c.doneCh, c.exitCh = make(chan struct{}), make(chan struct{})
	go c.readLoop(conn, c.rxCh, c.doneCh, c.exitCh)
	return nil
}

// Deinit implements link.Hardware.
func (c *Channel) Deinit() error {
	c.lock.Lock()
	conn, done, exit := c.conn, c.doneCh, c.exitCh
	c.conn = nil
	c.lock.Unlock()
	if conn == nil {
		return nil
	}
	close(done)
	err := conn.Close()
	<-exit
	return err
}

func (c *Channel) readLoop(conn PacketConn, rxCh chan []byte, done, exit chan struct{}) {
	defer close(exit)
	for {
		pkt, err := conn.ReadPacket()
		if err != nil {
			select {
			case <-done:
			default:
				glog.Errorf("hwio receive error: %v", err)
				c.lock.Lock()
				c.readErr = err
				c.lock.Unlock()
				c.wakeUp()
			}
			return
		}
		select {
		case rxCh <- pkt:
			c.wakeUp()
		case <-done:
			return
		}
	}
}

func (c *Channel) wakeUp() {
	c.lock.Lock()
	notify := c.notify
	c.lock.Unlock()
	if notify != nil {
		notify()
	}
}

// RxPending implements link.Hardware.
func (c *Channel) RxPending() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.conn == nil {
		return false
	}
	return len(c.rxCh) > 0 || c.readErr != nil
}

// Read implements link.Hardware. Frames are self-delimited so sizeHint
// is not needed.
func (c *Channel) Read(sizeHint int) ([]byte, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.conn == nil {
		return nil, ErrClosed
	}
	select {
	case pkt := <-c.rxCh:
		return pkt, nil
	default:
	}
	return nil, c.readErr
}

// Write implements link.Hardware.
func (c *Channel) Write(b []byte) error {
	c.lock.Lock()
	conn := c.conn
	c.lock.Unlock()
	if conn == nil {
		return ErrClosed
	}
	return conn.WritePacket(b)
}
