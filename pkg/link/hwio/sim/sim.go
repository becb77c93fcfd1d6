// Package sim provides an in-memory peripheral implementing
// link.Hardware, for tests and offline use.
package sim

import (
	"errors"
	"sync"

	"github.com/robotalks/xrlink/pkg/link/frame"
)

var (
	// ErrWriteFailure is returned by injected write failures.
	ErrWriteFailure = errors.New("simulated write failure")
	// ErrReadFailure is returned by injected read failures.
	ErrReadFailure = errors.New("simulated read failure")
	// ErrNotInitialized is returned when I/O happens on a deinitialized device.
	ErrNotInitialized = errors.New("device not initialized")
)

// Device simulates the peripheral side of the bus.
type Device struct {
	// Align is used to encode frames sent to the host.
	Align int
	// Echo sends data frames written by the host back as inbound data.
	Echo bool

	seq        frame.Seq
	rx         []rxItem
	written    []*frame.Frame
	writeCh    chan *frame.Frame
	notify     func()
	inited     bool
	inits      int
	deinits    int
	failWrites int
	failReads  int
	hints      []int
	lock       sync.Mutex
}

type rxItem struct {
	raw     []byte
	typ     frame.Type
	seq     frame.Seq
	payload []byte
}

func (i *rxItem) size(align int) int {
	if i.raw != nil {
		return len(i.raw)
	}
	return frame.PayloadOffset(len(i.payload), align) + len(i.payload)
}

// New creates a Device.
func New() *Device {
	return &Device{Align: 4, writeCh: make(chan *frame.Frame, 1024)}
}

// SetRxNotifier implements link.RxNotifiable.
func (d *Device) SetRxNotifier(fn func()) {
	d.lock.Lock()
	d.notify = fn
	d.lock.Unlock()
}

// Init implements link.Hardware.
func (d *Device) Init() error {
	d.lock.Lock()
	d.inited = true
	d.inits++
	d.lock.Unlock()
	return nil
}

// Deinit implements link.Hardware.
func (d *Device) Deinit() error {
	d.lock.Lock()
	d.inited = false
	d.deinits++
	d.lock.Unlock()
	return nil
}

// RxPending implements link.Hardware.
func (d *Device) RxPending() bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.inited && len(d.rx) > 0
}

// Read implements link.Hardware. The frame announces the size of the
// next queued one in next_len.
func (d *Device) Read(sizeHint int) ([]byte, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if !d.inited {
		return nil, ErrNotInitialized
	}
	d.hints = append(d.hints, sizeHint)
	if d.failReads > 0 {
		d.failReads--
		return nil, ErrReadFailure
	}
	if len(d.rx) == 0 {
		return nil, nil
	}
	item := d.rx[0]
	d.rx = d.rx[1:]
	if item.raw != nil {
		return item.raw, nil
	}
	f := &frame.Frame{Seq: item.seq, Type: item.typ, Payload: item.payload}
	if len(d.rx) > 0 {
		f.NextLen = uint16(d.rx[0].size(d.Align))
	}
	return f.Bytes(d.Align), nil
}

// Write implements link.Hardware.
func (d *Device) Write(b []byte) error {
	d.lock.Lock()
	if !d.inited {
		d.lock.Unlock()
		return ErrNotInitialized
	}
	if d.failWrites > 0 {
		d.failWrites--
		d.lock.Unlock()
		return ErrWriteFailure
	}
	f, err := frame.Decode(append([]byte(nil), b...))
	if err != nil {
		d.lock.Unlock()
		return err
	}
	d.written = append(d.written, f)
	var notify func()
	if d.Echo && !f.Type.IsCmd() {
		notify = d.queueLocked(rxItem{typ: frame.TypeData, payload: f.Payload})
	}
	d.lock.Unlock()
	select {
	case d.writeCh <- f:
	default:
	}
	if notify != nil {
		notify()
	}
	return nil
}

// WriteChan reports frames written by the host.
func (d *Device) WriteChan() <-chan *frame.Frame {
	return d.writeCh
}

// Written returns all frames written by the host.
func (d *Device) Written() []*frame.Frame {
	d.lock.Lock()
	defer d.lock.Unlock()
	return append([]*frame.Frame(nil), d.written...)
}

// Inject queues an inbound frame with the next device sequence number.
func (d *Device) Inject(typ frame.Type, payload []byte) {
	d.lock.Lock()
	notify := d.queueLocked(rxItem{typ: typ, payload: payload})
	d.lock.Unlock()
	if notify != nil {
		notify()
	}
}

// InjectSeq queues an inbound frame with an explicit sequence number.
// Following frames continue from seq.
func (d *Device) InjectSeq(typ frame.Type, seq frame.Seq, payload []byte) {
	d.lock.Lock()
	d.seq = seq
	notify := d.queueLocked(rxItem{typ: typ, payload: payload})
	d.lock.Unlock()
	if notify != nil {
		notify()
	}
}

// InjectRaw queues raw bytes as an inbound frame.
func (d *Device) InjectRaw(b []byte) {
	d.lock.Lock()
	d.rx = append(d.rx, rxItem{raw: b})
	notify := d.notify
	d.lock.Unlock()
	if notify != nil {
		notify()
	}
}

func (d *Device) queueLocked(item rxItem) func() {
	item.seq = d.seq
	d.seq = d.seq.Next()
	d.rx = append(d.rx, item)
	return d.notify
}

// FailWrites makes the next n writes fail.
func (d *Device) FailWrites(n int) {
	d.lock.Lock()
	d.failWrites = n
	d.lock.Unlock()
}

// FailReads makes the next n reads fail.
func (d *Device) FailReads(n int) {
	d.lock.Lock()
	d.failReads = n
	d.lock.Unlock()
}

// Resets returns the number of Init and Deinit calls.
func (d *Device) Resets() (inits, deinits int) {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.inits, d.deinits
}

// ReadHints returns size hints of all reads.
func (d *Device) ReadHints() []int {
	d.lock.Lock()
	defer d.lock.Unlock()
	return append([]int(nil), d.hints...)
}
