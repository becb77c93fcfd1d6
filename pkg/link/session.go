package link

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/robotalks/xrlink/pkg/link/frame"
	"github.com/robotalks/xrlink/pkg/link/queue"
)

type class int

const (
	classCmd class = iota
	classData
	classCount
)

func (c class) String() string {
	if c == classCmd {
		return "cmd"
	}
	return "data"
}

// Session is the transport to one peripheral.
type Session struct {
	// Net receives inbound data and tx flow control.
	Net NetDevice
	// Cmd receives inbound command payloads.
	Cmd CommandHandler
	// Tracer is optional.
	Tracer DataTracer

	config Config
	hw     Hardware

	queues [classCount]*queue.Queue
	seqs   [classCount]frame.Seq
	paused [classCount]atomic.Bool

	pending atomic.Int32
	rxPause atomic.Bool
	ready   atomic.Bool
	state   atomic.Int32
	life    atomic.Pointer[lifetime]

	cmdLock  sync.Mutex
	dataLock sync.Mutex
	cmdSem   chan struct{}
	wakeCh   chan struct{}

	tracker seqTracker
	stats   counters

	runLock sync.Mutex
	cancel  context.CancelFunc
	doneCh  chan struct{}
}

type lifetime struct {
	done chan struct{}
}

// NewSession creates a Session with default config.
func NewSession(hw Hardware) *Session {
	s, err := NewConfig().NewSession(hw)
	if err != nil {
		panic(err)
	}
	return s
}

func newSession(conf Config, hw Hardware) *Session {
	s := &Session{
		config: conf,
		hw:     hw,
		cmdSem: make(chan struct{}, 1),
		wakeCh: make(chan struct{}, 1),
	}
	s.queues[classCmd] = queue.New(conf.CmdQueueCap)
	s.queues[classData] = queue.New(conf.DataQueueCap)
	return s
}

// Config returns the config used by the session.
func (s *Session) Config() Config {
	return s.config
}

// State returns the current worker state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// IsStarted tells if the session accepts traffic.
func (s *Session) IsStarted() bool {
	return s.life.Load() != nil
}

// Start registers the session and spawns the worker.
func (s *Session) Start(ctx context.Context) error {
	s.runLock.Lock()
	defer s.runLock.Unlock()
	if s.doneCh != nil {
		if s.IsStarted() {
			return ErrAlreadyStarted
		}
		// the worker exited as its context was done, reap it.
		<-s.doneCh
		s.cancel()
		s.cancel, s.doneCh = nil, nil
	}
	if err := s.register(); err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel, s.doneCh = cancel, make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		defer s.unregister()
		s.loop(ctx)
	}(s.doneCh)
	return nil
}

// Stop stops the worker and waits until it exits.
func (s *Session) Stop() {
	s.runLock.Lock()
	defer s.runLock.Unlock()
	if s.doneCh == nil {
		return
	}
	s.cancel()
	s.wake()
	<-s.doneCh
	s.cancel, s.doneCh = nil, nil
}

// Name implements Named.
func (s *Session) Name() string {
	return "link-session"
}

// Run implements Runnable. It registers the session, runs the worker
// until ctx is done and unregisters.
func (s *Session) Run(ctx context.Context) error {
	if err := s.register(); err != nil {
		return err
	}
	defer s.unregister()
	return s.loop(ctx)
}

func (s *Session) register() error {
	l := &lifetime{done: make(chan struct{})}
	if !s.life.CompareAndSwap(nil, l) {
		return ErrAlreadyStarted
	}
	s.cmdLock.Lock()
	s.dataLock.Lock()
	s.seqs = [classCount]frame.Seq{}
	s.dataLock.Unlock()
	s.cmdLock.Unlock()
	s.pending.Store(0)
	s.rxPause.Store(false)
	for c := range s.paused {
		s.paused[c].Store(false)
	}
	select {
	case <-s.cmdSem:
	default:
	}
	s.tracker.reset()
	if err := s.hw.Init(); err != nil {
		s.life.Store(nil)
		return fmt.Errorf("init hardware: %v", err)
	}
	if n, ok := s.hw.(RxNotifiable); ok {
		n.SetRxNotifier(s.NotifyRx)
	}
	glog.Info("link registered")
	return nil
}

func (s *Session) unregister() {
	l := s.life.Swap(nil)
	if l == nil {
		return
	}
	close(l.done)
	// producers hold the locks while queuing, wait for them to leave.
	s.cmdLock.Lock()
	s.dataLock.Lock()
	for _, q := range s.queues {
		q.Reset()
	}
	s.dataLock.Unlock()
	s.cmdLock.Unlock()
	if err := s.hw.Deinit(); err != nil {
		glog.Warningf("deinit hardware: %v", err)
	}
	glog.Info("link unregistered")
}

// NotifyRx wakes up the worker for inbound data.
func (s *Session) NotifyRx() {
	if !s.ready.Load() {
		return
	}
	s.wake()
}

func (s *Session) wake() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

func (s *Session) wakeTx() {
	s.pending.Add(1)
	s.wake()
}

// SendCommand frames and queues a command payload. When the command
// queue becomes full, it blocks until the queue drains or ctx is done.
// A command queued before ctx is done is still transmitted, and nil is
// returned.
func (s *Session) SendCommand(ctx context.Context, payload []byte) error {
	s.cmdLock.Lock()
	defer s.cmdLock.Unlock()
	l := s.life.Load()
	if l == nil {
		glog.Error("txrx not ready")
		return ErrNotReady
	}
	seq := s.seqs[classCmd]
	buf, err := frame.Encode(payload, frame.TypeCmd, seq, s.config.Align)
	if err != nil {
		return err
	}
	q := s.queues[classCmd]
	for {
		err := q.Put(buf, uint8(seq))
		if err == nil {
			break
		}
		if err != queue.ErrFull {
			return err
		}
		if err = s.waitCmdResume(ctx, l); err != nil {
			return err
		}
	}
	s.seqs[classCmd] = seq.Next()
	glog.V(4).Infof("tx cmd queued seq %d len %d", seq, len(payload))
	s.wakeTx()
	if q.Len() >= q.Cap() {
		switch err := s.waitCmdResume(ctx, l); err {
		case ErrNotReady:
			return err
		case nil:
		default:
			glog.V(2).Infof("tx cmd seq %d queued, stop waiting: %v", seq, err)
		}
	}
	return nil
}

// waitCmdResume pauses the command producer until the worker drains the
// queue below the resume level.
func (s *Session) waitCmdResume(ctx context.Context, l *lifetime) error {
	s.stats.cmdQueueFull.Add(1)
	glog.V(2).Infof("tx cmd queue full, pause: %d", s.queues[classCmd].Len())
	s.paused[classCmd].Store(true)
	s.checkCmdResume()
	select {
	case <-s.cmdSem:
		return nil
	case <-ctx.Done():
		s.abandonCmdWait()
		return ctx.Err()
	case <-l.done:
		s.abandonCmdWait()
		return ErrNotReady
	}
}

// abandonCmdWait clears the pause so no resume token is left behind for
// the next producer.
func (s *Session) abandonCmdWait() {
	if !s.paused[classCmd].CompareAndSwap(true, false) {
		// the worker resumed concurrently and is depositing the token.
		<-s.cmdSem
	}
}

// SendData frames and queues a network frame. It never blocks. Once the
// queue becomes full the NetDevice is paused, and further frames are
// rejected with ErrQueueFull which the caller should hold until TxResume.
func (s *Session) SendData(payload []byte) error {
	s.dataLock.Lock()
	defer s.dataLock.Unlock()
	if s.life.Load() == nil {
		glog.Error("txrx not ready")
		return ErrNotReady
	}
	seq := s.seqs[classData]
	buf, err := frame.Encode(payload, frame.TypeData, seq, s.config.Align)
	if err != nil {
		return err
	}
	q := s.queues[classData]
	if err := q.Put(buf, uint8(seq)); err != nil {
		if err != queue.ErrFull {
			return err
		}
		s.stats.dataQueueFull.Add(1)
		s.pauseData("queue full")
		s.checkDataResume()
		return ErrQueueFull
	}
	if t := s.Tracer; t != nil {
		t.TraceData(true, payload)
	}
	s.seqs[classData] = seq.Next()
	glog.V(4).Infof("tx data queued seq %d len %d", seq, len(payload))
	s.wakeTx()
	if q.Len() >= q.Cap() {
		s.pauseData("queue full")
		s.checkDataResume()
	}
	return nil
}
