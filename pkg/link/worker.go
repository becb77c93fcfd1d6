package link

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/xrlink/pkg/link/frame"
)

// bytes dumped when a frame fails validation.
const (
	dumpShortLimit = 50
	dumpLen        = 40
)

func (s *Session) setState(state State) {
	s.state.Store(int32(state))
}

func (s *Session) loop(ctx context.Context) error {
	s.ready.Store(true)
	defer s.ready.Store(false)
	defer s.setState(StateStopped)

	var rxLen int
	for {
		s.setState(StateWaiting)
		rx, tx, err := s.waitEvent(ctx, rxLen)
		if err != nil {
			glog.Info("link worker exit")
			return err
		}
		if rx || rxLen > 0 {
			s.setState(StateReceiving)
			rxLen = s.receive(ctx, rxLen)
		}
		if tx && !s.rxPause.Load() {
			s.setState(StateTransmitting)
			s.transmit(ctx)
		}
	}
}

// waitEvent checks the wake conditions before blocking so a wake up
// signaled before the wait is never lost.
func (s *Session) waitEvent(ctx context.Context, rxLen int) (rx, tx bool, err error) {
	var poll <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return false, false, ctx.Err()
		default:
		}
		rx = s.hw.RxPending()
		tx = s.pending.Load() > 0 && !s.rxPause.Load()
		if rx || tx || rxLen > 0 {
			return
		}
		if s.config.PollInterval > 0 && poll == nil {
			poll = time.After(s.config.PollInterval)
		}
		select {
		case <-ctx.Done():
			return false, false, ctx.Err()
		case <-s.wakeCh:
		case <-poll:
			poll = nil
		}
	}
}

// receive reads and dispatches one frame, and returns the length of the
// next frame announced by the peripheral.
func (s *Session) receive(ctx context.Context, rxLen int) int {
	size := rxLen
	if size <= 0 {
		size = s.config.ProbeSize
	}
	buf, err := s.hw.Read(size)
	if err != nil {
		glog.Errorf("hwio read error, reset it: %v", err)
		s.resetHardware(ctx)
		return 0
	}
	if len(buf) == 0 {
		return 0
	}
	f, err := frame.Decode(buf)
	if err != nil {
		s.stats.rxDropped.Add(1)
		s.dumpFrame(f, buf, err)
		return 0
	}
	if !s.tracker.check(f.Seq) {
		s.stats.seqGaps.Add(1)
	}
	if f.Type.IsCmd() {
		s.stats.rxFrames[classCmd].Add(1)
		s.dispatchCmd(f.Payload)
	} else {
		s.stats.rxFrames[classData].Add(1)
		s.dispatchData(f.Payload)
	}
	return int(f.NextLen)
}

func (s *Session) dumpFrame(f *frame.Frame, buf []byte, err error) {
	if f == nil {
		glog.Errorf("drop rx frame: %v", err)
		return
	}
	n := int(f.CurLen) + int(f.Offset)
	if n >= dumpShortLimit {
		n = dumpLen
	}
	if n > len(buf) {
		n = len(buf)
	}
	glog.Errorf("drop rx frame, cur_len:%d, next_len:%d, offset:%d: %v\n%s",
		f.CurLen, f.NextLen, f.Offset, err, hex.Dump(buf[:n]))
}

func (s *Session) dispatchCmd(payload []byte) {
	typ, ok := CmdType(payload)
	if !ok {
		glog.Warningf("drop short command payload: %d bytes", len(payload))
		return
	}
	types := s.config.CmdTypes
	switch {
	case typ == types.RxPause:
		s.peerPause()
		return
	case typ == types.RxResume:
		s.peerResume()
		return
	}
	h := s.Cmd
	if h == nil {
		glog.V(4).Infof("no command handler, drop type %#x", typ)
		return
	}
	var err error
	if types.IsLow(typ) {
		err = h.HandleLowCmd(payload)
	} else {
		err = h.HandleUpCmd(payload)
	}
	if err != nil {
		glog.Errorf("command %#x handler error: %v", typ, err)
	}
}

func (s *Session) dispatchData(payload []byte) {
	if t := s.Tracer; t != nil {
		t.TraceData(false, payload)
	}
	if n := s.Net; n != nil {
		n.DataInput(payload)
	}
}

// nextTx checks out the next frame, commands first.
func (s *Session) nextTx() ([]byte, class, uint8, bool) {
	for c, q := range s.queues {
		if buf, key, ok := q.Get(); ok {
			return buf, class(c), key, true
		}
	}
	return nil, 0, 0, false
}

func (s *Session) transmit(ctx context.Context) {
	pending := s.pending.Load()
	buf, c, key, ok := s.nextTx()
	if !ok {
		s.pending.CompareAndSwap(pending, 0)
		sleep(ctx, s.config.IdleDelay)
		return
	}
	q := s.queues[c]
	if err := s.hw.Write(buf); err != nil {
		q.Release(key)
		glog.Errorf("hwio write error, reset it: %v", err)
		s.resetHardware(ctx)
		return
	}
	q.Remove(key)
	s.stats.txFrames[c].Add(1)
	glog.V(4).Infof("tx %s seq %d done", c, key)
	for {
		n := s.pending.Load()
		if n <= 0 || s.pending.CompareAndSwap(n, n-1) {
			break
		}
	}
	s.checkTxResume()
}

func (s *Session) resetHardware(ctx context.Context) {
	s.stats.hwResets.Add(1)
	if err := s.hw.Deinit(); err != nil {
		glog.Warningf("deinit hardware: %v", err)
	}
	sleep(ctx, s.config.ResetDelay)
	if err := s.hw.Init(); err != nil {
		glog.Errorf("init hardware: %v", err)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
