package link

import "github.com/golang/glog"

// Resume thresholds: data resumes below 1/5 of the queue, commands below
// 4/5. Data is high volume and is throttled longer to avoid flapping the
// network queue, commands are latency sensitive.
func dataResumeLevel(capacity int) int { return capacity * 1 / 5 }
func cmdResumeLevel(capacity int) int  { return capacity * 4 / 5 }

func (s *Session) pauseData(reason string) {
	if s.paused[classData].CompareAndSwap(false, true) {
		glog.V(2).Infof("tx data pause (%s): %d", reason, s.queues[classData].Len())
		if n := s.Net; n != nil {
			n.TxPause()
		}
	}
}

func (s *Session) resumeData(reason string) {
	if s.paused[classData].CompareAndSwap(true, false) {
		glog.V(2).Infof("tx data resume (%s): %d", reason, s.queues[classData].Len())
		if n := s.Net; n != nil {
			n.TxResume()
		}
	}
}

func (s *Session) checkDataResume() {
	if !s.paused[classData].Load() || s.rxPause.Load() {
		return
	}
	q := s.queues[classData]
	if q.Len() < dataResumeLevel(q.Cap()) {
		s.resumeData("queue drained")
	}
}

func (s *Session) checkCmdResume() {
	if !s.paused[classCmd].Load() {
		return
	}
	q := s.queues[classCmd]
	if q.Len() < cmdResumeLevel(q.Cap()) && s.paused[classCmd].CompareAndSwap(true, false) {
		glog.V(2).Infof("tx cmd resume: %d", q.Len())
		select {
		case s.cmdSem <- struct{}{}:
		default:
		}
	}
}

func (s *Session) checkTxResume() {
	s.checkDataResume()
	s.checkCmdResume()
}

// peerPause handles the pause request from the peripheral.
func (s *Session) peerPause() {
	s.rxPause.Store(true)
	s.pauseData("device rx pause")
	glog.V(2).Info("device rx pause")
}

// peerResume handles the resume request from the peripheral.
func (s *Session) peerResume() {
	s.rxPause.Store(false)
	s.resumeData("device rx resume")
	glog.V(2).Info("device rx resume")
	s.wake()
}
