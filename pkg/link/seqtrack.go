package link

import (
	"github.com/golang/glog"

	"github.com/robotalks/xrlink/pkg/link/frame"
)

// seqTracker detects lost inbound frames. The peripheral numbers all its
// frames in one sequence regardless of type.
type seqTracker struct {
	synced bool
	expect frame.Seq
}

func (t *seqTracker) reset() {
	t.synced = false
}

// check returns false when seq doesn't follow the last one.
func (t *seqTracker) check(seq frame.Seq) bool {
	ok := !t.synced || seq == t.expect
	if !ok {
		glog.Warningf("missing frame, expect:%d, actual:%d", t.expect, seq)
	}
	t.synced, t.expect = true, seq.Next()
	return ok
}
