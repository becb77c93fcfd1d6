package link

import "sync/atomic"

// Stats is a snapshot of session counters.
type Stats struct {
	TxCmdFrames   uint64 `json:"tx_cmd_frames"`
	TxDataFrames  uint64 `json:"tx_data_frames"`
	RxCmdFrames   uint64 `json:"rx_cmd_frames"`
	RxDataFrames  uint64 `json:"rx_data_frames"`
	RxDropped     uint64 `json:"rx_dropped"`
	SeqGaps       uint64 `json:"seq_gaps"`
	HWResets      uint64 `json:"hw_resets"`
	CmdQueueFull  uint64 `json:"cmd_queue_full"`
	DataQueueFull uint64 `json:"data_queue_full"`

	CmdQueued  int  `json:"cmd_queued"`
	DataQueued int  `json:"data_queued"`
	CmdPaused  bool `json:"cmd_paused"`
	DataPaused bool `json:"data_paused"`
	PeerPaused bool `json:"peer_paused"`
}

type counters struct {
	txFrames      [classCount]atomic.Uint64
	rxFrames      [classCount]atomic.Uint64
	rxDropped     atomic.Uint64
	seqGaps       atomic.Uint64
	hwResets      atomic.Uint64
	cmdQueueFull  atomic.Uint64
	dataQueueFull atomic.Uint64
}

// Stats returns current counters.
func (s *Session) Stats() Stats {
	return Stats{
		TxCmdFrames:   s.stats.txFrames[classCmd].Load(),
		TxDataFrames:  s.stats.txFrames[classData].Load(),
		RxCmdFrames:   s.stats.rxFrames[classCmd].Load(),
		RxDataFrames:  s.stats.rxFrames[classData].Load(),
		RxDropped:     s.stats.rxDropped.Load(),
		SeqGaps:       s.stats.seqGaps.Load(),
		HWResets:      s.stats.hwResets.Load(),
		CmdQueueFull:  s.stats.cmdQueueFull.Load(),
		DataQueueFull: s.stats.dataQueueFull.Load(),
		CmdQueued:     s.queues[classCmd].Len(),
		DataQueued:    s.queues[classData].Len(),
		CmdPaused:     s.paused[classCmd].Load(),
		DataPaused:    s.paused[classData].Load(),
		PeerPaused:    s.rxPause.Load(),
	}
}
