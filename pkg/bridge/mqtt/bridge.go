// Package mqtt bridges a link session to an MQTT broker. Inbound network
// frames and command responses are published, while network frames and
// command requests from the broker are sent to the peripheral.
//
// Topics, relative to <prefix>/<device-id>/:
//
//	net/rx   inbound network frames (published)
//	net/tx   outbound network frames (subscribed)
//	cmd/req  command requests (subscribed)
//	cmd/up   command responses (published)
//	cmd/low  device internal command responses (published)
//	state    running/paused/offline, retained (published)
//	stats    session counters (published)
package mqtt

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/xrlink/pkg/link"
)

// Topics relative to the device prefix.
const (
	TopicNetRx  = "net/rx"
	TopicNetTx  = "net/tx"
	TopicCmdReq = "cmd/req"
	TopicCmdUp  = "cmd/up"
	TopicCmdLow = "cmd/low"
	TopicState  = "state"
	TopicStats  = "stats"
)

// Defaults of Bridge options.
const (
	DefaultCmdBacklog    = 16
	DefaultCmdTimeout    = 5 * time.Second
	DefaultStatsInterval = 10 * time.Second
)

// ErrNotConnected indicates the broker is not reachable.
var ErrNotConnected = errors.New("broker not connected")

// Link is the session side of the bridge.
type Link interface {
	SendData([]byte) error
	SendCommand(context.Context, []byte) error
	Stats() link.Stats
}

// Bridge implements link.NetDevice and link.CommandHandler over MQTT.
type Bridge struct {
	Queue         *Queue
	Link          Link
	CmdTimeout    time.Duration
	StatsInterval time.Duration

	cmdCh   chan []byte
	paused  atomic.Bool
	dropped atomic.Uint64
}

// New creates a Bridge connecting to brokerURL for the device.
func New(brokerURL, deviceID string) (*Bridge, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	topicPrefix += deviceID + "/"
	opts.SetBinaryWill(topicPrefix+TopicState, EncodeState(StateOffline), 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("xrlink:" + deviceID)
	}
	return NewWithQueue(NewQueue(opts, topicPrefix)), nil
}

// NewWithQueue creates a Bridge with an existing Queue.
func NewWithQueue(q *Queue) *Bridge {
	b := &Bridge{
		Queue:         q,
		CmdTimeout:    DefaultCmdTimeout,
		StatsInterval: DefaultStatsInterval,
		cmdCh:         make(chan []byte, DefaultCmdBacklog),
	}
	q.OnConnect = func(*Queue) { b.publishState() }
	return b
}

// Attach connects the bridge with the session in both directions.
func (b *Bridge) Attach(s *link.Session) {
	b.Link = s
	s.Net = b
	s.Cmd = b
}

// Dropped returns the number of messages from the broker which were
// dropped because the session could not accept them.
func (b *Bridge) Dropped() uint64 {
	return b.dropped.Load()
}

// Name implements framework.Named.
func (b *Bridge) Name() string {
	return "mqtt-bridge"
}

// Run implements framework.Runnable.
func (b *Bridge) Run(ctx context.Context) error {
	b.Queue.Sub(TopicNetTx, b.handleNetTx)
	b.Queue.Sub(TopicCmdReq, b.handleCmdReq)
	token := b.Queue.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return err
	}
	defer b.Queue.Close()

	var tickCh <-chan time.Time
	if b.StatsInterval > 0 {
		ticker := time.NewTicker(b.StatsInterval)
		defer ticker.Stop()
		tickCh = ticker.C
	}
	for {
		select {
		case <-ctx.Done():
			b.Queue.PubWith(TopicState, EncodeState(StateOffline), 1, true).WaitTimeout(time.Second)
			return nil
		case payload := <-b.cmdCh:
			b.sendCommand(ctx, payload)
		case <-tickCh:
			b.PublishStats()
		}
	}
}

// PublishStats publishes current session counters.
func (b *Bridge) PublishStats() {
	if b.Link == nil {
		return
	}
	payload, err := EncodeStats(b.Link.Stats())
	if err != nil {
		glog.Errorf("encode stats error: %v", err)
		return
	}
	b.Queue.Pub(TopicStats, payload)
}

// DataInput implements link.NetDevice.
func (b *Bridge) DataInput(data []byte) {
	b.Queue.Pub(TopicNetRx, data)
}

// TxPause implements link.NetDevice.
func (b *Bridge) TxPause() {
	b.paused.Store(true)
	b.publishState()
}

// TxResume implements link.NetDevice.
func (b *Bridge) TxResume() {
	b.paused.Store(false)
	b.publishState()
}

// HandleLowCmd implements link.CommandHandler.
func (b *Bridge) HandleLowCmd(payload []byte) error {
	return b.pub(TopicCmdLow, payload)
}

// HandleUpCmd implements link.CommandHandler.
func (b *Bridge) HandleUpCmd(payload []byte) error {
	return b.pub(TopicCmdUp, payload)
}

func (b *Bridge) pub(topic string, payload []byte) error {
	if !b.Queue.Client.IsConnected() {
		return ErrNotConnected
	}
	b.Queue.PubWith(topic, payload, 1, false)
	return nil
}

func (b *Bridge) publishState() {
	state := StateRunning
	if b.paused.Load() {
		state = StatePaused
	}
	b.Queue.PubWith(TopicState, EncodeState(state), 1, true)
}

func (b *Bridge) handleNetTx(_ string, payload []byte) {
	if b.Link == nil {
		return
	}
	switch err := b.Link.SendData(payload); err {
	case nil:
	case link.ErrQueueFull:
		b.dropped.Add(1)
		glog.V(2).Infof("net/tx dropped %d bytes: queue full", len(payload))
	default:
		b.dropped.Add(1)
		glog.Warningf("net/tx dropped %d bytes: %v", len(payload), err)
	}
}

// Command requests may wait for queue space, which must not stall the
// MQTT client, so they are handed over to Run.
func (b *Bridge) handleCmdReq(_ string, payload []byte) {
	select {
	case b.cmdCh <- payload:
	default:
		b.dropped.Add(1)
		glog.Warningf("cmd/req dropped %d bytes: backlog full", len(payload))
	}
}

func (b *Bridge) sendCommand(ctx context.Context, payload []byte) {
	if b.Link == nil {
		return
	}
	if b.CmdTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.CmdTimeout)
		defer cancel()
	}
	if err := b.Link.SendCommand(ctx, payload); err != nil {
		b.dropped.Add(1)
		glog.Warningf("cmd/req failed: %v", err)
	}
}
