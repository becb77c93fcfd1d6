package mqtt

import (
	"context"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/xrlink/pkg/link"
)

type published struct {
	topic   string
	retain  bool
	payload []byte
}

type fakeClient struct {
	paho.Client

	lock      sync.Mutex
	connected bool
	pubs      []published
	subs      []string
}

func (c *fakeClient) IsConnected() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.connected
}

func (c *fakeClient) Connect() paho.Token {
	c.lock.Lock()
	c.connected = true
	c.lock.Unlock()
	return &paho.DummyToken{}
}

func (c *fakeClient) Disconnect(uint) {
	c.lock.Lock()
	c.connected = false
	c.lock.Unlock()
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.lock.Lock()
	c.pubs = append(c.pubs, published{topic: topic, retain: retained, payload: payload.([]byte)})
	c.lock.Unlock()
	return &paho.DummyToken{}
}

func (c *fakeClient) Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token {
	c.lock.Lock()
	c.subs = append(c.subs, topic)
	c.lock.Unlock()
	return &paho.DummyToken{}
}

func (c *fakeClient) published(topic string) (res []published) {
	c.lock.Lock()
	defer c.lock.Unlock()
	for _, p := range c.pubs {
		if p.topic == topic {
			res = append(res, p)
		}
	}
	return
}

type fakeLink struct {
	dataErr error
	dataCh  chan []byte
	cmdCh   chan []byte
	stats   link.Stats
}

func newFakeLink() *fakeLink {
	return &fakeLink{dataCh: make(chan []byte, 8), cmdCh: make(chan []byte, 8)}
}

func (l *fakeLink) SendData(b []byte) error {
	if l.dataErr != nil {
		return l.dataErr
	}
	l.dataCh <- b
	return nil
}

func (l *fakeLink) SendCommand(ctx context.Context, b []byte) error {
	l.cmdCh <- b
	return nil
}

func (l *fakeLink) Stats() link.Stats {
	return l.stats
}

func newTestBridge() (*Bridge, *fakeClient, *fakeLink) {
	client := &fakeClient{}
	b := NewWithQueue(&Queue{Client: client, TopicPrefix: "xr/dev1/"})
	l := newFakeLink()
	b.Link = l
	return b, client, l
}

func TestMatchTopic(t *testing.T) {
	testCases := []struct {
		topic, pattern string
		match          bool
	}{
		{"net/tx", "net/tx", true},
		{"net/tx", "net/rx", false},
		{"net/tx", "net/+", true},
		{"net/tx", "+/+", true},
		{"net/tx", "+", false},
		{"net/tx", "#", true},
		{"net/tx", "net/#", true},
		{"net", "net/#", true},
		{"net/tx/x", "net/+", false},
		{"net", "net/+", false},
	}
	for _, tc := range testCases {
		t.Run(tc.topic+"~"+tc.pattern, func(t *testing.T) {
			require.Equal(t, tc.match, MatchTopic(tc.topic, tc.pattern))
		})
	}
}

func TestClientOptionsFromURL(t *testing.T) {
	opts, prefix, err := ClientOptionsFromURL("mqtt://u:p@broker:1883/xr?client-id=abc")
	require.NoError(t, err)
	require.Equal(t, "xr/", prefix)
	require.Len(t, opts.Servers, 1)
	require.Equal(t, "tcp://broker:1883", opts.Servers[0].String())
	require.Equal(t, "u", opts.Username)
	require.Equal(t, "p", opts.Password)
	require.Equal(t, "abc", opts.ClientID)

	opts, prefix, err = ClientOptionsFromURL("mqtts://broker:8883")
	require.NoError(t, err)
	require.Empty(t, prefix)
	require.Equal(t, "ssl://broker:8883", opts.Servers[0].String())

	_, _, err = ClientOptionsFromURL("mqtt://%zz")
	require.Error(t, err)
}

func TestCodec(t *testing.T) {
	for _, state := range []string{StateRunning, StatePaused, StateOffline} {
		b := EncodeState(state)
		require.NotEmpty(t, b)
		decoded, err := DecodeState(b)
		require.NoError(t, err)
		require.Equal(t, state, decoded)
	}

	b, err := EncodeStats(link.Stats{TxDataFrames: 7, CmdQueued: 2, PeerPaused: true})
	require.NoError(t, err)
	st, err := DecodeStats(b)
	require.NoError(t, err)
	require.Equal(t, float64(7), st.Fields["tx_data_frames"].GetNumberValue())
	require.Equal(t, float64(2), st.Fields["cmd_queued"].GetNumberValue())
	require.True(t, st.Fields["peer_paused"].GetBoolValue())
	require.False(t, st.Fields["data_paused"].GetBoolValue())
}

func TestNetDevice(t *testing.T) {
	b, client, _ := newTestBridge()
	b.DataInput([]byte{1, 2, 3})
	pubs := client.published("xr/dev1/net/rx")
	require.Len(t, pubs, 1)
	require.Equal(t, []byte{1, 2, 3}, pubs[0].payload)

	b.TxPause()
	b.TxResume()
	pubs = client.published("xr/dev1/state")
	require.Len(t, pubs, 2)
	for i, expected := range []string{StatePaused, StateRunning} {
		require.True(t, pubs[i].retain)
		state, err := DecodeState(pubs[i].payload)
		require.NoError(t, err)
		require.Equal(t, expected, state)
	}
}

func TestCommandHandler(t *testing.T) {
	b, client, _ := newTestBridge()
	require.Equal(t, ErrNotConnected, b.HandleUpCmd([]byte{1}))
	client.Connect()
	require.NoError(t, b.HandleUpCmd([]byte{1}))
	require.NoError(t, b.HandleLowCmd([]byte{2}))
	require.Len(t, client.published("xr/dev1/cmd/up"), 1)
	require.Len(t, client.published("xr/dev1/cmd/low"), 1)
}

func TestNetTx(t *testing.T) {
	b, client, l := newTestBridge()
	b.Queue.Sub(TopicNetTx, b.handleNetTx)
	require.Empty(t, client.subs)

	b.Queue.deliver("xr/dev1/net/tx", []byte{9})
	require.Equal(t, []byte{9}, <-l.dataCh)
	b.Queue.deliver("xr/dev2/net/tx", []byte{8})
	b.Queue.deliver("xr/dev1/net/rx", []byte{7})
	require.Empty(t, l.dataCh)

	l.dataErr = link.ErrQueueFull
	b.Queue.deliver("xr/dev1/net/tx", []byte{9})
	require.Equal(t, uint64(1), b.Dropped())
}

func TestRun(t *testing.T) {
	b, client, l := newTestBridge()
	b.StatsInterval = 10 * time.Millisecond
	l.stats.RxDataFrames = 3
	ctx, cancel := context.WithCancel(context.Background())
	doneCh := make(chan error, 1)
	go func() { doneCh <- b.Run(ctx) }()

	require.Eventually(t, client.IsConnected, time.Second, time.Millisecond)
	b.Queue.deliver("xr/dev1/cmd/req", []byte{0x10, 0x00, 0xaa})
	select {
	case payload := <-l.cmdCh:
		require.Equal(t, []byte{0x10, 0x00, 0xaa}, payload)
	case <-time.After(time.Second):
		t.Fatal("command not sent")
	}
	require.Eventually(t, func() bool {
		return len(client.published("xr/dev1/stats")) > 0
	}, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-doneCh)
	require.False(t, client.IsConnected())
	pubs := client.published("xr/dev1/state")
	require.NotEmpty(t, pubs)
	state, err := DecodeState(pubs[len(pubs)-1].payload)
	require.NoError(t, err)
	require.Equal(t, StateOffline, state)
}
