package hwio

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/xrlink/pkg/link/frame"
	"github.com/robotalks/xrlink/pkg/link/hwio/stream"
)

func pipeChannel() (*Channel, chan net.Conn) {
	peerCh := make(chan net.Conn, 1)
	ch := NewChannel(func() (PacketConn, error) {
		host, peer := net.Pipe()
		peerCh <- peer
		return stream.New(host), nil
	})
	return ch, peerCh
}

func TestChannelReceive(t *testing.T) {
	ch, peerCh := pipeChannel()
	notifyCh := make(chan struct{}, 8)
	ch.SetRxNotifier(func() { notifyCh <- struct{}{} })
	require.False(t, ch.RxPending())
	_, err := ch.Read(0)
	require.Equal(t, ErrClosed, err)

	require.NoError(t, ch.Init())
	peer := <-peerCh
	defer peer.Close()

	b := frame.MustEncode([]byte{1, 2, 3}, frame.TypeData, 5, 4)
	go peer.Write(append(append([]byte(nil), b...), b...))

	for i := 0; i < 2; i++ {
		select {
		case <-notifyCh:
		case <-time.After(time.Second):
			t.Fatal("no rx notification")
		}
	}
	require.True(t, ch.RxPending())
	for i := 0; i < 2; i++ {
		pkt, err := ch.Read(0)
		require.NoError(t, err)
		require.Equal(t, b, pkt)
	}
	require.False(t, ch.RxPending())
	pkt, err := ch.Read(0)
	require.NoError(t, err)
	require.Nil(t, pkt)
	require.NoError(t, ch.Deinit())
	require.False(t, ch.RxPending())
}

func TestChannelWrite(t *testing.T) {
	ch, peerCh := pipeChannel()
	require.NoError(t, ch.Init())
	peer := <-peerCh
	defer peer.Close()

	b := frame.MustEncode([]byte("hello"), frame.TypeCmd, 1, 4)
	errCh := make(chan error, 1)
	go func() { errCh <- ch.Write(b) }()
	got := make([]byte, len(b))
	_, err := io.ReadFull(peer, got)
	require.NoError(t, err)
	require.Equal(t, b, got)
	require.NoError(t, <-errCh)

	require.NoError(t, ch.Deinit())
	require.Equal(t, ErrClosed, ch.Write(b))
}

func TestChannelReadError(t *testing.T) {
	ch, peerCh := pipeChannel()
	notifyCh := make(chan struct{}, 1)
	ch.SetRxNotifier(func() { notifyCh <- struct{}{} })
	require.NoError(t, ch.Init())
	peer := <-peerCh
	peer.Close()

	select {
	case <-notifyCh:
	case <-time.After(time.Second):
		t.Fatal("no rx notification")
	}
	require.True(t, ch.RxPending())
	_, err := ch.Read(0)
	require.Error(t, err)

	require.NoError(t, ch.Deinit())
	require.NoError(t, ch.Init())
	peer = <-peerCh
	defer peer.Close()
	require.False(t, ch.RxPending())
	require.NoError(t, ch.Deinit())
}
