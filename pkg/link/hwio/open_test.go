package hwio

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/xrlink/pkg/link/hwio/sim"
)

func TestOpen(t *testing.T) {
	testCases := []struct {
		url  string
		kind interface{}
		fail bool
	}{
		{url: "sim://", kind: &sim.Device{}},
		{url: "sim://?echo=true&align=8", kind: &sim.Device{}},
		{url: "sim://?align=0", fail: true},
		{url: "sim://?echo=maybe", fail: true},
		{url: "tcp://localhost:7000", kind: &Channel{}},
		{url: "unix:///tmp/bus.sock", kind: &Channel{}},
		{url: "serial:///dev/ttyUSB0?baud=115200", kind: &Channel{}},
		{url: "serial://", fail: true},
		{url: "serial:///dev/ttyUSB0?baud=fast", fail: true},
		{url: "ws://localhost:8080/bus?origin=http://host/", kind: &Channel{}},
		{url: "spi://0", fail: true},
		{url: "%%", fail: true},
	}
	for _, tc := range testCases {
		t.Run(tc.url, func(t *testing.T) {
			hw, err := Open(tc.url)
			if tc.fail {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.IsType(t, tc.kind, hw)
		})
	}
}

func TestOpenSimOptions(t *testing.T) {
	hw, err := Open("sim://?echo=true&align=8")
	require.NoError(t, err)
	dev := hw.(*sim.Device)
	require.True(t, dev.Echo)
	require.Equal(t, 8, dev.Align)
}
