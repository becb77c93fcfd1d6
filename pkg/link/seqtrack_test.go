package link

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/xrlink/pkg/link/frame"
)

func TestSeqTracker(t *testing.T) {
	testCases := []struct {
		name string
		seqs []frame.Seq
		gaps int
	}{
		{"continuous", []frame.Seq{5, 6, 7, 8}, 0},
		{"wrap", []frame.Seq{254, 255, 0, 1}, 0},
		{"one gap", []frame.Seq{0, 1, 3, 4, 5}, 1},
		{"resync after gap", []frame.Seq{10, 20, 21, 22}, 1},
		{"repeated", []frame.Seq{1, 1, 2}, 1},
		{"two gaps", []frame.Seq{0, 2, 4}, 2},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var tracker seqTracker
			gaps := 0
			for _, seq := range tc.seqs {
				if !tracker.check(seq) {
					gaps++
				}
			}
			require.Equal(t, tc.gaps, gaps)
		})
	}
}

func TestSeqTrackerReset(t *testing.T) {
	var tracker seqTracker
	require.True(t, tracker.check(3))
	tracker.reset()
	require.True(t, tracker.check(9))
	require.True(t, tracker.check(10))
}

func TestResumeLevels(t *testing.T) {
	require.Equal(t, 2, dataResumeLevel(10))
	require.Equal(t, 8, cmdResumeLevel(10))
	require.Equal(t, 12, dataResumeLevel(64))
	require.Equal(t, 12, cmdResumeLevel(16))
}

func TestCmdTypes(t *testing.T) {
	types := DefaultCmdTypes
	require.True(t, types.IsLow(types.LowFirst))
	require.True(t, types.IsLow(types.LowLast))
	require.False(t, types.IsLow(types.LowLast+1))
	require.False(t, types.IsLow(types.RxPause))

	payload := CmdPayload(0x1234, []byte{9})
	require.Equal(t, []byte{0x34, 0x12, 9}, payload)
	typ, ok := CmdType(payload)
	require.True(t, ok)
	require.Equal(t, uint16(0x1234), typ)
	_, ok = CmdType([]byte{1})
	require.False(t, ok)
}
