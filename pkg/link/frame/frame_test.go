package frame

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCRC16(t *testing.T) {
	require.Equal(t, uint16(0xbb3d), CRC16([]byte("123456789")))
	require.Equal(t, uint16(0), CRC16(nil))
}

func TestSeq(t *testing.T) {
	require.Equal(t, Seq(1), Seq(0).Next())
	require.Equal(t, Seq(0), Seq(255).Next())
	seq, typ := SplitMessage(Message(Seq(0x12), TypeCmd))
	require.Equal(t, Seq(0x12), seq)
	require.Equal(t, TypeCmd, typ)
}

func TestPayloadOffset(t *testing.T) {
	testCases := []struct {
		n, align, offset int
	}{
		{0, 4, 12},
		{1, 4, 11},
		{2, 4, 10},
		{3, 4, 13},
		{2, 1, 10},
		{2, 0, 10},
		{6, 32, 26},
		{22, 32, 10},
	}
	for _, tc := range testCases {
		offset := PayloadOffset(tc.n, tc.align)
		require.Equalf(t, tc.offset, offset, "n=%d align=%d", tc.n, tc.align)
		if tc.align > 1 {
			require.Zero(t, (offset+tc.n)%tc.align)
		}
	}
}

func TestEncode(t *testing.T) {
	testCases := []struct {
		name    string
		payload []byte
		typ     Type
		seq     Seq
		expect  []byte
	}{
		{
			"aligned cmd",
			[]byte{1, 2}, TypeCmd, 3,
			[]byte{2, 0, 0, 0, 10, 0, 0x01, 0x03, 0x80, 0x51, 1, 2},
		},
		{
			"padded data",
			[]byte{0xaa}, TypeData, 0x10,
			[]byte{1, 0, 0, 0, 11, 0, 0x00, 0x10, 0x80, 0x7f, 0, 0xaa},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expect, MustEncode(tc.payload, tc.typ, tc.seq, 4))
		})
	}
}

func TestEncodeTooLarge(t *testing.T) {
	testCases := []struct {
		size  int
		align int
		fail  bool
	}{
		{size: 65522, align: 4},
		{size: 65523, align: 4, fail: true},
		{size: 65525, align: 1},
		{size: 65526, align: 1, fail: true},
		{size: 70000, align: 4, fail: true},
	}
	for _, tc := range testCases {
		b, err := Encode(make([]byte, tc.size), TypeData, 1, tc.align)
		if tc.fail {
			require.Equal(t, ErrTooLarge, err, "size %d align %d", tc.size, tc.align)
			require.Nil(t, b)
			continue
		}
		require.NoError(t, err, "size %d align %d", tc.size, tc.align)
		f, err := Decode(b)
		require.NoError(t, err)
		require.Len(t, f.Payload, tc.size)
	}
	require.Panics(t, func() { MustEncode(make([]byte, 70000), TypeCmd, 0, 4) })
}

func TestRoundTrip(t *testing.T) {
	payloads := [][]byte{
		{},
		{0},
		[]byte("hello"),
		bytes.Repeat([]byte{0x5a, 0xa5, 0xff}, 500),
	}
	for _, align := range []int{1, 4, 32} {
		for n, payload := range payloads {
			for _, typ := range []Type{TypeData, TypeCmd} {
				seq := Seq(n * 77)
				f, err := Decode(MustEncode(payload, typ, seq, align))
				require.NoError(t, err)
				require.Equal(t, typ, f.Type)
				require.Equal(t, seq, f.Seq)
				require.Equal(t, len(payload), int(f.CurLen))
				require.Zero(t, f.NextLen)
				require.True(t, bytes.Equal(payload, f.Payload))
			}
		}
	}
}

func TestDecodeCorruption(t *testing.T) {
	payload := []byte("the quick brown fox")
	encoded := MustEncode(payload, TypeData, 9, 4)
	offset := PayloadOffset(len(payload), 4)
	for i := range payload {
		for _, flip := range []byte{0x01, 0x80, 0xff} {
			b := append([]byte(nil), encoded...)
			b[offset+i] ^= flip
			_, err := Decode(b)
			require.Error(t, err)
			require.IsType(t, &ChecksumError{}, err)
		}
	}
}

func TestDecodeMalformed(t *testing.T) {
	encoded := MustEncode([]byte{1, 2, 3, 4}, TypeCmd, 1, 4)

	_, err := Decode(encoded[:5])
	require.Equal(t, ErrTruncated, err)

	_, err = Decode(encoded[:len(encoded)-1])
	require.Equal(t, ErrTruncated, err)

	b := append([]byte(nil), encoded...)
	b[offOffset] = 4
	_, err = Decode(b)
	require.Equal(t, ErrBadOffset, err)
}

func TestNextLen(t *testing.T) {
	f := &Frame{NextLen: 300, Seq: 4, Type: TypeData, Payload: []byte{9}}
	decoded, err := Decode(f.Bytes(4))
	require.NoError(t, err)
	require.Equal(t, uint16(300), decoded.NextLen)
}

func TestReadFrom(t *testing.T) {
	var stream bytes.Buffer
	stream.Write(MustEncode([]byte("abc"), TypeCmd, 1, 4))
	stream.Write(MustEncode(nil, TypeData, 2, 4))
	stream.Write(MustEncode(bytes.Repeat([]byte{1}, 100), TypeData, 3, 4))

	b, err := ReadFrom(&stream, 0)
	require.NoError(t, err)
	f, err := Decode(b)
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), f.Payload)

	b, err = ReadFrom(&stream, 0)
	require.NoError(t, err)
	f, err = Decode(b)
	require.NoError(t, err)
	require.Empty(t, f.Payload)
	require.Equal(t, Seq(2), f.Seq)

	_, err = ReadFrom(&stream, 64)
	require.Equal(t, ErrTooLarge, err)

	_, err = ReadFrom(&bytes.Buffer{}, 0)
	require.Equal(t, io.EOF, err)
}
