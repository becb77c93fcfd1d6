package frame

import (
	"encoding/binary"
	"io"
)

// HeaderSize is the size of the fixed frame header.
const HeaderSize = 10

// MaxFrameSize is the largest frame, bounded by the 16-bit length fields.
const MaxFrameSize = 0xffff

// Header field offsets.
const (
	offCurLen   = 0
	offNextLen  = 2
	offOffset   = 4
	offMessage  = 6
	offChecksum = 8
)

// Type is the type tag carried in the low byte of message.
type Type byte

// Type tags.
const (
	TypeData Type = 0x00
	TypeCmd  Type = 0x01
)

// IsCmd tells if the tag belongs to the command class.
// Any non-zero tag is treated as command traffic.
func (t Type) IsCmd() bool {
	return t != TypeData
}

// String implements fmt.Stringer.
func (t Type) String() string {
	if t.IsCmd() {
		return "cmd"
	}
	return "data"
}

// Seq is the wrapping sequence number of a frame.
type Seq byte

// Next calculates the next sequence number.
func (s Seq) Next() Seq {
	return s + 1
}

// Message packs sequence and type into the message field.
func Message(seq Seq, typ Type) uint16 {
	return uint16(seq)<<8 | uint16(typ)
}

// SplitMessage unpacks the message field.
func SplitMessage(msg uint16) (Seq, Type) {
	return Seq(msg >> 8), Type(msg & 0xff)
}

// Frame is a decoded frame.
type Frame struct {
	CurLen   uint16
	NextLen  uint16
	Offset   uint16
	Seq      Seq
	Type     Type
	Checksum uint16
	Payload  []byte
}

// PayloadOffset calculates where the payload starts for a payload of n
// bytes so that the whole frame is a multiple of align.
func PayloadOffset(n, align int) int {
	offset := HeaderSize
	if align > 1 {
		if r := (HeaderSize + n) % align; r != 0 {
			offset += align - r
		}
	}
	return offset
}

// CheckSize verifies a payload of n bytes fits in one frame.
func CheckSize(n, align int) error {
	if PayloadOffset(n, align)+n > MaxFrameSize {
		return ErrTooLarge
	}
	return nil
}

// Bytes encodes the frame. CurLen, Offset and Checksum are calculated
// from Payload and align, the values in the struct are ignored.
// The payload must pass CheckSize.
func (f *Frame) Bytes(align int) []byte {
	n := len(f.Payload)
	offset := PayloadOffset(n, align)
	b := make([]byte, offset+n)
	binary.LittleEndian.PutUint16(b[offCurLen:], uint16(n))
	binary.LittleEndian.PutUint16(b[offNextLen:], f.NextLen)
	binary.LittleEndian.PutUint16(b[offOffset:], uint16(offset))
	binary.LittleEndian.PutUint16(b[offMessage:], Message(f.Seq, f.Type))
	copy(b[offset:], f.Payload)
	binary.LittleEndian.PutUint16(b[offChecksum:], CRC16(b[offset:]))
	return b
}

// Encode builds a frame carrying payload.
func Encode(payload []byte, typ Type, seq Seq, align int) ([]byte, error) {
	if err := CheckSize(len(payload), align); err != nil {
		return nil, err
	}
	f := &Frame{Seq: seq, Type: typ, Payload: payload}
	return f.Bytes(align), nil
}

// MustEncode is like Encode but panics if payload is too large.
func MustEncode(payload []byte, typ Type, seq Seq, align int) []byte {
	b, err := Encode(payload, typ, seq, align)
	if err != nil {
		panic(err)
	}
	return b
}

// ParseHeader decodes the header without validating the payload.
func ParseHeader(b []byte) (*Frame, error) {
	if len(b) < HeaderSize {
		return nil, ErrTruncated
	}
	f := &Frame{
		CurLen:   binary.LittleEndian.Uint16(b[offCurLen:]),
		NextLen:  binary.LittleEndian.Uint16(b[offNextLen:]),
		Offset:   binary.LittleEndian.Uint16(b[offOffset:]),
		Checksum: binary.LittleEndian.Uint16(b[offChecksum:]),
	}
	f.Seq, f.Type = SplitMessage(binary.LittleEndian.Uint16(b[offMessage:]))
	if f.Offset < HeaderSize {
		return f, ErrBadOffset
	}
	return f, nil
}

// Decode decodes and verifies a frame. Payload refers to b.
func Decode(b []byte) (*Frame, error) {
	f, err := ParseHeader(b)
	if err != nil {
		return f, err
	}
	end := int(f.Offset) + int(f.CurLen)
	if end > len(b) {
		return f, ErrTruncated
	}
	f.Payload = b[f.Offset:end]
	if sum := CRC16(f.Payload); sum != f.Checksum {
		return f, &ChecksumError{Expected: f.Checksum, Actual: sum}
	}
	return f, nil
}

// ReadFrom reads exactly one frame from a byte stream.
// If max is positive, frames larger than max are rejected.
func ReadFrom(r io.Reader, max int) ([]byte, error) {
	head := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, err
	}
	f, err := ParseHeader(head)
	if err != nil {
		return nil, err
	}
	size := int(f.Offset) + int(f.CurLen)
	if max > 0 && size > max {
		return nil, ErrTooLarge
	}
	b := make([]byte, size)
	copy(b, head)
	if _, err = io.ReadFull(r, b[HeaderSize:]); err != nil {
		return nil, err
	}
	return b, nil
}
