package frame

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncated indicates the buffer is shorter than the frame claims.
	ErrTruncated = errors.New("truncated frame")
	// ErrBadOffset indicates the payload offset points into the header.
	ErrBadOffset = errors.New("invalid payload offset")
	// ErrTooLarge indicates the frame exceeds the accepted size.
	ErrTooLarge = errors.New("frame too large")
)

// ChecksumError is returned when the payload doesn't match the checksum.
type ChecksumError struct {
	Expected uint16
	Actual   uint16
}

// Error implements error.
func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch: expect %04x, actual %04x", e.Expected, e.Actual)
}
