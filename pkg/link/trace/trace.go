// Package trace writes a summary line for network frames crossing the
// link, for debugging traffic with the peripheral.
package trace

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Flags selects frames to trace.
type Flags uint

// Trace flags.
const (
	FlagEther Flags = 1 << iota
	FlagARP
	FlagIPv4
	FlagIPv6
)

// Ethernet types.
const (
	EtherTypeIPv4 uint16 = 0x0800
	EtherTypeARP  uint16 = 0x0806
	EtherTypeIPv6 uint16 = 0x86dd
)

const etherHeaderSize = 14

var flagNames = map[string]Flags{
	"ether": FlagEther,
	"arp":   FlagARP,
	"ipv4":  FlagIPv4,
	"ipv6":  FlagIPv6,
}

// ParseFlags parses comma separated flag names.
func ParseFlags(s string) (flags Flags, err error) {
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(strings.ToLower(name))
		if name == "" {
			continue
		}
		if name == "all" {
			flags |= FlagEther | FlagARP | FlagIPv4 | FlagIPv6
			continue
		}
		f, ok := flagNames[name]
		if !ok {
			return 0, fmt.Errorf("unknown trace flag %q", name)
		}
		flags |= f
	}
	return
}

// Tracer implements link.DataTracer.
type Tracer struct {
	Flags Flags

	w    io.Writer
	now  func() time.Time
	lock sync.Mutex
}

// New creates a Tracer writing to w.
func New(w io.Writer, flags Flags) *Tracer {
	return &Tracer{Flags: flags, w: w, now: time.Now}
}

// NewFile creates a Tracer writing to a size rotated file.
func NewFile(path string, flags Flags) *Tracer {
	return New(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    16,
		MaxBackups: 4,
		Compress:   true,
	}, flags)
}

// Close closes the underlying writer if possible.
func (t *Tracer) Close() error {
	if closer, ok := t.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// TraceData implements link.DataTracer.
func (t *Tracer) TraceData(tx bool, data []byte) {
	line, ok := t.Format(tx, data)
	if !ok {
		return
	}
	t.lock.Lock()
	fmt.Fprintln(t.w, line)
	t.lock.Unlock()
}

// Format formats a frame, ok is false if the frame is filtered out.
func (t *Tracer) Format(tx bool, data []byte) (string, bool) {
	dir := "RX"
	if tx {
		dir = "TX"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s len=%d", t.now().UTC().Format(time.RFC3339Nano), dir, len(data))
	if len(data) < etherHeaderSize {
		return sb.String(), t.Flags&FlagEther != 0
	}
	etherType := binary.BigEndian.Uint16(data[12:])
	fmt.Fprintf(&sb, " %s > %s type=%04x",
		net.HardwareAddr(data[6:12]), net.HardwareAddr(data[0:6]), etherType)
	traced := t.Flags&FlagEther != 0
	body := data[etherHeaderSize:]
	switch etherType {
	case EtherTypeARP:
		traced = traced || t.Flags&FlagARP != 0
		sb.WriteString(" arp")
		if len(body) >= 8 {
			fmt.Fprintf(&sb, " op=%d", binary.BigEndian.Uint16(body[6:]))
		}
	case EtherTypeIPv4:
		traced = traced || t.Flags&FlagIPv4 != 0
		if h, err := ipv4.ParseHeader(body); err == nil {
			fmt.Fprintf(&sb, " ipv4 %s > %s proto=%d ttl=%d", h.Src, h.Dst, h.Protocol, h.TTL)
		} else {
			fmt.Fprintf(&sb, " ipv4 invalid: %v", err)
		}
	case EtherTypeIPv6:
		traced = traced || t.Flags&FlagIPv6 != 0
		if h, err := ipv6.ParseHeader(body); err == nil {
			fmt.Fprintf(&sb, " ipv6 %s > %s next=%d hops=%d", h.Src, h.Dst, h.NextHeader, h.HopLimit)
		} else {
			fmt.Fprintf(&sb, " ipv6 invalid: %v", err)
		}
	}
	return sb.String(), traced
}
