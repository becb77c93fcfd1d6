package link

import "encoding/binary"

// Hardware is the bus channel to the peripheral.
type Hardware interface {
	// RxPending tells if the peripheral has data for the host.
	RxPending() bool
	// Read reads one frame. sizeHint is the length announced by the
	// previous frame, or the probe size. A nil buffer means nothing to read.
	Read(sizeHint int) ([]byte, error)
	// Write writes one frame.
	Write([]byte) error
	// Init brings up the channel.
	Init() error
	// Deinit shuts down the channel.
	Deinit() error
}

// RxNotifiable is implemented by Hardware which can wake up the worker
// when inbound data arrives.
type RxNotifiable interface {
	SetRxNotifier(func())
}

// NetDevice is the network interface fed by the session.
type NetDevice interface {
	// DataInput delivers an inbound network frame.
	DataInput([]byte)
	// TxPause asks the network side to stop sending data.
	TxPause()
	// TxResume allows the network side to send data again.
	TxResume()
}

// CommandHandler consumes inbound command payloads.
type CommandHandler interface {
	// HandleLowCmd handles device internal responses.
	HandleLowCmd([]byte) error
	// HandleUpCmd handles all other command responses.
	HandleUpCmd([]byte) error
}

// DataTracer observes network frames passing the session.
type DataTracer interface {
	TraceData(tx bool, data []byte)
}

// CmdTypes identifies command payload types with special meanings.
type CmdTypes struct {
	// RxPause is sent by the peripheral to pause host transmission.
	RxPause uint16 `yaml:"rxPause"`
	// RxResume is sent by the peripheral to resume host transmission.
	RxResume uint16 `yaml:"rxResume"`
	// LowFirst and LowLast bound the range dispatched to HandleLowCmd.
	LowFirst uint16 `yaml:"lowFirst"`
	LowLast  uint16 `yaml:"lowLast"`
}

// IsLow tells if typ belongs to the low level range.
func (c CmdTypes) IsLow(typ uint16) bool {
	return typ >= c.LowFirst && typ <= c.LowLast
}

// CmdTypeSize is the size of the type field leading a command payload.
const CmdTypeSize = 2

// CmdType extracts the type of a command payload.
func CmdType(payload []byte) (uint16, bool) {
	if len(payload) < CmdTypeSize {
		return 0, false
	}
	return binary.LittleEndian.Uint16(payload), true
}

// CmdPayload builds a command payload with type and body.
func CmdPayload(typ uint16, body []byte) []byte {
	b := make([]byte, CmdTypeSize+len(body))
	binary.LittleEndian.PutUint16(b, typ)
	copy(b[CmdTypeSize:], body)
	return b
}

// State is the state of the worker.
type State int32

// Worker states.
const (
	StateStopped State = iota
	StateWaiting
	StateReceiving
	StateTransmitting
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateReceiving:
		return "receiving"
	case StateTransmitting:
		return "transmitting"
	}
	return "stopped"
}
