package mqtt

import (
	"encoding/json"

	"github.com/golang/protobuf/jsonpb"
	"github.com/golang/protobuf/proto"
	structpb "github.com/golang/protobuf/ptypes/struct"
	"github.com/golang/protobuf/ptypes/wrappers"

	"github.com/robotalks/xrlink/pkg/link"
)

// Values published on TopicState.
const (
	StateRunning = "running"
	StatePaused  = "paused"
	StateOffline = "offline"
)

// EncodeState encodes the bridge state as wrappers.StringValue.
func EncodeState(state string) []byte {
	b, err := proto.Marshal(&wrappers.StringValue{Value: state})
	if err != nil {
		panic(err)
	}
	return b
}

// DecodeState decodes a payload from TopicState.
func DecodeState(payload []byte) (string, error) {
	var val wrappers.StringValue
	if err := proto.Unmarshal(payload, &val); err != nil {
		return "", err
	}
	return val.Value, nil
}

// EncodeStats encodes session counters as structpb.Struct, keyed by the
// JSON names of link.Stats fields.
func EncodeStats(stats link.Stats) ([]byte, error) {
	js, err := json.Marshal(&stats)
	if err != nil {
		return nil, err
	}
	var st structpb.Struct
	if err = jsonpb.UnmarshalString(string(js), &st); err != nil {
		return nil, err
	}
	return proto.Marshal(&st)
}

// DecodeStats decodes a payload from TopicStats.
func DecodeStats(payload []byte) (*structpb.Struct, error) {
	st := &structpb.Struct{}
	if err := proto.Unmarshal(payload, st); err != nil {
		return nil, err
	}
	return st, nil
}
