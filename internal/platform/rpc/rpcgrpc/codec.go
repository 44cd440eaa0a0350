package rpcgrpc

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// CodecName is the content subtype procedure calls are sent with.
const CodecName = "formrpc-json"

// Frame carries one JSON-encoded procedure payload.
type Frame struct {
	Data json.RawMessage
}

// Codec passes Frame payloads through untouched and JSON-encodes anything
// else. It is registered under CodecName so proto services on the same
// server, such as health, keep the default codec.
type Codec struct{}

func init() {
	encoding.RegisterCodec(Codec{})
}

func (Codec) Marshal(v any) ([]byte, error) {
	switch msg := v.(type) {
	case *Frame:
		if len(msg.Data) == 0 {
			return []byte("null"), nil
		}
		return msg.Data, nil
	case nil:
		return nil, fmt.Errorf("marshal nil message")
	default:
		return json.Marshal(v)
	}
}

func (Codec) Unmarshal(data []byte, v any) error {
	switch msg := v.(type) {
	case *Frame:
		msg.Data = append(msg.Data[:0], data...)
		return nil
	default:
		return json.Unmarshal(data, v)
	}
}

func (Codec) Name() string {
	return CodecName
}
