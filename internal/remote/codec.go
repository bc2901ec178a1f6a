package remote

import (
	"connectrpc.com/connect"
	"github.com/bytedance/sonic"
)

// jsonCodec replaces connect's protojson codec so that plain Go structs can
// travel as messages.
type jsonCodec struct{}

func (jsonCodec) Name() string {
	return "json"
}

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	return sonic.ConfigStd.Marshal(msg)
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	return sonic.ConfigStd.Unmarshal(data, msg)
}

// Codec is the codec both ends of the task service must use.
func Codec() connect.Codec {
	return jsonCodec{}
}
