// Package grpcjson is a gRPC codec that encodes messages as JSON. It lets
// services exchange plain Go structs without protobuf-generated types.
//
// Importing the package registers the codec under the "json" content
// subtype, so a server answers any client that sends application/grpc+json.
package grpcjson

import (
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// Name is the content subtype the codec registers under.
const Name = "json"

func init() {
	encoding.RegisterCodec(Codec{})
}

// Codec implements encoding.Codec with encoding/json.
type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (Codec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (Codec) Name() string {
	return Name
}

// CallOption forces JSON encoding on a client call.
func CallOption() grpc.CallOption {
	return grpc.ForceCodecCallOption{Codec: Codec{}}
}
