package grpcapi

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// decode unpacks a Struct into a JSON-tagged Go value.
func decode(in *structpb.Struct, v any) error {
	if in == nil {
		in = &structpb.Struct{}
	}
	b, err := protojson.Marshal(in)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

// encode packs a JSON-encodable object into a Struct.
func encode(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return out, nil
}
