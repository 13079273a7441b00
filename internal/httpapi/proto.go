package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const protobufContentType = "application/x-protobuf"

// maxRequestBody caps JSON request bodies; survey payloads can be large.
const maxRequestBody = 1 << 20

// wantsProtobuf reports whether the client asked for a protobuf response.
func wantsProtobuf(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, protobufContentType) ||
		strings.Contains(accept, "application/protobuf")
}

// ToStruct converts any JSON-encodable object into a google.protobuf.Struct.
func ToStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("response is not an object: %w", err)
	}
	return structpb.NewStruct(m)
}

// writeProto marshals msg and writes it with the given HTTP status.
func writeProto(w http.ResponseWriter, status int, msg proto.Message) {
	data, err := proto.Marshal(msg)
	if err != nil {
		http.Error(w, "proto marshal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", protobufContentType)
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
