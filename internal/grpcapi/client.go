package grpcapi

import (
	"context"
	"errors"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client is a thin Workflow client over any connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// WithActor attaches the x-actor-id header to outgoing calls.
func WithActor(ctx context.Context, actorID string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, ActorMetadataKey, actorID)
}

// WithToken attaches a bearer token to outgoing calls.
func WithToken(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
}

func (c *Client) call(ctx context.Context, method string, in map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(in)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod(method), req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ApplyAction(ctx context.Context, recordID, action, notes string) (*structpb.Struct, error) {
	return c.call(ctx, methodApplyAction, map[string]any{
		"record_id": recordID, "action": action, "notes": notes,
	})
}

func (c *Client) ApplyBulk(ctx context.Context, recordIDs []string, action, notes string) (*structpb.Struct, error) {
	ids := make([]any, len(recordIDs))
	for i, id := range recordIDs {
		ids[i] = id
	}
	return c.call(ctx, methodApplyBulk, map[string]any{
		"record_ids": ids, "action": action, "notes": notes,
	})
}

func (c *Client) GetRecord(ctx context.Context, recordID string) (*structpb.Struct, error) {
	return c.call(ctx, methodGetRecord, map[string]any{"record_id": recordID})
}

// ListRecords takes the same filter keys the HTTP API accepts as query
// parameters.
func (c *Client) ListRecords(ctx context.Context, filter map[string]any) (*structpb.Struct, error) {
	if filter == nil {
		filter = map[string]any{}
	}
	return c.call(ctx, methodListRecords, filter)
}

// GetHistory drains the history stream.
func (c *Client) GetHistory(ctx context.Context, recordID string) ([]*structpb.Struct, error) {
	desc := &WorkflowServiceDesc.Streams[0]
	stream, err := c.cc.NewStream(ctx, desc, fullMethod(methodGetHistory))
	if err != nil {
		return nil, err
	}
	req, err := structpb.NewStruct(map[string]any{"record_id": recordID})
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}

	var out []*structpb.Struct
	for {
		msg := new(structpb.Struct)
		err := stream.RecvMsg(msg)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
}
