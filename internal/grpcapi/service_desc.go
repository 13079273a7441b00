package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service. Messages are
// google.protobuf.Struct so no generated code is required on either side.
const ServiceName = "reviewflow.v1.Workflow"

const (
	methodApplyAction = "ApplyAction"
	methodApplyBulk   = "ApplyBulk"
	methodGetRecord   = "GetRecord"
	methodListRecords = "ListRecords"
	methodGetHistory  = "GetHistory"
)

func fullMethod(m string) string { return "/" + ServiceName + "/" + m }

// WorkflowServer is the server API for the Workflow service.
type WorkflowServer interface {
	ApplyAction(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ApplyBulk(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRecord(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListRecords(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetHistory(*structpb.Struct, grpc.ServerStreamingServer[structpb.Struct]) error
}

func RegisterWorkflowServer(s grpc.ServiceRegistrar, srv WorkflowServer) {
	s.RegisterService(&WorkflowServiceDesc, srv)
}

var WorkflowServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*WorkflowServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: methodApplyAction, Handler: unaryHandler(methodApplyAction, WorkflowServer.ApplyAction)},
		{MethodName: methodApplyBulk, Handler: unaryHandler(methodApplyBulk, WorkflowServer.ApplyBulk)},
		{MethodName: methodGetRecord, Handler: unaryHandler(methodGetRecord, WorkflowServer.GetRecord)},
		{MethodName: methodListRecords, Handler: unaryHandler(methodListRecords, WorkflowServer.ListRecords)},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    methodGetHistory,
			Handler:       getHistoryHandler,
			ServerStreams: true,
		},
	},
	Metadata: "reviewflow/v1/workflow.proto",
}

type unaryCall func(WorkflowServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(WorkflowServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(WorkflowServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func getHistoryHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(WorkflowServer).GetHistory(in, &grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}
