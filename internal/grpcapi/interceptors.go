package grpcapi

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (s *Server) logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Printf("grpc %s %s dur=%s", info.FullMethod, status.Code(err), time.Since(start))
	return resp, err
}

func (s *Server) logStream(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	start := time.Now()
	err := handler(srv, ss)
	s.logger.Printf("grpc %s %s dur=%s", info.FullMethod, status.Code(err), time.Since(start))
	return err
}

func (s *Server) recoverUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if v := recover(); v != nil {
			s.logger.Printf("panic in %s: %v", info.FullMethod, v)
			err = status.Error(codes.Internal, "internal: unexpected server error")
		}
	}()
	return handler(ctx, req)
}

type actorCtxKey struct{}

// actorFrom returns the identity stored by the identity interceptors.
func actorFrom(ctx context.Context) string {
	a, _ := ctx.Value(actorCtxKey{}).(string)
	return a
}

// identityUnary authenticates every unary call before it reaches a handler,
// reads included.
func (s *Server) identityUnary(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	actor, err := s.resolveActor(ctx)
	if err != nil {
		return nil, err
	}
	return handler(context.WithValue(ctx, actorCtxKey{}, actor), req)
}

func (s *Server) identityStream(srv any, ss grpc.ServerStream, _ *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	actor, err := s.resolveActor(ss.Context())
	if err != nil {
		return err
	}
	return handler(srv, &actorStream{ServerStream: ss, ctx: context.WithValue(ss.Context(), actorCtxKey{}, actor)})
}

type actorStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (a *actorStream) Context() context.Context { return a.ctx }
