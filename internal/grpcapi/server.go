package grpcapi

import (
	"context"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/reviewflow/internal/auth"
	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/service"
	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/types"
)

const (
	maxListLimit  = 500
	maxListOffset = 1 << 30
)

// ActorMetadataKey carries the actor id when no JWT secret is configured.
const ActorMetadataKey = "x-actor-id"

type Dependencies struct {
	Logger    *log.Logger
	Engine    *service.Engine
	JWTSecret string
}

// Server exposes the review engine over gRPC.
type Server struct {
	logger *log.Logger
	engine *service.Engine
	secret string

	grpcServer *grpc.Server
}

func NewServer(deps Dependencies) *Server {
	s := &Server{logger: deps.Logger, engine: deps.Engine, secret: deps.JWTSecret}
	if s.logger == nil {
		s.logger = log.Default()
	}
	s.grpcServer = grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.recoverUnary, s.logUnary, s.identityUnary),
		grpc.ChainStreamInterceptor(s.logStream, s.identityStream),
	)
	RegisterWorkflowServer(s.grpcServer, s)
	return s
}

// GRPCServer returns the underlying server, e.g. to serve a bufconn listener.
func (s *Server) GRPCServer() *grpc.Server { return s.grpcServer }

func (s *Server) Serve(lis net.Listener) error {
	s.logger.Printf("grpc listening on %s", lis.Addr())
	return s.grpcServer.Serve(lis)
}

// Stop drains in-flight calls until ctx expires, then forces the stop.
func (s *Server) Stop(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.grpcServer.Stop()
	}
}

type actionRequest struct {
	RecordID string `json:"record_id"`
	Action   string `json:"action"`
	Notes    string `json:"notes"`
}

type bulkRequest struct {
	RecordIDs []string `json:"record_ids"`
	Action    string   `json:"action"`
	Notes     string   `json:"notes"`
}

type recordRequest struct {
	RecordID string `json:"record_id"`
}

type listRequest struct {
	Status   string  `json:"status"`
	Role     string  `json:"role"`
	SurveyID string  `json:"survey_id"`
	From     string  `json:"from"`
	To       string  `json:"to"`
	Limit    float64 `json:"limit"`
	Offset   float64 `json:"offset"`
}

type bulkItem struct {
	RecordID string       `json:"record_id"`
	OK       bool         `json:"ok"`
	Status   types.Status `json:"status,omitempty"`
	Error    string       `json:"error,omitempty"`
	Message  string       `json:"message,omitempty"`
}

func (s *Server) ApplyAction(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	actor := actorFrom(ctx)
	var req actionRequest
	if err := decode(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	action, err := types.ParseAction(req.Action)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%s: %v", service.KindInvalidInput, err)
	}

	res, err := s.engine.ApplyAction(ctx, service.ActionRequest{
		RecordID: req.RecordID,
		ActorID:  actor,
		Action:   action,
		Notes:    req.Notes,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(res)
}

func (s *Server) ApplyBulk(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	actor := actorFrom(ctx)
	var req bulkRequest
	if err := decode(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if len(req.RecordIDs) == 0 {
		return nil, status.Errorf(codes.InvalidArgument, "%s: record_ids is required", service.KindInvalidInput)
	}
	action, err := types.ParseAction(req.Action)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%s: %v", service.KindInvalidInput, err)
	}

	results := s.engine.ApplyBulk(ctx, service.BulkRequest{
		RecordIDs: req.RecordIDs,
		ActorID:   actor,
		Action:    action,
		Notes:     req.Notes,
	})
	items := make([]bulkItem, 0, len(results))
	for _, r := range results {
		it := bulkItem{RecordID: r.RecordID, OK: r.Err == nil, Status: r.Status}
		if r.Err != nil {
			it.Error = string(service.KindOf(r.Err))
			it.Message = r.Err.Error()
		}
		items = append(items, it)
	}
	return encode(map[string]any{"results": items})
}

func (s *Server) GetRecord(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req recordRequest
	if err := decode(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	rec, err := s.engine.Get(ctx, req.RecordID)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(rec)
}

func (s *Server) ListRecords(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req listRequest
	if err := decode(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	f, err := req.filter()
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%s: %v", service.KindInvalidInput, err)
	}
	recs, err := s.engine.List(ctx, f)
	if err != nil {
		return nil, toStatus(err)
	}
	if recs == nil {
		recs = []types.Record{}
	}
	return encode(map[string]any{"records": recs, "count": len(recs)})
}

// GetHistory streams the audit trail oldest first, one entry per message.
func (s *Server) GetHistory(in *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	var req recordRequest
	if err := decode(in, &req); err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	seq, err := s.engine.History(stream.Context(), req.RecordID)
	if err != nil {
		return toStatus(err)
	}
	for entry, err := range seq {
		if err != nil {
			return toStatus(err)
		}
		msg, err := encode(entry)
		if err != nil {
			return status.Error(codes.Internal, err.Error())
		}
		if err := stream.Send(msg); err != nil {
			return err
		}
	}
	return nil
}

func (r listRequest) filter() (types.RecordFilter, error) {
	var f types.RecordFilter
	var err error
	if r.Status != "" {
		if f.Status, err = types.ParseStatus(r.Status); err != nil {
			return f, err
		}
	}
	if r.Role != "" {
		if f.Role, err = types.ParseRole(r.Role); err != nil {
			return f, err
		}
	}
	f.SurveyID = strings.TrimSpace(r.SurveyID)
	if r.From != "" {
		if f.From, err = time.Parse(time.RFC3339, r.From); err != nil {
			return f, fmt.Errorf("from: %w", err)
		}
	}
	if r.To != "" {
		if f.To, err = time.Parse(time.RFC3339, r.To); err != nil {
			return f, fmt.Errorf("to: %w", err)
		}
	}
	// Struct numbers are doubles; NaN fails both comparisons.
	if !(r.Limit >= 0) || !(r.Offset >= 0) {
		return f, fmt.Errorf("limit and offset must be non-negative")
	}
	if r.Offset > maxListOffset {
		return f, fmt.Errorf("offset must be at most %d", maxListOffset)
	}
	f.Limit, f.Offset = int(min(r.Limit, maxListLimit)), int(r.Offset)
	return f, nil
}

// resolveActor reads the caller from the bearer token, or from x-actor-id
// when tokens are disabled.
func (s *Server) resolveActor(ctx context.Context) (string, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	if s.secret == "" {
		if v := md.Get(ActorMetadataKey); len(v) > 0 {
			return strings.TrimSpace(v[0]), nil
		}
		return "", nil
	}
	v := md.Get("authorization")
	if len(v) == 0 {
		return "", status.Error(codes.Unauthenticated, "bearer token required")
	}
	tok, ok := auth.BearerToken(v[0])
	if !ok {
		return "", status.Error(codes.Unauthenticated, "bearer token required")
	}
	id, err := auth.ParseActorToken(s.secret, tok)
	if err != nil {
		return "", status.Error(codes.Unauthenticated, "invalid token")
	}
	return id, nil
}
