package grpcapi

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/service"
)

func codeForKind(k service.ErrorKind) codes.Code {
	switch k {
	case service.KindNotFound:
		return codes.NotFound
	case service.KindUnauthorized:
		return codes.PermissionDenied
	case service.KindInvalidTransition:
		return codes.FailedPrecondition
	case service.KindMissingNotes, service.KindInvalidInput:
		return codes.InvalidArgument
	case service.KindConflict:
		return codes.Aborted
	default:
		return codes.Internal
	}
}

// toStatus converts a workflow error into a gRPC status. The message is
// prefixed with the stable error kind so clients can branch without parsing.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return status.Error(codes.Canceled, err.Error())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	kind := service.KindOf(err)
	if kind == service.KindInternal {
		return status.Error(codes.Internal, "internal: unexpected server error")
	}
	return status.Errorf(codeForKind(kind), "%s: %v", kind, err)
}

// KindFromStatus recovers the workflow error kind from a status message.
func KindFromStatus(err error) service.ErrorKind {
	st, ok := status.FromError(err)
	if !ok || st.Code() == codes.OK {
		return ""
	}
	msg := st.Message()
	for _, k := range []service.ErrorKind{
		service.KindNotFound, service.KindUnauthorized, service.KindInvalidTransition,
		service.KindMissingNotes, service.KindConflict, service.KindInvalidInput,
	} {
		if strings.HasPrefix(msg, string(k)+":") {
			return k
		}
	}
	return service.KindInternal
}
