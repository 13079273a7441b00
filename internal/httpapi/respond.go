package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/service"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Retry   bool   `json:"retry,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: code, Message: msg})
}

// respond writes v as JSON, or as a protobuf Struct when the client asked.
func respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	if wantsProtobuf(r) {
		msg, err := ToStruct(v)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "cannot encode response")
			return
		}
		writeProto(w, status, msg)
		return
	}
	writeJSON(w, status, v)
}

func statusForKind(k service.ErrorKind) int {
	switch k {
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindUnauthorized:
		return http.StatusForbidden
	case service.KindInvalidTransition, service.KindConflict:
		return http.StatusConflict
	case service.KindMissingNotes:
		return http.StatusUnprocessableEntity
	case service.KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError maps workflow errors onto HTTP. Internal errors are
// logged and hidden from the client.
func (s *Server) writeServiceError(w http.ResponseWriter, op string, err error) {
	kind := service.KindOf(err)
	status := statusForKind(kind)
	if kind == service.KindInternal {
		s.logger.Printf("%s error: %v", op, err)
		writeError(w, status, "internal_error", "unexpected server error")
		return
	}
	writeJSON(w, status, errorBody{Error: string(kind), Message: err.Error(), Retry: kind.Retryable()})
}

// decodeJSON reads a single JSON object, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data after JSON object")
	}
	return nil
}
