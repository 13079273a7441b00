package service

import (
	"errors"
	"fmt"

	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/store"
)

// Workflow errors. All of them are recoverable by the caller: refetch and
// retry on ErrConflict, correct the input otherwise.
var (
	ErrNotFound          = errors.New("record not found")
	ErrUnauthorized      = errors.New("actor is not authorized to act on this record")
	ErrInvalidTransition = errors.New("action is not valid in the record's current state")
	ErrMissingNotes      = errors.New("notes are required for this rejection")
	ErrConflict          = errors.New("record was modified concurrently")
	ErrInvalidInput      = errors.New("invalid input")
)

// ErrorKind is the stable wire name of a workflow error.
type ErrorKind string

const (
	KindNotFound          ErrorKind = "not_found"
	KindUnauthorized      ErrorKind = "unauthorized"
	KindInvalidTransition ErrorKind = "invalid_transition"
	KindMissingNotes      ErrorKind = "missing_notes"
	KindConflict          ErrorKind = "conflict"
	KindInvalidInput      ErrorKind = "invalid_input"
	KindInternal          ErrorKind = "internal"
)

// KindOf classifies err; nil yields "".
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrInvalidTransition):
		return KindInvalidTransition
	case errors.Is(err, ErrMissingNotes):
		return KindMissingNotes
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	default:
		return KindInternal
	}
}

// Retryable reports whether the caller should refetch and try again.
func (k ErrorKind) Retryable() bool { return k == KindConflict }

// fromStore maps store sentinels onto workflow errors.
func fromStore(err error, recordID string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, recordID)
	case errors.Is(err, store.ErrConflict):
		return fmt.Errorf("%w: %s", ErrConflict, recordID)
	default:
		return fmt.Errorf("record %s: %w", recordID, err)
	}
}
