package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/store"
	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/types"
)

// ActionRequest is one reviewer decision on one record.
type ActionRequest struct {
	RecordID string       `json:"record_id"`
	ActorID  string       `json:"actor_id"`
	Action   types.Action `json:"action"`
	Notes    string       `json:"notes,omitempty"`
}

// ActionResult describes an applied transition.
type ActionResult struct {
	Record types.Record     `json:"record"`
	Entry  types.AuditEntry `json:"audit_entry"`
}

// BulkRequest applies the same action to many records, in order.
type BulkRequest struct {
	RecordIDs []string     `json:"record_ids"`
	ActorID   string       `json:"actor_id"`
	Action    types.Action `json:"action"`
	Notes     string       `json:"notes,omitempty"`
}

// BulkResult is the outcome for one record of a bulk request. Err is nil on
// success.
type BulkResult struct {
	RecordID string
	Status   types.Status
	Err      error
}

type EngineDependencies struct {
	Records  store.RecordStore
	Audit    store.AuditTrail
	Roles    *RoleRegistry
	Sampling *SamplingPolicy
	OpLog    *OpLog

	// Now is the clock used for audit timestamps; defaults to time.Now.
	Now func() time.Time
}

// Engine is the review workflow state machine. It owns every mutation of a
// record after import; each transition is validated against the role table
// and committed together with its audit entry under an optimistic version
// check.
type Engine struct {
	records  store.RecordStore
	audit    store.AuditTrail
	roles    *RoleRegistry
	sampling *SamplingPolicy
	oplog    *OpLog
	now      func() time.Time
}

func NewEngine(d EngineDependencies) *Engine {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		records:  d.Records,
		audit:    d.Audit,
		roles:    d.Roles,
		sampling: d.Sampling,
		oplog:    d.OpLog,
		now:      now,
	}
}

// ApplyAction validates and applies one action. On success exactly one audit
// entry has been durably written alongside the new state.
func (e *Engine) ApplyAction(ctx context.Context, req ActionRequest) (ActionResult, error) {
	res, err := e.applyAction(ctx, req)
	if err != nil {
		e.logFailure(ctx, "apply action failed", req.RecordID, req.ActorID, req.Action, err)
		return ActionResult{}, err
	}

	e.oplog.Info(ctx, CategoryWorkflow, "transition applied", map[string]any{
		"record_id": res.Record.ID,
		"actor_id":  res.Entry.ActorID,
		"action":    string(res.Entry.Action),
		"from":      string(res.Entry.FromStatus),
		"to":        string(res.Entry.ToStatus),
	})
	return res, nil
}

func (e *Engine) applyAction(ctx context.Context, req ActionRequest) (ActionResult, error) {
	recordID := strings.TrimSpace(req.RecordID)
	actorID := strings.TrimSpace(req.ActorID)

	rec, err := e.records.Get(ctx, recordID)
	if err != nil {
		return ActionResult{}, fromStore(err, recordID)
	}

	if !req.Action.Valid() {
		return ActionResult{}, fmt.Errorf("%w: unknown action %q", ErrInvalidTransition, req.Action)
	}
	if rec.Status.IsTerminal() {
		return ActionResult{}, fmt.Errorf("%w: record %s is %s", ErrInvalidTransition, rec.ID, rec.Status)
	}

	role, err := e.authorize(ctx, rec, actorID)
	if err != nil {
		return ActionResult{}, err
	}

	notes := strings.TrimSpace(req.Notes)
	if notesRequired(rec.Status, req.Action) && notes == "" {
		return ActionResult{}, fmt.Errorf("%w: reject from %s", ErrMissingNotes, rec.Status)
	}

	sampled := rec.Sampled
	if needsSamplingDecision(rec, req.Action) {
		v := e.sampling.Decide(rec)
		sampled = &v
	}

	to, ok := nextStatus(rec.Status, req.Action, sampled != nil && *sampled)
	if !ok {
		return ActionResult{}, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, req.Action, rec.Status)
	}

	// Audit time never runs backwards for a record.
	ts := e.now().UTC()
	if ts.Before(rec.ModifiedAt) {
		ts = rec.ModifiedAt
	}

	after := rec
	after.Status = to
	after.AssignedRole = e.roles.RequiredRole(to)
	after.AssignedActor = ""
	after.Sampled = sampled
	after.ModifiedAt = ts

	entry := types.AuditEntry{
		RecordID:   rec.ID,
		ActorID:    actorID,
		ActorRole:  role,
		FromStatus: rec.Status,
		ToStatus:   to,
		Action:     req.Action,
		Notes:      notes,
		Timestamp:  ts,
	}

	saved, err := e.records.Commit(ctx, store.Transition{Before: rec, After: after, Entry: entry})
	if err != nil {
		return ActionResult{}, fromStore(err, rec.ID)
	}
	return ActionResult{Record: saved, Entry: entry}, nil
}

// authorize checks the actor's role against the record's state and, when the
// record is claimed, that the actor is the claimant.
func (e *Engine) authorize(ctx context.Context, rec types.Record, actorID string) (types.Role, error) {
	role, err := e.roles.RoleOf(ctx, actorID)
	if err != nil {
		return types.RoleNone, err
	}
	if !e.roles.CanAct(role, rec.Status) {
		return types.RoleNone, fmt.Errorf("%w: role %s cannot act on %s (requires %s)",
			ErrUnauthorized, role, rec.Status, e.roles.RequiredRole(rec.Status))
	}
	if rec.AssignedActor != "" && rec.AssignedActor != actorID {
		return types.RoleNone, fmt.Errorf("%w: record %s is claimed by %s",
			ErrUnauthorized, rec.ID, rec.AssignedActor)
	}
	return role, nil
}

// ApplyBulk applies the request to each record in turn. A failure on one
// record never rolls back or stops the others.
func (e *Engine) ApplyBulk(ctx context.Context, req BulkRequest) []BulkResult {
	out := make([]BulkResult, 0, len(req.RecordIDs))
	for _, id := range req.RecordIDs {
		res, err := e.ApplyAction(ctx, ActionRequest{
			RecordID: id,
			ActorID:  req.ActorID,
			Action:   req.Action,
			Notes:    req.Notes,
		})
		br := BulkResult{RecordID: id, Err: err}
		if err == nil {
			br.Status = res.Record.Status
		}
		out = append(out, br)
	}
	return out
}

func (e *Engine) Get(ctx context.Context, recordID string) (types.Record, error) {
	rec, err := e.records.Get(ctx, strings.TrimSpace(recordID))
	if err != nil {
		return types.Record{}, fromStore(err, recordID)
	}
	return rec, nil
}

func (e *Engine) List(ctx context.Context, f types.RecordFilter) ([]types.Record, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, f.Status)
	}
	if f.Role != types.RoleNone && !f.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, f.Role)
	}
	if !f.From.IsZero() && !f.To.IsZero() && !f.From.Before(f.To) {
		return nil, fmt.Errorf("%w: empty date range", ErrInvalidInput)
	}
	return e.records.List(ctx, f)
}

// History returns the record's audit entries as a lazy sequence; ranging it
// again re-reads the trail.
func (e *Engine) History(ctx context.Context, recordID string) (iter.Seq2[types.AuditEntry, error], error) {
	rec, err := e.Get(ctx, recordID)
	if err != nil {
		return nil, err
	}
	return e.audit.History(ctx, rec.ID), nil
}

// CollectHistory drains History into a slice.
func (e *Engine) CollectHistory(ctx context.Context, recordID string) ([]types.AuditEntry, error) {
	seq, err := e.History(ctx, recordID)
	if err != nil {
		return nil, err
	}
	out := []types.AuditEntry{}
	for entry, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

// Claim assigns a record to a single actor holding the role its state needs.
// Claiming a record already claimed by someone else is a conflict.
func (e *Engine) Claim(ctx context.Context, recordID, actorID string) (types.Record, error) {
	actorID = strings.TrimSpace(actorID)
	rec, err := e.Get(ctx, recordID)
	if err != nil {
		return types.Record{}, err
	}
	if rec.Status.IsTerminal() {
		return types.Record{}, fmt.Errorf("%w: record %s is %s", ErrInvalidTransition, rec.ID, rec.Status)
	}
	role, err := e.roles.RoleOf(ctx, actorID)
	if err != nil {
		return types.Record{}, err
	}
	if !e.roles.CanAct(role, rec.Status) {
		return types.Record{}, fmt.Errorf("%w: role %s cannot claim %s", ErrUnauthorized, role, rec.Status)
	}
	if rec.AssignedActor == actorID {
		return rec, nil
	}
	if rec.AssignedActor != "" {
		return types.Record{}, fmt.Errorf("%w: record %s is claimed by %s", ErrConflict, rec.ID, rec.AssignedActor)
	}

	saved, err := e.records.Update(ctx, rec.ID, rec.Version, func(r *types.Record) error {
		r.AssignedActor = actorID
		r.ModifiedAt = e.now().UTC()
		return nil
	})
	if err != nil {
		err = fromStore(err, rec.ID)
		e.logFailure(ctx, "claim failed", rec.ID, actorID, "", err)
		return types.Record{}, err
	}
	e.oplog.Info(ctx, CategoryWorkflow, "record claimed", map[string]any{
		"record_id": rec.ID, "actor_id": actorID, "status": string(rec.Status),
	})
	return saved, nil
}

// Release drops the caller's claim so any actor with the right role may act.
func (e *Engine) Release(ctx context.Context, recordID, actorID string) (types.Record, error) {
	actorID = strings.TrimSpace(actorID)
	rec, err := e.Get(ctx, recordID)
	if err != nil {
		return types.Record{}, err
	}
	if rec.AssignedActor == "" {
		return rec, nil
	}
	if rec.AssignedActor != actorID {
		return types.Record{}, fmt.Errorf("%w: record %s is claimed by %s", ErrUnauthorized, rec.ID, rec.AssignedActor)
	}

	saved, err := e.records.Update(ctx, rec.ID, rec.Version, func(r *types.Record) error {
		r.AssignedActor = ""
		r.ModifiedAt = e.now().UTC()
		return nil
	})
	if err != nil {
		return types.Record{}, fromStore(err, rec.ID)
	}
	return saved, nil
}

// EditPayload replaces the survey answers while the record is still with the
// interviewer; later stages see it read-only.
func (e *Engine) EditPayload(ctx context.Context, recordID, actorID string, payload json.RawMessage) (types.Record, error) {
	actorID = strings.TrimSpace(actorID)
	if err := validPayload(payload); err != nil {
		return types.Record{}, err
	}
	rec, err := e.Get(ctx, recordID)
	if err != nil {
		return types.Record{}, err
	}
	if rec.Status != types.StatusPendingA {
		return types.Record{}, fmt.Errorf("%w: payload is read-only in %s", ErrInvalidTransition, rec.Status)
	}
	if _, err := e.authorize(ctx, rec, actorID); err != nil {
		return types.Record{}, err
	}

	saved, err := e.records.Update(ctx, rec.ID, rec.Version, func(r *types.Record) error {
		if r.Status != types.StatusPendingA {
			return store.ErrConflict
		}
		r.Payload = append(json.RawMessage(nil), payload...)
		r.ModifiedAt = e.now().UTC()
		return nil
	})
	if err != nil {
		err = fromStore(err, rec.ID)
		e.logFailure(ctx, "payload edit failed", rec.ID, actorID, "", err)
		return types.Record{}, err
	}
	e.oplog.Info(ctx, CategoryWorkflow, "payload edited", map[string]any{
		"record_id": rec.ID, "actor_id": actorID,
	})
	return saved, nil
}

// logFailure emits a warning for caller errors and an error for anything
// the caller cannot fix.
func (e *Engine) logFailure(ctx context.Context, msg, recordID, actorID string, action types.Action, err error) {
	kind := KindOf(err)
	fields := map[string]any{
		"record_id": recordID,
		"actor_id":  actorID,
		"kind":      string(kind),
		"error":     err.Error(),
	}
	if action != "" {
		fields["action"] = string(action)
	}
	if kind == KindInternal && !errors.Is(err, context.Canceled) {
		e.oplog.Error(ctx, CategoryWorkflow, msg, fields)
		return
	}
	e.oplog.Warning(ctx, CategoryWorkflow, msg, fields)
}
