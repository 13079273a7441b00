package types

import "time"

// AuditEntry is one immutable fact about a workflow transition.
type AuditEntry struct {
	Seq        int64     `json:"seq"`
	RecordID   string    `json:"record_id"`
	ActorID    string    `json:"actor_id"`
	ActorRole  Role      `json:"actor_role"`
	FromStatus Status    `json:"from_status"`
	ToStatus   Status    `json:"to_status"`
	Action     Action    `json:"action"`
	Notes      string    `json:"notes,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
