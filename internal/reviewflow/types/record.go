package types

import (
	"encoding/json"
	"time"
)

// Record is one imported survey response under review.
type Record struct {
	ID            string          `json:"id"`
	SurveyID      string          `json:"survey_id"`
	ResponseID    string          `json:"response_id"`
	Status        Status          `json:"status"`
	AssignedRole  Role            `json:"assigned_role"`
	AssignedActor string          `json:"assigned_actor,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	Sampled       *bool           `json:"sampled,omitempty"` // nil until the first approve leaves pending_a
	Version       int64           `json:"version"`
	CreatedAt     time.Time       `json:"created_at"`
	ModifiedAt    time.Time       `json:"modified_at"`
}

// IsSampled reports the cached sampling decision; false when undecided.
func (r Record) IsSampled() bool {
	return r.Sampled != nil && *r.Sampled
}

// RecordFilter narrows list queries. Zero values match everything.
type RecordFilter struct {
	Status   Status
	Role     Role
	SurveyID string
	From     time.Time // created_at >= From
	To       time.Time // created_at < To
	Limit    int
	Offset   int
}

// Matches applies the filter to a single record (used by in-memory stores).
func (f RecordFilter) Matches(r Record) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Role != RoleNone && r.AssignedRole != f.Role {
		return false
	}
	if f.SurveyID != "" && r.SurveyID != f.SurveyID {
		return false
	}
	if !f.From.IsZero() && r.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !r.CreatedAt.Before(f.To) {
		return false
	}
	return true
}
