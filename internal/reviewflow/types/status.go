package types

import "fmt"

// Status is the workflow state of a record.
type Status string

const (
	StatusPendingA  Status = "pending_a"
	StatusPendingB  Status = "pending_b"
	StatusPendingC  Status = "pending_c"
	StatusFinalized Status = "finalized"
	StatusRejected  Status = "rejected"
)

// Statuses lists every state in workflow order.
var Statuses = []Status{
	StatusPendingA,
	StatusPendingB,
	StatusPendingC,
	StatusFinalized,
	StatusRejected,
}

func (s Status) Valid() bool {
	switch s {
	case StatusPendingA, StatusPendingB, StatusPendingC, StatusFinalized, StatusRejected:
		return true
	}
	return false
}

// IsTerminal reports whether no further actions are legal.
func (s Status) IsTerminal() bool {
	return s == StatusFinalized || s == StatusRejected
}

func (s Status) String() string { return string(s) }

func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q", v)
	}
	return s, nil
}

// Action is a reviewer decision applied to a record.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

func (a Action) Valid() bool {
	return a == ActionApprove || a == ActionReject
}

func (a Action) String() string { return string(a) }

func ParseAction(v string) (Action, error) {
	a := Action(v)
	if !a.Valid() {
		return "", fmt.Errorf("unknown action %q", v)
	}
	return a, nil
}
