package service

import "github.com/BrandonDHaskell/reviewflow/internal/reviewflow/types"

// nextStatus is the workflow transition table. ok is false when the action
// is not defined for from.
func nextStatus(from types.Status, action types.Action, sampled bool) (to types.Status, ok bool) {
	switch from {
	case types.StatusPendingA:
		switch action {
		case types.ActionApprove:
			if sampled {
				return types.StatusPendingB, true
			}
			return types.StatusFinalized, true
		case types.ActionReject:
			return types.StatusRejected, true
		}
	case types.StatusPendingB:
		switch action {
		case types.ActionApprove:
			return types.StatusPendingC, true
		case types.ActionReject:
			return types.StatusPendingA, true
		}
	case types.StatusPendingC:
		switch action {
		case types.ActionApprove:
			return types.StatusFinalized, true
		case types.ActionReject:
			return types.StatusPendingA, true
		}
	case types.StatusFinalized, types.StatusRejected:
	}
	return "", false
}

// notesRequired: a record sent back to the interviewer must say why.
func notesRequired(from types.Status, action types.Action) bool {
	return action == types.ActionReject &&
		(from == types.StatusPendingB || from == types.StatusPendingC)
}

// needsSamplingDecision is true on the first approve out of pending_a.
func needsSamplingDecision(rec types.Record, action types.Action) bool {
	return rec.Status == types.StatusPendingA && action == types.ActionApprove && rec.Sampled == nil
}
