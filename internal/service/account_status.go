package service

import (
	"secbank-cbs/internal/apperr"
	"secbank-cbs/internal/model"
)

// Operation names a mutating entry point of the account lifecycle.
type Operation string

const (
	OpUpdateStatus Operation = "UPDATE_STATUS"
	OpFreeze       Operation = "FREEZE"
	OpUnfreeze     Operation = "UNFREEZE"
	OpClose        Operation = "CLOSE"
	OpMarkDormant  Operation = "MARK_DORMANT"
	OpUpdate       Operation = "UPDATE"
)

type transition struct {
	from, to model.AccountStatus
}

// transitions maps every (from, to) pair to the error it raises; "" means allowed.
var transitions = buildTransitions()

func buildTransitions() map[transition]apperr.Code {
	t := make(map[transition]apperr.Code)
	for _, from := range model.AccountStatuses {
		for _, to := range model.AccountStatuses {
			var code apperr.Code
			switch {
			case from == model.AccountClosed:
				code = apperr.CodeTerminalState
			case from == model.AccountPending && to != model.AccountActive && to != model.AccountClosed:
				code = apperr.CodeIllegalTransition
			}
			t[transition{from, to}] = code
		}
	}
	return t
}

// sources restricts which states an operation may start from. Operations not
// listed accept any source the table allows.
var sources = map[Operation][]model.AccountStatus{
	OpFreeze:      {model.AccountActive, model.AccountDormant},
	OpUnfreeze:    {model.AccountFrozen},
	OpMarkDormant: {model.AccountActive},
}

// targets fixes the destination of single-purpose operations.
var targets = map[Operation]model.AccountStatus{
	OpFreeze:      model.AccountFrozen,
	OpUnfreeze:    model.AccountActive,
	OpClose:       model.AccountClosed,
	OpMarkDormant: model.AccountDormant,
}

// TargetOf returns the fixed destination of op, if it has one.
func TargetOf(op Operation) (model.AccountStatus, bool) {
	to, ok := targets[op]
	return to, ok
}

// CheckTransition validates moving an account from one status to another via op.
// OpUpdate leaves the status unchanged and only checks the account is not closed.
func CheckTransition(op Operation, from, to model.AccountStatus) error {
	if from == model.AccountClosed {
		if op == OpClose {
			return apperr.New(apperr.CodeAlreadyClosed, "Account is already closed")
		}
		return apperr.Newf(apperr.CodeTerminalState, "Account is closed; no further changes are permitted (requested %s)", to)
	}
	if op == OpUpdate {
		return nil
	}
	if allowed, ok := sources[op]; ok && !containsStatus(allowed, from) {
		return apperr.Newf(apperr.CodeIllegalTransition, "Cannot %s an account in status %s", opVerb(op), from)
	}
	code, ok := transitions[transition{from, to}]
	if !ok {
		return apperr.Newf(apperr.CodeValidation, "Unknown account status transition %s -> %s", from, to)
	}
	if code != "" {
		return apperr.Newf(code, "Illegal status transition %s -> %s", from, to)
	}
	return nil
}

func containsStatus(list []model.AccountStatus, s model.AccountStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func opVerb(op Operation) string {
	switch op {
	case OpFreeze:
		return "freeze"
	case OpUnfreeze:
		return "unfreeze"
	case OpMarkDormant:
		return "mark dormant"
	}
	return "change"
}
