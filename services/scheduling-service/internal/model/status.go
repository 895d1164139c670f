package model

// Status is the stored appointment lifecycle state. The set is closed; every
// transition goes through Next so the edges live in exactly one place.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusDeclined  Status = "declined"
	StatusCancelled Status = "cancelled"

	// StatusCompleted is a read-time projection only (a past pending/confirmed
	// appointment). It is never stored.
	StatusCompleted Status = "completed"
)

// Action is a caller-requested lifecycle transition.
type Action string

const (
	ActionApprove Action = "approve"
	ActionDecline Action = "decline"
	ActionCancel  Action = "cancel"
)

func ParseAction(s string) (Action, bool) {
	switch Action(s) {
	case ActionApprove, ActionDecline, ActionCancel:
		return Action(s), true
	}
	return "", false
}

// Terminal reports whether the status releases the slot and accepts no
// further transitions.
func (s Status) Terminal() bool {
	return s == StatusDeclined || s == StatusCancelled
}

// Holds reports whether the status keeps the slot claimed.
func (s Status) Holds() bool {
	return s == StatusPending || s == StatusConfirmed
}

type edge struct {
	from []Status
	to   Status
}

var transitions = map[Action]edge{
	ActionApprove: {from: []Status{StatusPending}, to: StatusConfirmed},
	ActionDecline: {from: []Status{StatusPending}, to: StatusDeclined},
	ActionCancel:  {from: []Status{StatusPending, StatusConfirmed}, to: StatusCancelled},
}

// Next returns the source states and target state for an action. ok is false
// for unknown actions.
func Next(a Action) (from []Status, to Status, ok bool) {
	e, ok := transitions[a]
	if !ok {
		return nil, "", false
	}
	return e.from, e.to, true
}

// CanTransition reports whether action a has an edge out of status s.
func CanTransition(s Status, a Action) bool {
	e, ok := transitions[a]
	if !ok {
		return false
	}
	for _, f := range e.from {
		if f == s {
			return true
		}
	}
	return false
}
