package domain

// DispatchState is a node of the per-article publish state machine.
type DispatchState string

const (
	StateUnvalidated    DispatchState = "unvalidated"
	StateValidating     DispatchState = "validating"
	StateRejected       DispatchState = "rejected"
	StateValidated      DispatchState = "validated"
	StateDispatching    DispatchState = "dispatching"
	StatePublished      DispatchState = "published"
	StateDispatchFailed DispatchState = "dispatch_failed"
)

// Unvalidated -> Dispatching is the explicit validateFirst=false bypass.
var dispatchTransitions = map[DispatchState][]DispatchState{
	StateUnvalidated: {StateValidating, StateDispatching},
	StateValidating:  {StateRejected, StateValidated},
	StateValidated:   {StateDispatching},
	StateDispatching: {StatePublished, StateDispatchFailed},
}

// CanTransition reports whether the machine has an edge from s to next.
func (s DispatchState) CanTransition(next DispatchState) bool {
	for _, candidate := range dispatchTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s DispatchState) Terminal() bool {
	return len(dispatchTransitions[s]) == 0
}
