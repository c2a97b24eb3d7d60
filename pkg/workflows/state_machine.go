package workflows

// StateMachine enforces verification request status transitions
type StateMachine struct {
	allowedTransitions map[string][]string
}

// NewStateMachine creates the lifecycle state machine for verification requests
func NewStateMachine() *StateMachine {
	return &StateMachine{
		allowedTransitions: map[string][]string{
			"pending":   {"in-review", "verified", "rejected"},
			"in-review": {"verified", "rejected"},
			"verified":  {"issued", "rejected"},
			"rejected":  {}, // terminal
			"issued":    {}, // terminal
		},
	}
}

// CanTransition checks if a status transition is allowed
func (sm *StateMachine) CanTransition(from, to string) bool {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return false
	}
	for _, allowedTo := range allowed {
		if allowedTo == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status has no outgoing transitions
func (sm *StateMachine) IsTerminal(status string) bool {
	allowed, exists := sm.allowedTransitions[status]
	return exists && len(allowed) == 0
}

// IsKnown reports whether a status participates in the lifecycle at all
func (sm *StateMachine) IsKnown(status string) bool {
	_, exists := sm.allowedTransitions[status]
	return exists
}

// GetAllowedTransitions returns the allowed next statuses for a given status
func (sm *StateMachine) GetAllowedTransitions(from string) []string {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return []string{}
	}
	return allowed
}
