package subscription

// lifecycle is the allowed status graph, keyed by current status. A nested
// map keeps transition lookups O(1) and makes the graph readable as data.
//
//	active   -> active | past_due | cancelled
//	past_due -> past_due | active | cancelled
//	cancelled is terminal; only the idempotent self-transition is allowed
//
// Self-transitions are deliberate: webhook redelivery must be a safe no-op
// write, not an error.
var lifecycle = map[Status]map[Status]bool{
	StatusActive: {
		StatusActive:    true,
		StatusPastDue:   true,
		StatusCancelled: true,
	},
	StatusPastDue: {
		StatusPastDue:   true,
		StatusActive:    true,
		StatusCancelled: true,
	},
	StatusCancelled: {
		StatusCancelled: true,
	},
}

// Transition validates a status change against the lifecycle graph and
// returns the resulting status. Returns ErrInvalidTransition when the graph
// forbids it, e.g. any attempt to resurrect a cancelled row.
func Transition(current, target Status) (Status, error) {
	allowed, ok := lifecycle[current]
	if !ok || !allowed[target] {
		return current, ErrInvalidTransition
	}
	return target, nil
}

// CanTransition reports whether the lifecycle graph permits the change.
func CanTransition(current, target Status) bool {
	_, err := Transition(current, target)
	return err == nil
}
