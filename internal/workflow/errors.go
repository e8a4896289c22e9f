package workflow

// ValidationError marks malformed caller input, e.g. a missing rejection
// reason. Maps to HTTP 422; never retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// PermissionError marks an actor lacking the required department, role, or
// assignment. Maps to HTTP 403; never retried.
type PermissionError struct {
	Message string
}

func (e *PermissionError) Error() string { return e.Message }

// StateConflictError marks a transition that is illegal from the entity's
// current state, including lost optimistic-lock races. Maps to HTTP 422.
type StateConflictError struct {
	Message string
}

func (e *StateConflictError) Error() string { return e.Message }
