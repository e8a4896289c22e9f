package workflow

// Result is the structured outcome of a state-machine operation. Expected
// business-rule violations travel here rather than as panics; Err carries the
// taxonomy error for callers that map outcomes to HTTP statuses.
type Result struct {
	Success bool
	Message string
	Data    map[string]interface{}
	Err     error
}

func ok(message string, data map[string]interface{}) Result {
	return Result{Success: true, Message: message, Data: data}
}

func fail(err error) Result {
	return Result{Success: false, Message: err.Error(), Err: err}
}
