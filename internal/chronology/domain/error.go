package domain

// ValidationError adapts an invalid Result into an error for callers that
// must abort a mutation on it. The result rides along for HTTP mapping.
type ValidationError struct {
	Result Result
}

func (e *ValidationError) Error() string {
	if e.Result.Message != "" {
		return e.Result.Message
	}
	return "meter reading chronology violation"
}

// Invalid wraps a failing result as an error.
func Invalid(r Result) error { return &ValidationError{Result: r} }
