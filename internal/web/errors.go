package web

// Error is a handler-level error carrying the HTTP status to respond with.
// Errors without a status code are treated as internal server errors.
type Error struct {
	Message    string
	StatusCode int
}

func (e *Error) Error() string {
	return e.Message
}
