package users

// Error is an application-layer error that can be mapped to an HTTP response.
type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

func errUnauthenticated() *Error {
	return &Error{
		Status:  401,
		Code:    "UNAUTHENTICATED",
		Message: "Provide a valid bearer token or a phone number.",
	}
}

func errTransientConflict() *Error {
	return &Error{
		Status:  500,
		Code:    "TRANSIENT_STORE_CONFLICT",
		Message: "The store was too contended to complete the request. Retry later.",
	}
}

func errInvalidRole(role string) *Error {
	return &Error{
		Status:  400,
		Code:    "VALIDATION_ERROR",
		Message: "invalid role",
		Details: map[string]any{"role": "unknown role " + role},
	}
}
