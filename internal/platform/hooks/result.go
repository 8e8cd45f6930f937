// Package hooks defines the result envelope shared by the domain data hooks
// (patient, provider, staff, appointment, clinic). Callers only branch on
// Success; transport and database failures travel as ordinary Go errors.
package hooks

import "strings"

// GenericFailure is shown when a hook fails without a message or when an
// unexpected error escapes the hook.
const GenericFailure = "Something went wrong. Please try again."

// Result is the envelope every hook returns.
type Result[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OK wraps data in a successful result.
func OK[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

// Fail returns an unsuccessful result carrying a user-facing message.
func Fail[T any](msg string) Result[T] {
	return Result[T]{Error: msg}
}

// Message returns the collaborator's message verbatim, or fallback when the
// collaborator did not supply one.
func (r Result[T]) Message(fallback string) string {
	if strings.TrimSpace(r.Error) == "" {
		if fallback == "" {
			return GenericFailure
		}
		return fallback
	}
	return r.Error
}

// Invalid is a validation failure whose text is shown to the user verbatim.
// Forms declare their messages as Invalid constants.
type Invalid string

func (e Invalid) Error() string { return string(e) }
