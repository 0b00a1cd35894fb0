package service

import "fmt"

// ValidationError reports a cart that must not reach the payment
// processor: a price or seller mismatch, or an ineligible seller. It is
// surfaced to the buyer verbatim.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func newValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}
