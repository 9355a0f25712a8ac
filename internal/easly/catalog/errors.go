package catalog

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed or missing input. Its message is shown to
// the operator verbatim and the operation is never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// NotFoundError reports a reference (ID, SKU, order number) that resolves to
// nothing.
type NotFoundError struct {
	Kind string // "inventory item", "order", "SKU"
	Ref  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.Ref)
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// IsUserError reports whether err is a ValidationError or NotFoundError, the
// two kinds whose message is safe to show to the operator.
func IsUserError(err error) bool {
	var v *ValidationError
	var nf *NotFoundError
	return errors.As(err, &v) || errors.As(err, &nf)
}
