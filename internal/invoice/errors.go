package invoice

import (
	"errors"
	"fmt"
)

// Client-side validation errors. None of them ever reaches the network.
var (
	// ErrUnsupportedFormat is returned when a document's media type is not
	// one of the accepted upload types.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrDocumentTooLarge is returned when a document exceeds MaxDocumentSize.
	ErrDocumentTooLarge = errors.New("document exceeds maximum size limit")

	// ErrInvalidID is returned for a missing, non-numeric or non-positive
	// invoice identifier.
	ErrInvalidID = errors.New("invalid invoice id")

	// ErrMissingRequiredField is returned when a field required for saving
	// is blank.
	ErrMissingRequiredField = errors.New("missing required invoice field")

	// ErrNegativeAmount is returned when an amount is below zero.
	ErrNegativeAmount = errors.New("amount must not be negative")

	// ErrInvalidAmount is returned when an amount is not a decimal number.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidDate is returned when a date is not an ISO calendar date.
	ErrInvalidDate = errors.New("invalid invoice date")

	// ErrUnknownField is returned when editing a field that does not exist
	// or cannot be edited.
	ErrUnknownField = errors.New("unknown invoice field")

	// ErrTotalNotEditable is returned when the total is set by hand on a
	// record whose amounts have already been edited.
	ErrTotalNotEditable = errors.New("total amount is derived from subtotal and VAT")
)

// ValidationError represents errors in invoice data validation.
type ValidationError struct {
	Field string
	Value interface{}

	// Message is shown to the user as is.
	Message string

	// Err is one of the sentinel errors above.
	Err error
}

// Error returns the user-facing message.
func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("validation error for field '%s': %v (value: %v)", e.Field, e.Err, e.Value)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, err error, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
		Err:     err,
	}
}

// IsValidation reports whether err is a client-side validation failure.
func IsValidation(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}
