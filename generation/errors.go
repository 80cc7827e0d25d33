package generation

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy is returned by Trigger while a generation is pending
	ErrBusy = errors.New("generation already in progress")

	// ErrStale is the failure reason for a result whose inputs changed while pending
	ErrStale = errors.New("inputs changed during generation")
)

// Fields named by ValidationError
const (
	FieldIdentifier = "identifier"
	FieldConfirm    = "confirm"
	FieldAmount     = "amount"
	FieldCurrency   = "currency"
)

// Reasons shared with presenters for localisation
const (
	ReasonUnclassified = "unrecognised identifier"
	ReasonMismatch     = "values do not match"
)

// ValidationError blocks a generation before any encoder call
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// EncodingError is a failed generation: the encoder reported an error,
// panicked, or the call was cancelled.
type EncodingError struct {
	RequestID string
	Reason    string
}

func (e *EncodingError) Error() string {
	return "encoding failed: " + e.Reason
}

// IsValidation reports whether err is a *ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
