// Package form models the generator page as one state record. Edits and
// blurs are applied by the pure Apply function; Project derives the
// classified identifier, the confirmation result and the payment meta
// from the record on every call.
package form

import (
	"fmt"
	"strings"

	"github.com/fps2me/fpsqr/generation"
	"github.com/fps2me/fpsqr/identifier"
)

// RewriteMode decides when the displayed identifier fields are rewritten
// to their canonical form
type RewriteMode string

const (
	// RewriteOnInput rewrites on every edit
	RewriteOnInput RewriteMode = "input"
	// RewriteOnBlur keeps the typed text until the field loses focus
	RewriteOnBlur RewriteMode = "blur"
)

// ParseRewriteMode accepts "input" or "blur"; empty means RewriteOnInput
func ParseRewriteMode(s string) (RewriteMode, error) {
	switch RewriteMode(strings.ToLower(strings.TrimSpace(s))) {
	case RewriteOnInput, "":
		return RewriteOnInput, nil
	case RewriteOnBlur:
		return RewriteOnBlur, nil
	default:
		return RewriteOnInput, fmt.Errorf("unknown rewrite mode %q", s)
	}
}

// Field names a form input
type Field string

const (
	FieldPrimary  Field = "primary"
	FieldConfirm  Field = "confirm"
	FieldAmount   Field = "amount"
	FieldCurrency Field = "currency"
)

// State is the form record. Primary and Confirm hold the displayed text.
type State struct {
	Mode     RewriteMode         `json:"mode"`
	Primary  string              `json:"primary"`
	Confirm  string              `json:"confirm"`
	Amount   string              `json:"amount"`
	Currency generation.Currency `json:"currency"`
	Revision uint64              `json:"revision"`
}

// NewState returns an empty form in mode with HKD selected
func NewState(mode RewriteMode) State {
	if mode == "" {
		mode = RewriteOnInput
	}
	return State{Mode: mode, Currency: generation.DefaultCurrency}
}

// Event is a form input event
type Event interface {
	apply(State) State
}

// Edited replaces the text of a field
type Edited struct {
	Field Field
	Value string
}

// Blurred marks a field as having lost focus
type Blurred struct {
	Field Field
}

// Reset clears every field and keeps the mode
type Reset struct{}

// Apply returns the state after e. It never fails; invalid values are
// kept and reported by Project.
func Apply(s State, e Event) State {
	return e.apply(s)
}

// ApplyAll applies events in order
func ApplyAll(s State, events ...Event) State {
	for _, e := range events {
		s = Apply(s, e)
	}
	return s
}

func (e Edited) apply(s State) State {
	value := e.Value
	if s.Mode == RewriteOnInput {
		value = rewrite(e.Field, value)
	}

	switch e.Field {
	case FieldPrimary:
		s.Primary = value
	case FieldConfirm:
		s.Confirm = value
	case FieldAmount:
		s.Amount = value
	case FieldCurrency:
		s.Currency = generation.Currency(strings.ToUpper(strings.TrimSpace(value)))
	default:
		return s
	}
	s.Revision++
	return s
}

func (e Blurred) apply(s State) State {
	if s.Mode != RewriteOnBlur {
		return s
	}
	switch e.Field {
	case FieldPrimary:
		s.Primary = rewrite(e.Field, s.Primary)
	case FieldConfirm:
		s.Confirm = rewrite(e.Field, s.Confirm)
	}
	return s
}

func (Reset) apply(s State) State {
	next := NewState(s.Mode)
	next.Revision = s.Revision + 1
	return next
}

// rewrite replaces the mainland shorthand in the identifier fields. Other
// text is displayed exactly as typed.
func rewrite(f Field, value string) string {
	if f != FieldPrimary && f != FieldConfirm {
		return value
	}
	if identifier.IsMainlandShorthand(value) {
		return identifier.Normalize(value)
	}
	return value
}

// Changed reports whether any input differs between a and b
func Changed(a, b State) bool {
	return a.Primary != b.Primary || a.Confirm != b.Confirm ||
		a.Amount != b.Amount || a.Currency != b.Currency
}
