package form

import (
	"errors"

	"github.com/fps2me/fpsqr/generation"
	"github.com/fps2me/fpsqr/identifier"
)

// View is the derived page model
type View struct {
	Identifier   identifier.Identifier         `json:"identifier"`
	Confirmation identifier.ConfirmationPair   `json:"confirmation"`
	Meta         generation.PaymentMeta        `json:"meta"`
	Problems     []*generation.ValidationError `json:"problems,omitempty"`
	CanGenerate  bool                          `json:"canGenerate"`
}

// Project classifies the state with c. Problems lists the errors worth
// showing: blank fields are not reported.
func Project(s State, c identifier.Classifier) View {
	v := View{
		Identifier:   identifier.New(s.Primary, c),
		Confirmation: identifier.Confirm(s.Primary, s.Confirm),
		Meta:         generation.PaymentMeta{Currency: s.Currency},
	}

	if v.Identifier.Canonical != "" && !v.Identifier.Classified() {
		v.Problems = append(v.Problems, &generation.ValidationError{
			Field: generation.FieldIdentifier, Reason: generation.ReasonUnclassified,
		})
	}
	if identifier.Normalize(s.Confirm) != "" && !v.Confirmation.Matches {
		v.Problems = append(v.Problems, &generation.ValidationError{
			Field: generation.FieldConfirm, Reason: generation.ReasonMismatch,
		})
	}

	amount, err := generation.ParseAmount(s.Amount)
	v.addProblem(err)
	v.Meta.Amount = amount

	_, err = generation.ParseCurrency(string(s.Currency))
	v.addProblem(err)

	v.CanGenerate = len(v.Problems) == 0 && v.Identifier.Classified() && v.Confirmation.Matches
	return v
}

func (v *View) addProblem(err error) {
	var ve *generation.ValidationError
	if errors.As(err, &ve) {
		v.Problems = append(v.Problems, ve)
	}
}

// Problem returns the problem reported for field, or nil
func (v View) Problem(field string) *generation.ValidationError {
	for _, p := range v.Problems {
		if p.Field == field {
			return p
		}
	}
	return nil
}

// Request builds the generation request, or the first validation error
func (v View) Request() (generation.Request, error) {
	req := generation.Request{
		Identifier: v.Identifier,
		Confirm:    v.Confirmation.ConfirmRaw,
		Meta:       v.Meta,
	}
	if len(v.Problems) > 0 {
		return req, v.Problems[0]
	}
	if err := req.Validate(); err != nil {
		return req, err
	}
	return req, nil
}
