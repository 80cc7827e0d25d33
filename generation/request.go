package generation

import (
	"math"
	"strconv"
	"strings"

	"github.com/fps2me/fpsqr/identifier"
)

// Currency is the transaction currency of a payment request
type Currency string

const (
	CurrencyHKD Currency = "HKD"
	CurrencyCNY Currency = "CNY"
)

// DefaultCurrency is used when no currency is selected
const DefaultCurrency = CurrencyHKD

// ParseCurrency accepts HKD or CNY in any case; empty means DefaultCurrency
func ParseCurrency(s string) (Currency, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return DefaultCurrency, nil
	case "HKD":
		return CurrencyHKD, nil
	case "CNY":
		return CurrencyCNY, nil
	default:
		return "", &ValidationError{Field: FieldCurrency, Reason: "unsupported currency " + strconv.Quote(s)}
	}
}

// PaymentMeta carries the optional amount and the currency.
// A nil Amount requests an open-amount payload.
type PaymentMeta struct {
	Amount   *float64 `json:"amount,omitempty"`
	Currency Currency `json:"currency,omitempty"`
}

// CurrencyOrDefault returns the canonical currency, HKD when unset. An
// unsupported currency is returned as is; Validate rejects it.
func (m PaymentMeta) CurrencyOrDefault() Currency {
	c, err := ParseCurrency(string(m.Currency))
	if err != nil {
		return m.Currency
	}
	return c
}

// Validate checks the amount is finite and positive and the currency supported
func (m PaymentMeta) Validate() error {
	if m.Amount != nil {
		if err := checkAmount(*m.Amount); err != nil {
			return err
		}
	}
	if _, err := ParseCurrency(string(m.Currency)); err != nil {
		return err
	}
	return nil
}

// ParseAmount parses the amount field. Blank input means no amount.
func ParseAmount(raw string) (*float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, &ValidationError{Field: FieldAmount, Reason: "not a number"}
	}
	if err := checkAmount(v); err != nil {
		return nil, err
	}
	return &v, nil
}

func checkAmount(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &ValidationError{Field: FieldAmount, Reason: "must be a finite number"}
	}
	if v <= 0 {
		return &ValidationError{Field: FieldAmount, Reason: "must be greater than zero"}
	}
	return nil
}

// Request is a generation request. Identifier.Raw and Confirm are the two
// raw entries; they must normalize to the same value.
type Request struct {
	Identifier identifier.Identifier `json:"identifier"`
	Confirm    string                `json:"confirm"`
	Meta       PaymentMeta           `json:"meta"`
}

// NewRequest classifies raw with c and assembles a request
func NewRequest(raw, confirm string, meta PaymentMeta, c identifier.Classifier) Request {
	return Request{
		Identifier: identifier.New(raw, c),
		Confirm:    confirm,
		Meta:       meta,
	}
}

// Validate reports the first reason the request cannot be generated
func (r Request) Validate() error {
	if !r.Identifier.Classified() {
		return &ValidationError{Field: FieldIdentifier, Reason: ReasonUnclassified}
	}
	if !identifier.Equal(r.Identifier.Raw, r.Confirm) {
		return &ValidationError{Field: FieldConfirm, Reason: ReasonMismatch}
	}
	return r.Meta.Validate()
}
