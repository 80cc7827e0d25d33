// Package emv encodes Hong Kong FPS payment payloads in the EMV merchant
// QR format and decodes them back for inspection.
package emv

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"unicode/utf8"

	"github.com/fps2me/fpsqr/generation"
)

// Top-level field ids
const (
	IDPayloadFormat     = "00"
	IDPointOfInitiation = "01"
	IDMerchantAccount   = "26"
	IDCategoryCode      = "52"
	IDCurrency          = "53"
	IDAmount            = "54"
	IDCountryCode       = "58"
	IDMerchantName      = "59"
	IDMerchantCity      = "60"
	IDCRC               = "63"
)

// Merchant account template sub-fields
const (
	IDGUID   = "00"
	IDFPSID  = "02"
	IDMobile = "03"
	IDEmail  = "04"
)

const (
	// GUID identifies the FPS scheme inside field 26
	GUID = "hk.com.hkicl"

	// PointStatic is used for open-amount payloads, PointDynamic when an amount is set
	PointStatic  = "11"
	PointDynamic = "12"

	MaxMerchantName = 25
	maxAmountLen    = 13
)

var currencyCodes = map[generation.Currency]string{
	generation.CurrencyHKD: "344",
	generation.CurrencyCNY: "156",
}

var (
	fpsIDPattern = regexp.MustCompile(`^[0-9]{7,9}$`)
	localMobile  = regexp.MustCompile(`^[0-9]{8}$`)
	intlMobile   = regexp.MustCompile(`^[+][0-9]{1,3}-[0-9]{4,15}$`)
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// Encoder creates HKFPS merchant profiles
type Encoder struct{}

// NewEncoder returns the HKFPS encoder
func NewEncoder() *Encoder {
	return &Encoder{}
}

func (*Encoder) NewProfile() generation.Profile {
	return &MerchantProfile{}
}

// MerchantProfile accumulates merchant fields until Generate
type MerchantProfile struct {
	name     string
	accounts []Field
	currency generation.Currency
	amount   *float64
}

func (p *MerchantProfile) SetMerchantName(name string) { p.name = name }

func (p *MerchantProfile) SetFPSID(id string) {
	p.accounts = append(p.accounts, Field{ID: IDFPSID, Value: id})
}

func (p *MerchantProfile) SetMobile(number string) {
	p.accounts = append(p.accounts, Field{ID: IDMobile, Value: number})
}

func (p *MerchantProfile) SetEmail(address string) {
	p.accounts = append(p.accounts, Field{ID: IDEmail, Value: address})
}

func (p *MerchantProfile) SetCurrency(c generation.Currency) { p.currency = c }

func (p *MerchantProfile) SetAmount(amount float64) { p.amount = &amount }

// Generate returns the payload or the first validation failure
func (p *MerchantProfile) Generate() generation.EncodeResult {
	payload, err := p.Payload()
	if err != nil {
		return generation.EncodeResult{IsError: true, Message: err.Error()}
	}
	return generation.EncodeResult{Data: payload}
}

// Payload builds the payload string including its CRC
func (p *MerchantProfile) Payload() (string, error) {
	account, err := p.account()
	if err != nil {
		return "", err
	}
	name, err := p.merchantName()
	if err != nil {
		return "", err
	}
	currency, ok := currencyCodes[p.currencyOrDefault()]
	if !ok {
		return "", fmt.Errorf("unsupported currency %q", p.currency)
	}

	template, err := encodeFields([]Field{{ID: IDGUID, Value: GUID}, account})
	if err != nil {
		return "", err
	}

	point := PointStatic
	var amount string
	if p.amount != nil {
		if amount, err = formatAmount(*p.amount); err != nil {
			return "", err
		}
		point = PointDynamic
	}

	fields := []Field{
		{ID: IDPayloadFormat, Value: "01"},
		{ID: IDPointOfInitiation, Value: point},
		{ID: IDMerchantAccount, Value: template},
		{ID: IDCategoryCode, Value: "0000"},
		{ID: IDCurrency, Value: currency},
	}
	if amount != "" {
		fields = append(fields, Field{ID: IDAmount, Value: amount})
	}
	fields = append(fields,
		Field{ID: IDCountryCode, Value: "HK"},
		Field{ID: IDMerchantName, Value: name},
		Field{ID: IDMerchantCity, Value: "HK"},
	)

	body, err := encodeFields(fields)
	if err != nil {
		return "", err
	}
	body += IDCRC + "04"
	return body + Checksum(body), nil
}

func (p *MerchantProfile) currencyOrDefault() generation.Currency {
	if p.currency == "" {
		return generation.DefaultCurrency
	}
	return p.currency
}

func (p *MerchantProfile) merchantName() (string, error) {
	if p.name == "" {
		return generation.DefaultMerchantName, nil
	}
	if utf8.RuneCountInString(p.name) > MaxMerchantName {
		return "", fmt.Errorf("merchant name exceeds %d characters", MaxMerchantName)
	}
	return p.name, nil
}

// account validates the single merchant account entry
func (p *MerchantProfile) account() (Field, error) {
	switch len(p.accounts) {
	case 0:
		return Field{}, fmt.Errorf("one of fps id, mobile or email is required")
	case 1:
	default:
		return Field{}, fmt.Errorf("only one of fps id, mobile or email may be set")
	}

	f := p.accounts[0]
	switch f.ID {
	case IDFPSID:
		if !fpsIDPattern.MatchString(f.Value) {
			return Field{}, fmt.Errorf("invalid fps id %q", f.Value)
		}
	case IDMobile:
		switch {
		case localMobile.MatchString(f.Value):
			f.Value = "+852-" + f.Value
		case intlMobile.MatchString(f.Value):
		default:
			return Field{}, fmt.Errorf("invalid mobile number %q", f.Value)
		}
	case IDEmail:
		if !emailPattern.MatchString(f.Value) {
			return Field{}, fmt.Errorf("invalid email address %q", f.Value)
		}
	}
	return f, nil
}

// formatAmount renders a positive amount with at most two decimals
func formatAmount(v float64) (string, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return "", fmt.Errorf("amount must be a positive number")
	}
	cents := math.Round(v * 100)
	if math.Abs(v*100-cents) > 1e-6 {
		return "", fmt.Errorf("amount supports at most two decimal places")
	}
	s := strconv.FormatFloat(cents/100, 'f', -1, 64)
	if len(s) > maxAmountLen {
		return "", fmt.Errorf("amount %s is too long", s)
	}
	return s, nil
}
