package emv

import (
	"fmt"
	"strings"

	"github.com/fps2me/fpsqr/generation"
	"github.com/fps2me/fpsqr/identifier"
)

// Payload is a decoded FPS payload
type Payload struct {
	Fields       []Field             `json:"-"`
	Dynamic      bool                `json:"dynamic"`
	AccountKind  identifier.Kind     `json:"accountKind"`
	Account      string              `json:"account"`
	Currency     generation.Currency `json:"currency"`
	Amount       string              `json:"amount,omitempty"`
	MerchantName string              `json:"merchantName"`
	CRC          string              `json:"crc"`
}

// Get returns the value of the top-level field id
func (p *Payload) Get(id string) (string, bool) {
	for _, f := range p.Fields {
		if f.ID == id {
			return f.Value, true
		}
	}
	return "", false
}

// Parse decodes payload and verifies its checksum and FPS template
func Parse(payload string) (*Payload, error) {
	if len(payload) < 8 {
		return nil, fmt.Errorf("payload too short")
	}
	crcAt := len(payload) - 4
	if payload[crcAt-4:crcAt] != IDCRC+"04" {
		return nil, fmt.Errorf("payload does not end with a CRC field")
	}
	want := Checksum(payload[:crcAt])
	got := strings.ToUpper(payload[crcAt:])
	if got != want {
		return nil, fmt.Errorf("crc mismatch: payload has %s, computed %s", got, want)
	}

	fields, err := decodeFields(payload)
	if err != nil {
		return nil, err
	}

	p := &Payload{Fields: fields, CRC: got}
	if v, _ := p.Get(IDPayloadFormat); v != "01" {
		return nil, fmt.Errorf("unsupported payload format %q", v)
	}

	point, _ := p.Get(IDPointOfInitiation)
	switch point {
	case PointStatic:
	case PointDynamic:
		p.Dynamic = true
	default:
		return nil, fmt.Errorf("unknown point of initiation %q", point)
	}

	template, ok := p.Get(IDMerchantAccount)
	if !ok {
		return nil, fmt.Errorf("missing merchant account field %s", IDMerchantAccount)
	}
	if err := p.parseAccount(template); err != nil {
		return nil, err
	}

	code, _ := p.Get(IDCurrency)
	for c, numeric := range currencyCodes {
		if numeric == code {
			p.Currency = c
		}
	}
	if p.Currency == "" {
		return nil, fmt.Errorf("unknown currency code %q", code)
	}

	p.Amount, _ = p.Get(IDAmount)
	p.MerchantName, _ = p.Get(IDMerchantName)
	return p, nil
}

func (p *Payload) parseAccount(template string) error {
	sub, err := decodeFields(template)
	if err != nil {
		return fmt.Errorf("merchant account: %w", err)
	}

	kinds := map[string]identifier.Kind{
		IDFPSID:  identifier.KindFPSID,
		IDMobile: identifier.KindMobile,
		IDEmail:  identifier.KindEmail,
	}
	var guid string
	for _, f := range sub {
		if f.ID == IDGUID {
			guid = f.Value
			continue
		}
		if k, ok := kinds[f.ID]; ok {
			if p.AccountKind != "" {
				return fmt.Errorf("merchant account has more than one identifier")
			}
			p.AccountKind = k
			p.Account = f.Value
		}
	}
	if guid != GUID {
		return fmt.Errorf("merchant account guid %q is not %s", guid, GUID)
	}
	if p.AccountKind == "" {
		return fmt.Errorf("merchant account has no identifier")
	}
	return nil
}
