package generation

// EncodeResult is the encoder's discriminated result
type EncodeResult struct {
	IsError bool   `json:"isError"`
	Data    string `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// Profile is a merchant profile under construction. Exactly one of
// SetFPSID, SetMobile or SetEmail must be called before Generate.
type Profile interface {
	SetMerchantName(name string)
	SetFPSID(id string)
	SetMobile(number string)
	SetEmail(address string)
	SetCurrency(c Currency)
	SetAmount(amount float64)
	Generate() EncodeResult
}

// Encoder creates merchant profiles
type Encoder interface {
	NewProfile() Profile
}

// EncoderFunc adapts a profile constructor to Encoder
type EncoderFunc func() Profile

func (f EncoderFunc) NewProfile() Profile {
	return f()
}
