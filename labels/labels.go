// Package labels holds the user-facing strings in English and Traditional
// Chinese and picks a language from an Accept-Language header.
package labels

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/fps2me/fpsqr/generation"
	"github.com/fps2me/fpsqr/identifier"
)

// Message keys. The key is also the English text.
const (
	Title          = "FPS QR Code Generator"
	PrimaryLabel   = "Payee identifier (mobile, email or FPS ID)"
	ConfirmLabel   = "Enter the identifier again"
	AmountLabel    = "Amount (optional)"
	CurrencyLabel  = "Currency"
	Submit         = "Generate QR code"
	Pending        = "Generating..."
	Detected       = "Detected type: %s"
	Placeholder    = "The QR code will be shown here"
	Mismatch       = "The two entries do not match"
	Unclassified   = "Unrecognised identifier"
	InvalidAmount  = "Invalid amount"
	InvalidCurr    = "Unsupported currency"
	Failed         = "Failed to generate QR code: %s"
	Busy           = "A QR code is already being generated"
	ScanHint       = "Scan with any FPS-enabled banking app"
	KindUnknown    = "Unknown"
	KindEmail      = "Email"
	KindMobile     = "Mobile number"
	KindFPSID      = "FPS ID"
	PayloadCaption = "Payload"
)

// Supported lists the catalog languages, default first
var Supported = []language.Tag{language.English, language.TraditionalChinese}

var matcher = language.NewMatcher(Supported)

var zhHant = map[string]string{
	Title:          "轉數快 QR Code 產生器",
	PrimaryLabel:   "收款人識別碼（手提電話、電郵或轉數快 ID）",
	ConfirmLabel:   "再次輸入識別碼",
	AmountLabel:    "金額（選填）",
	CurrencyLabel:  "貨幣",
	Submit:         "產生 QR Code",
	Pending:        "產生中...",
	Detected:       "偵測類型：%s",
	Placeholder:    "QR Code 將在此顯示",
	Mismatch:       "兩次輸入不一致",
	Unclassified:   "無法識別的識別碼",
	InvalidAmount:  "金額無效",
	InvalidCurr:    "不支援的貨幣",
	Failed:         "無法產生 QR Code：%s",
	Busy:           "正在產生 QR Code",
	ScanHint:       "可用任何支援轉數快的銀行應用程式掃描",
	KindUnknown:    "未知",
	KindEmail:      "電郵",
	KindMobile:     "手提電話",
	KindFPSID:      "轉數快 ID",
	PayloadCaption: "資料",
}

func init() {
	for key, text := range zhHant {
		if err := message.SetString(language.TraditionalChinese, key, text); err != nil {
			panic(err)
		}
	}
}

// Match picks the best supported language for an Accept-Language value
func Match(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return Supported[0]
	}
	_, idx, _ := matcher.Match(tags...)
	return Supported[idx]
}

// Printer formats messages for one language
type Printer struct {
	Tag language.Tag
	p   *message.Printer
}

// For returns a printer for tag
func For(tag language.Tag) *Printer {
	return &Printer{Tag: tag, p: message.NewPrinter(tag)}
}

// Sprintf formats the message key in the printer's language
func (pr *Printer) Sprintf(key message.Reference, args ...any) string {
	return pr.p.Sprintf(key, args...)
}

// Kind names an identifier kind
func (pr *Printer) Kind(k identifier.Kind) string {
	switch k {
	case identifier.KindEmail:
		return pr.Sprintf(KindEmail)
	case identifier.KindMobile:
		return pr.Sprintf(KindMobile)
	case identifier.KindFPSID:
		return pr.Sprintf(KindFPSID)
	default:
		return pr.Sprintf(KindUnknown)
	}
}

// Validation describes a validation error for display
func (pr *Printer) Validation(err *generation.ValidationError) string {
	switch err.Field {
	case generation.FieldIdentifier:
		return pr.Sprintf(Unclassified)
	case generation.FieldConfirm:
		return pr.Sprintf(Mismatch)
	case generation.FieldAmount:
		return pr.Sprintf(InvalidAmount)
	case generation.FieldCurrency:
		return pr.Sprintf(InvalidCurr)
	default:
		return err.Error()
	}
}
