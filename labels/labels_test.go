package labels

import (
	"testing"

	"golang.org/x/text/language"

	"github.com/fps2me/fpsqr/generation"
	"github.com/fps2me/fpsqr/identifier"
)

// TestMatch verifies Accept-Language negotiation
func TestMatch(t *testing.T) {
	testCases := []struct {
		header string
		want   language.Tag
	}{
		{"", language.English},
		{"en-US,en;q=0.9", language.English},
		{"zh-HK,zh;q=0.9", language.TraditionalChinese},
		{"zh-TW", language.TraditionalChinese},
		{"fr-FR", language.English},
		{"not a header;;", language.English},
	}

	for _, tc := range testCases {
		t.Run(tc.header, func(t *testing.T) {
			if got := Match(tc.header); got != tc.want {
				t.Errorf("Match(%q) = %v, want %v", tc.header, got, tc.want)
			}
		})
	}
}

// TestPrinter verifies the catalog is used for Traditional Chinese
func TestPrinter(t *testing.T) {
	en := For(language.English)
	zh := For(language.TraditionalChinese)

	if got := en.Sprintf(Detected, en.Kind(identifier.KindFPSID)); got != "Detected type: FPS ID" {
		t.Errorf("en detected = %q", got)
	}
	if got := zh.Sprintf(Detected, zh.Kind(identifier.KindEmail)); got != "偵測類型：電郵" {
		t.Errorf("zh detected = %q", got)
	}
	if got := zh.Kind(identifier.KindUnknown); got != "未知" {
		t.Errorf("zh unknown = %q", got)
	}

	err := &generation.ValidationError{Field: generation.FieldConfirm, Reason: generation.ReasonMismatch}
	if got := en.Validation(err); got != Mismatch {
		t.Errorf("en mismatch = %q", got)
	}
}

// TestCatalogComplete verifies every key has a translation
func TestCatalogComplete(t *testing.T) {
	keys := []string{Title, PrimaryLabel, ConfirmLabel, AmountLabel, CurrencyLabel, Submit, Pending,
		Detected, Placeholder, Mismatch, Unclassified, InvalidAmount, InvalidCurr, Failed, Busy,
		ScanHint, KindUnknown, KindEmail, KindMobile, KindFPSID, PayloadCaption}
	for _, k := range keys {
		if _, ok := zhHant[k]; !ok {
			t.Errorf("missing zh-Hant translation for %q", k)
		}
	}
}
