package identifier

import (
	"strings"
	"testing"
)

// TestNormalizeTrims verifies surrounding whitespace is always removed
func TestNormalizeTrims(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
		want string
	}{
		{"Empty", "", ""},
		{"Whitespace only", "   \t\n", ""},
		{"FPS id with padding", "  123456789  ", "123456789"},
		{"Email untouched", " a@b.com", "a@b.com"},
		{"Inner spaces kept", "1234 5678", "1234 5678"},
		{"Plus prefix kept", "+852-12345678", "+852-12345678"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.raw); got != tc.want {
				t.Errorf("Normalize(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

// TestNormalizeMainlandShorthand verifies the 86 + 11 digit rewrite
func TestNormalizeMainlandShorthand(t *testing.T) {
	testCases := []struct {
		raw  string
		want string
	}{
		{"8613800138000", "+86-13800138000"},
		{" 8612345678901 ", "+86-12345678901"},
		{"8600000000000", "+86-00000000000"},
		// not exactly 11 digits after 86
		{"861380013800", "861380013800"},
		{"86138001380001", "86138001380001"},
		// separators disable the rewrite
		{"86-13800138000", "86-13800138000"},
		{"+8613800138000", "+8613800138000"},
		// already canonical
		{"+86-13800138000", "+86-13800138000"},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			if got := Normalize(tc.raw); got != tc.want {
				t.Errorf("Normalize(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

// TestNormalizeIdempotent verifies normalizing twice changes nothing
func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"", " 8613800138000", "123456789", "x@y", "  +86-13800138000 ", "abc"}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize(Normalize(%q)) = %q, want %q", in, twice, once)
		}
	}
}

// TestIsMainlandShorthand verifies detection matches the rewrite
func TestIsMainlandShorthand(t *testing.T) {
	if !IsMainlandShorthand(" 8613800138000 ") {
		t.Error("IsMainlandShorthand() should detect padded shorthand")
	}
	if IsMainlandShorthand("+86-13800138000") {
		t.Error("IsMainlandShorthand() should not match canonical form")
	}
}

// TestDigitsOnly verifies non-digits are stripped
func TestDigitsOnly(t *testing.T) {
	if got := DigitsOnly("+852 (1234)-5678"); got != "85212345678" {
		t.Errorf("DigitsOnly() = %q, want %q", got, "85212345678")
	}
	if got := DigitsOnly("abc"); got != "" {
		t.Errorf("DigitsOnly() = %q, want empty", got)
	}
}

// TestEqualSymmetric verifies the confirmation check is symmetric
func TestEqualSymmetric(t *testing.T) {
	values := []string{
		"", " ", "123456789", " 123456789", "8613800138000", "+86-13800138000",
		"a@b.com", "A@B.com", "12345678", "1234567",
	}

	for _, a := range values {
		for _, b := range values {
			if Equal(a, b) != Equal(b, a) {
				t.Errorf("Equal(%q, %q) != Equal(%q, %q)", a, b, b, a)
			}
		}
	}
}

// TestEqualUsesNormalization verifies each side is normalized independently
func TestEqualUsesNormalization(t *testing.T) {
	testCases := []struct {
		name    string
		primary string
		confirm string
		want    bool
	}{
		{"Identical", "123456789", "123456789", true},
		{"Padding ignored", " 123456789", "123456789  ", true},
		{"Shorthand vs canonical", "8613800138000", "+86-13800138000", true},
		{"Different digits", "123456789", "123456788", false},
		{"Case sensitive", "a@b.com", "A@b.com", false},
		{"Both empty", "", "   ", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Equal(tc.primary, tc.confirm); got != tc.want {
				t.Errorf("Equal(%q, %q) = %v, want %v", tc.primary, tc.confirm, got, tc.want)
			}
			pair := Confirm(tc.primary, tc.confirm)
			if pair.Matches != tc.want {
				t.Errorf("Confirm().Matches = %v, want %v", pair.Matches, tc.want)
			}
			if pair.PrimaryRaw != tc.primary || pair.ConfirmRaw != tc.confirm {
				t.Error("Confirm() should keep the raw values")
			}
		})
	}
}

// TestNewSkipsClassifierForEmptyInput verifies blank input is Unknown without a classifier call
func TestNewSkipsClassifierForEmptyInput(t *testing.T) {
	calls := 0
	c := ClassifierFunc(func(string) Kind {
		calls++
		return KindEmail
	})

	id := New("   ", c)
	if id.Kind != KindUnknown {
		t.Errorf("New().Kind = %s, want %s", id.Kind, KindUnknown)
	}
	if calls != 0 {
		t.Errorf("classifier called %d times for blank input", calls)
	}
	if id.Classified() {
		t.Error("blank identifier should not be classified")
	}
}

// TestNewPassesCanonicalValue verifies the classifier sees the normalized value
func TestNewPassesCanonicalValue(t *testing.T) {
	var seen string
	c := ClassifierFunc(func(v string) Kind {
		seen = v
		if strings.HasPrefix(v, MainlandPrefix) {
			return KindMobile
		}
		return KindUnknown
	})

	id := New(" 8613800138000", c)
	if seen != "+86-13800138000" {
		t.Errorf("classifier saw %q, want canonical value", seen)
	}
	if id.Kind != KindMobile || id.Canonical != "+86-13800138000" || id.Raw != " 8613800138000" {
		t.Errorf("New() = %+v", id)
	}
}

// TestParseKind verifies kind names round-trip
func TestParseKind(t *testing.T) {
	for _, k := range append(Kinds, KindUnknown) {
		got, err := ParseKind(k.String())
		if err != nil {
			t.Fatalf("ParseKind(%q) failed: %v", k, err)
		}
		if got != k {
			t.Errorf("ParseKind(%q) = %s", k, got)
		}
	}

	if _, err := ParseKind("hkid"); err == nil {
		t.Error("ParseKind() should reject unsupported kinds")
	}
}
