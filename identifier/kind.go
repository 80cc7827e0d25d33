// Package identifier holds the payee identifier model: the identifier kinds,
// input normalization and the confirmation check shared by every surface.
package identifier

import "fmt"

// Kind is the classified type of a payee identifier
type Kind string

const (
	KindUnknown Kind = "unknown"
	KindEmail   Kind = "email"
	KindFPSID   Kind = "fpsId"
	KindMobile  Kind = "mobile"
)

// Kinds lists the classified kinds, Unknown excluded
var Kinds = []Kind{KindEmail, KindFPSID, KindMobile}

// IsClassified reports whether k is one of the generatable kinds
func (k Kind) IsClassified() bool {
	switch k {
	case KindEmail, KindFPSID, KindMobile:
		return true
	}
	return false
}

func (k Kind) String() string {
	if k == "" {
		return string(KindUnknown)
	}
	return string(k)
}

// ParseKind converts a kind name to a Kind.
// Accepts the canonical names plus a few spellings seen in rule files.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "email":
		return KindEmail, nil
	case "fpsId", "fpsid", "fps_id", "fps":
		return KindFPSID, nil
	case "mobile", "phone":
		return KindMobile, nil
	case "unknown", "":
		return KindUnknown, nil
	default:
		return KindUnknown, fmt.Errorf("unknown identifier kind %q", s)
	}
}

// Classifier maps a normalized string to a Kind.
// Implementations must be total: every input maps to exactly one Kind.
type Classifier interface {
	Classify(normalized string) Kind
}

// ClassifierFunc adapts a plain function to the Classifier interface
type ClassifierFunc func(normalized string) Kind

func (f ClassifierFunc) Classify(normalized string) Kind {
	return f(normalized)
}

// Identifier is a raw entry together with its canonical form and kind
type Identifier struct {
	Raw       string `json:"raw"`
	Canonical string `json:"canonical"`
	Kind      Kind   `json:"kind"`
}

// New normalizes raw and classifies the canonical value
func New(raw string, c Classifier) Identifier {
	canonical := Normalize(raw)
	kind := KindUnknown
	if canonical != "" {
		kind = c.Classify(canonical)
	}
	return Identifier{Raw: raw, Canonical: canonical, Kind: kind}
}

// Classified reports whether the identifier can drive generation
func (id Identifier) Classified() bool {
	return id.Kind.IsClassified()
}
