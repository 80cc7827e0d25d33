package identifier

// ConfirmationPair is the primary entry and its repeated entry
type ConfirmationPair struct {
	PrimaryRaw string `json:"primaryRaw"`
	ConfirmRaw string `json:"confirmRaw"`
	Matches    bool   `json:"matches"`
}

// Equal reports whether both entries normalize to the same value
func Equal(primary, confirm string) bool {
	return Normalize(primary) == Normalize(confirm)
}

// Confirm builds the ConfirmationPair for the two raw entries
func Confirm(primary, confirm string) ConfirmationPair {
	return ConfirmationPair{
		PrimaryRaw: primary,
		ConfirmRaw: confirm,
		Matches:    Equal(primary, confirm),
	}
}
