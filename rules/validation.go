package rules

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// MaxRules caps the size of a rule set
	MaxRules = 100

	maxIDLength = 100
)

var validRuleID = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_-]*$`)

// ValidateRule checks a rule's fields. It does not compile the expression.
func ValidateRule(r *Rule) error {
	if r == nil {
		return fmt.Errorf("rule cannot be nil")
	}

	if err := validateRuleID(r.ID); err != nil {
		return fmt.Errorf("invalid rule id %q: %w", r.ID, err)
	}

	if strings.TrimSpace(r.Expression) == "" {
		return fmt.Errorf("rule %q has an empty expression", r.ID)
	}

	if !r.Kind.IsClassified() {
		return fmt.Errorf("rule %q has invalid kind %q (must be one of: email, fpsId, mobile)", r.ID, r.Kind)
	}

	return nil
}

// ValidateRuleSet validates every rule and checks the set as a whole
func ValidateRuleSet(rules []*Rule) error {
	if len(rules) == 0 {
		return fmt.Errorf("rule set cannot be empty")
	}
	if len(rules) > MaxRules {
		return fmt.Errorf("rule set contains %d rules, maximum allowed is %d", len(rules), MaxRules)
	}

	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if err := ValidateRule(r); err != nil {
			return err
		}
		if seen[r.ID] {
			return fmt.Errorf("duplicate rule id %q", r.ID)
		}
		seen[r.ID] = true
	}

	return nil
}

func validateRuleID(id string) error {
	if len(id) == 0 {
		return fmt.Errorf("identifier cannot be empty")
	}
	if len(id) > maxIDLength {
		return fmt.Errorf("identifier length %d exceeds maximum of %d characters", len(id), maxIDLength)
	}
	if !validRuleID.MatchString(id) {
		return fmt.Errorf("must match pattern %s", validRuleID.String())
	}
	return nil
}
