package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/fps2me/fpsqr/identifier"
)

// RuleSet is the on-disk form of a rule list
type RuleSet struct {
	Rules []RuleSpec `yaml:"rules" json:"rules"`
}

// RuleSpec declares one rule. Active defaults to true when omitted.
type RuleSpec struct {
	ID         string `yaml:"id" json:"id"`
	Name       string `yaml:"name,omitempty" json:"name,omitempty"`
	Expression string `yaml:"expression" json:"expression"`
	Kind       string `yaml:"kind" json:"kind"`
	Priority   int    `yaml:"priority,omitempty" json:"priority,omitempty"`
	Active     *bool  `yaml:"active,omitempty" json:"active,omitempty"`
}

// ParseRuleSet decodes and validates a YAML rule set
func ParseRuleSet(data []byte) ([]*Rule, error) {
	var set RuleSet
	if err := yaml.UnmarshalStrict(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse rule set: %w", err)
	}

	rules := make([]*Rule, 0, len(set.Rules))
	for i, spec := range set.Rules {
		kind, err := identifier.ParseKind(spec.Kind)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, spec.ID, err)
		}

		active := true
		if spec.Active != nil {
			active = *spec.Active
		}

		name := spec.Name
		if name == "" {
			name = spec.ID
		}

		rules = append(rules, &Rule{
			ID:         spec.ID,
			Name:       name,
			Expression: spec.Expression,
			Kind:       kind,
			Priority:   spec.Priority,
			Active:     active,
		})
	}

	if err := ValidateRuleSet(rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// LoadRuleSet reads a YAML rule set from path
func LoadRuleSet(path string) ([]*Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule set: %w", err)
	}
	return ParseRuleSet(data)
}

// LoadEngine builds an engine from the rule set at path, or from
// DefaultRules when path is empty.
func LoadEngine(path string) (*Engine, error) {
	if path == "" {
		return NewEngineWithRules(DefaultRules())
	}

	rules, err := LoadRuleSet(path)
	if err != nil {
		return nil, err
	}
	return NewEngineWithRules(rules)
}
