// Package rules classifies payee identifiers with an ordered list of CEL
// rules. Each rule is a boolean expression over the string variable `value`;
// active rules are evaluated in priority order and the first match decides
// the identifier kind.
package rules

import (
	"time"

	"github.com/fps2me/fpsqr/identifier"
)

// Rule represents a single classification rule
type Rule struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Expression string          `json:"expression"`
	Kind       identifier.Kind `json:"kind"`
	Priority   int             `json:"priority"`
	Active     bool            `json:"active"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// EvaluationResult contains the outcome of evaluating a rule
type EvaluationResult struct {
	RuleID   string          `json:"ruleId"`
	RuleName string          `json:"ruleName"`
	Kind     identifier.Kind `json:"kind"`
	Matched  bool            `json:"matched"`
	Error    error           `json:"-"`
	Trace    any             `json:"-"` // CEL evaluation state (optional)
}
