package rules

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/fps2me/fpsqr/identifier"
	"github.com/fps2me/fpsqr/internal/logger"
)

// ValueVar is the CEL variable holding the normalized identifier
const ValueVar = "value"

// costLimit bounds a single rule evaluation
const costLimit = 1000000

// Engine manages the CEL environment and compiled classification rules.
// Safe for concurrent use.
type Engine struct {
	env      *cel.Env
	store    RuleStore
	cache    RulesCache             // ordered active rules
	programs map[string]cel.Program // ruleID -> compiled program
	mu       sync.RWMutex

	// writeMu serialises AddRule, UpdateRule and DeleteRule
	writeMu sync.Mutex
}

// NewEnv creates the CEL environment rules are compiled against
func NewEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable(ValueVar, cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return env, nil
}

// NewEngine creates an engine over store and compiles its active rules
func NewEngine(store RuleStore) (*Engine, error) {
	env, err := NewEnv()
	if err != nil {
		return nil, err
	}

	en := &Engine{
		env:      env,
		store:    store,
		cache:    NewInMemoryRulesCache(DefaultCacheConfig()),
		programs: make(map[string]cel.Program),
	}

	if err := en.CompileAllRules(); err != nil {
		return nil, fmt.Errorf("failed to compile rules: %w", err)
	}

	return en, nil
}

// NewEngineWithRules creates an engine backed by an in-memory store holding rules
func NewEngineWithRules(rules []*Rule) (*Engine, error) {
	if err := ValidateRuleSet(rules); err != nil {
		return nil, err
	}

	store := NewInMemoryRuleStore()
	for _, r := range rules {
		if err := store.Add(r); err != nil {
			return nil, err
		}
	}
	return NewEngine(store)
}

// CompileRule compiles a rule expression and caches the program.
// The expression must type-check to bool.
func (en *Engine) CompileRule(ruleID, expression string) error {
	prog, err := en.compile(expression)
	if err != nil {
		return err
	}
	en.setProgram(ruleID, prog)
	return nil
}

func (en *Engine) compile(expression string) (cel.Program, error) {
	ast, issues := en.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("compile error: expression must evaluate to bool, got %s", ast.OutputType())
	}

	prog, err := en.env.Program(ast,
		cel.EvalOptions(cel.OptTrackState),
		cel.CostLimit(costLimit),
	)
	if err != nil {
		return nil, fmt.Errorf("program creation error: %w", err)
	}
	return prog, nil
}

func (en *Engine) setProgram(ruleID string, prog cel.Program) {
	en.mu.Lock()
	if prog == nil {
		delete(en.programs, ruleID)
	} else {
		en.programs[ruleID] = prog
	}
	en.mu.Unlock()
}

// CompileAllRules compiles all active rules from the store and primes the cache
func (en *Engine) CompileAllRules() error {
	version := en.cache.Version()
	rules, err := en.store.ListActive()
	if err != nil {
		return err
	}

	for _, rule := range rules {
		if err := en.CompileRule(rule.ID, rule.Expression); err != nil {
			return fmt.Errorf("failed to compile rule %s: %w", rule.ID, err)
		}
	}

	en.cache.Set(rules, version)
	return nil
}

// AddRule validates, compiles and stores a new rule
func (en *Engine) AddRule(r *Rule) error {
	if err := ValidateRule(r); err != nil {
		return fmt.Errorf("rule validation failed: %w", err)
	}

	en.writeMu.Lock()
	defer en.writeMu.Unlock()

	if _, err := en.store.Get(r.ID); err == nil {
		return fmt.Errorf("rule with ID %s already exists", r.ID)
	}

	prog, err := en.compile(r.Expression)
	if err != nil {
		return fmt.Errorf("rule validation failed: %w", err)
	}

	// published first so a reader never sees the stored rule uncompiled
	en.setProgram(r.ID, prog)
	if err := en.store.Add(r); err != nil {
		en.setProgram(r.ID, nil)
		return err
	}

	en.cache.Invalidate()
	return nil
}

// UpdateRule validates and recompiles an existing rule. The stored
// program changes only once the store accepts the update.
func (en *Engine) UpdateRule(r *Rule) error {
	if err := ValidateRule(r); err != nil {
		return fmt.Errorf("rule validation failed: %w", err)
	}

	en.writeMu.Lock()
	defer en.writeMu.Unlock()

	if _, err := en.store.Get(r.ID); err != nil {
		return err
	}

	prog, err := en.compile(r.Expression)
	if err != nil {
		return fmt.Errorf("rule validation failed: %w", err)
	}

	if err := en.store.Update(r); err != nil {
		return err
	}
	en.setProgram(r.ID, prog)

	en.cache.Invalidate()
	return nil
}

// DeleteRule removes a rule from the store and its compiled program
func (en *Engine) DeleteRule(ruleID string) error {
	en.writeMu.Lock()
	defer en.writeMu.Unlock()

	if err := en.store.Delete(ruleID); err != nil {
		return err
	}
	en.setProgram(ruleID, nil)

	en.cache.Invalidate()
	return nil
}

// Rule returns a stored rule by ID
func (en *Engine) Rule(ruleID string) (*Rule, error) {
	return en.store.Get(ruleID)
}

// Rules returns every stored rule in evaluation order
func (en *Engine) Rules() ([]*Rule, error) {
	return en.store.List()
}

// Evaluate evaluates a single rule against value
func (en *Engine) Evaluate(ruleID, value string) (*EvaluationResult, error) {
	rule, err := en.store.Get(ruleID)
	if err != nil {
		return nil, err
	}

	result := en.eval(rule, value)
	return result, result.Error
}

// EvaluateAll evaluates every active rule in order against value.
// Evaluation continues past failing rules.
func (en *Engine) EvaluateAll(value string) ([]*EvaluationResult, error) {
	rules, err := en.activeRules()
	if err != nil {
		return nil, err
	}

	results := make([]*EvaluationResult, 0, len(rules))
	for _, rule := range rules {
		results = append(results, en.eval(rule, value))
	}
	return results, nil
}

// Match returns the result of the first active rule matching value, or nil
func (en *Engine) Match(value string) *EvaluationResult {
	rules, err := en.activeRules()
	if err != nil {
		logger.Error("failed to list classification rules", "error", err)
		return nil
	}

	for _, rule := range rules {
		result := en.eval(rule, value)
		if result.Error != nil {
			logger.Debug("classification rule failed", "rule", rule.ID, "error", result.Error)
			continue
		}
		if result.Matched {
			return result
		}
	}
	return nil
}

// Classify returns the kind of the first matching rule, or Unknown.
// Never fails: rule errors count as no match.
func (en *Engine) Classify(normalized string) identifier.Kind {
	if normalized == "" {
		return identifier.KindUnknown
	}
	if m := en.Match(normalized); m != nil {
		return m.Kind
	}
	return identifier.KindUnknown
}

// CacheStats reports usage of the active rule cache
func (en *Engine) CacheStats() CacheStats {
	return en.cache.Stats()
}

// activeRules reads the ordered active list through the cache. The version
// is read before the store so a mutation landing in between is not
// overwritten by the older list.
func (en *Engine) activeRules() ([]*Rule, error) {
	version := en.cache.Version()
	if rules := en.cache.Get(); rules != nil {
		return rules, nil
	}

	rules, err := en.store.ListActive()
	if err != nil {
		return nil, err
	}
	en.cache.Set(rules, version)
	return rules, nil
}

func (en *Engine) eval(rule *Rule, value string) *EvaluationResult {
	result := &EvaluationResult{
		RuleID:   rule.ID,
		RuleName: rule.Name,
		Kind:     rule.Kind,
	}

	en.mu.RLock()
	prog, exists := en.programs[rule.ID]
	en.mu.RUnlock()

	if !exists {
		result.Error = fmt.Errorf("rule %s is not compiled", rule.ID)
		return result
	}

	out, details, err := prog.Eval(map[string]any{ValueVar: value})
	if err != nil {
		result.Error = err
		return result
	}

	if b, ok := out.Value().(bool); ok {
		result.Matched = b
	}
	if details != nil {
		result.Trace = details.State()
	}
	return result
}
