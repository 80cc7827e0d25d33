package rules

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// RuleStore manages rule storage and retrieval
type RuleStore interface {
	// Add a new rule
	Add(rule *Rule) error

	// Get a rule by ID
	Get(id string) (*Rule, error)

	// List all rules in evaluation order
	List() ([]*Rule, error)

	// List active rules in evaluation order
	ListActive() ([]*Rule, error)

	// Update an existing rule
	Update(rule *Rule) error

	// Delete a rule
	Delete(id string) error
}

// InMemoryRuleStore implements RuleStore using an in-memory map
type InMemoryRuleStore struct {
	rules map[string]*Rule
	mu    sync.RWMutex
}

// NewInMemoryRuleStore creates a new in-memory rule store
func NewInMemoryRuleStore() *InMemoryRuleStore {
	return &InMemoryRuleStore{
		rules: make(map[string]*Rule),
	}
}

// Add adds a new rule to the store, setting CreatedAt and UpdatedAt
func (s *InMemoryRuleStore) Add(rule *Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[rule.ID]; exists {
		return fmt.Errorf("rule with ID %s already exists", rule.ID)
	}

	now := time.Now()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	s.rules[rule.ID] = rule
	return nil
}

// Get retrieves a rule by ID
func (s *InMemoryRuleStore) Get(id string) (*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rule, exists := s.rules[id]
	if !exists {
		return nil, fmt.Errorf("rule with ID %s not found", id)
	}
	return rule, nil
}

// List returns every rule ordered by priority, then ID
func (s *InMemoryRuleStore) List() ([]*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*Rule, 0, len(s.rules))
	for _, rule := range s.rules {
		all = append(all, rule)
	}
	sortRules(all)
	return all, nil
}

// ListActive returns active rules ordered by priority, then ID
func (s *InMemoryRuleStore) ListActive() ([]*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var active []*Rule
	for _, rule := range s.rules {
		if rule.Active {
			active = append(active, rule)
		}
	}
	sortRules(active)
	return active, nil
}

// Update replaces an existing rule, preserving CreatedAt
func (s *InMemoryRuleStore) Update(rule *Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.rules[rule.ID]
	if !exists {
		return fmt.Errorf("rule with ID %s not found", rule.ID)
	}

	rule.CreatedAt = existing.CreatedAt
	rule.UpdatedAt = time.Now()
	s.rules[rule.ID] = rule
	return nil
}

// Delete removes a rule from the store
func (s *InMemoryRuleStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[id]; !exists {
		return fmt.Errorf("rule with ID %s not found", id)
	}

	delete(s.rules, id)
	return nil
}

// sortRules orders rules for evaluation. Ties on priority break on ID so the
// order never depends on map iteration.
func sortRules(rules []*Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority < rules[j].Priority
		}
		return rules[i].ID < rules[j].ID
	})
}
