package rules

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fps2me/fpsqr/identifier"
)

func testRule(id string, priority int, active bool) *Rule {
	return &Rule{
		ID:         id,
		Name:       "Rule " + id,
		Expression: `value.contains("@")`,
		Kind:       identifier.KindEmail,
		Priority:   priority,
		Active:     active,
	}
}

// TestRuleStoreInterfaceExists verifies InMemoryRuleStore implements RuleStore
func TestRuleStoreInterfaceExists(t *testing.T) {
	var _ RuleStore = (*InMemoryRuleStore)(nil)
}

// TestInMemoryRuleStoreAddDuplicate verifies duplicate IDs are rejected and the first rule kept
func TestInMemoryRuleStoreAddDuplicate(t *testing.T) {
	store := NewInMemoryRuleStore()

	first := testRule("dup", 1, true)
	second := testRule("dup", 2, true)
	second.Name = "Second"

	if err := store.Add(first); err != nil {
		t.Fatalf("First Add() should succeed: %v", err)
	}
	if err := store.Add(second); err == nil {
		t.Fatal("Add() with duplicate ID should return error")
	}

	got, err := store.Get("dup")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Name != "Rule dup" {
		t.Errorf("Rule should not have been overwritten, Name = %s", got.Name)
	}
}

// TestInMemoryRuleStoreGetNotFound verifies Get errors for unknown IDs
func TestInMemoryRuleStoreGetNotFound(t *testing.T) {
	store := NewInMemoryRuleStore()

	if _, err := store.Get("missing"); err == nil {
		t.Fatal("Get() with non-existent ID should return error")
	}
}

// TestInMemoryRuleStoreTimestamps verifies Add sets timestamps and Update preserves CreatedAt
func TestInMemoryRuleStoreTimestamps(t *testing.T) {
	store := NewInMemoryRuleStore()
	before := time.Now()

	if err := store.Add(testRule("ts", 1, true)); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}

	got, _ := store.Get("ts")
	if got.CreatedAt.Before(before) || got.CreatedAt.IsZero() {
		t.Errorf("CreatedAt = %v, should be set at Add()", got.CreatedAt)
	}
	if !got.UpdatedAt.Equal(got.CreatedAt) {
		t.Errorf("UpdatedAt = %v, should equal CreatedAt on creation", got.UpdatedAt)
	}
	created := got.CreatedAt

	time.Sleep(2 * time.Millisecond)
	updated := testRule("ts", 5, false)
	if err := store.Update(updated); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}

	got, _ = store.Get("ts")
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt changed on Update(): %v -> %v", created, got.CreatedAt)
	}
	if !got.UpdatedAt.After(created) {
		t.Errorf("UpdatedAt = %v, should be after CreatedAt", got.UpdatedAt)
	}
	if got.Priority != 5 || got.Active {
		t.Errorf("Update() did not replace fields: %+v", got)
	}
}

// TestInMemoryRuleStoreUpdateNotFound verifies Update errors for unknown IDs
func TestInMemoryRuleStoreUpdateNotFound(t *testing.T) {
	store := NewInMemoryRuleStore()

	if err := store.Update(testRule("missing", 1, true)); err == nil {
		t.Fatal("Update() with non-existent ID should return error")
	}
}

// TestInMemoryRuleStoreListActiveOrder verifies active rules come back in priority order
func TestInMemoryRuleStoreListActiveOrder(t *testing.T) {
	store := NewInMemoryRuleStore()

	for _, r := range []*Rule{
		testRule("c", 30, true),
		testRule("a", 10, true),
		testRule("off", 5, false),
		testRule("b2", 20, true),
		testRule("b1", 20, true),
	} {
		if err := store.Add(r); err != nil {
			t.Fatalf("Add() failed: %v", err)
		}
	}

	active, err := store.ListActive()
	if err != nil {
		t.Fatalf("ListActive() failed: %v", err)
	}

	want := []string{"a", "b1", "b2", "c"}
	if len(active) != len(want) {
		t.Fatalf("ListActive() returned %d rules, want %d", len(active), len(want))
	}
	for i, id := range want {
		if active[i].ID != id {
			t.Errorf("ListActive()[%d] = %s, want %s", i, active[i].ID, id)
		}
	}

	all, _ := store.List()
	if len(all) != 5 || all[0].ID != "off" {
		t.Errorf("List() should include inactive rules in priority order, got %d starting %s", len(all), all[0].ID)
	}
}

// TestInMemoryRuleStoreListActiveEmpty verifies an empty store lists nothing
func TestInMemoryRuleStoreListActiveEmpty(t *testing.T) {
	store := NewInMemoryRuleStore()

	active, err := store.ListActive()
	if err != nil {
		t.Fatalf("ListActive() failed: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("ListActive() returned %d rules, want 0", len(active))
	}
}

// TestInMemoryRuleStoreDelete verifies Delete removes the rule
func TestInMemoryRuleStoreDelete(t *testing.T) {
	store := NewInMemoryRuleStore()
	_ = store.Add(testRule("del", 1, true))

	if err := store.Delete("del"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := store.Get("del"); err == nil {
		t.Error("Get() after Delete() should return error")
	}
	if err := store.Delete("del"); err == nil {
		t.Error("second Delete() should return error")
	}
}

// TestInMemoryRuleStoreConcurrentReadWrite verifies concurrent access is safe
func TestInMemoryRuleStoreConcurrentReadWrite(t *testing.T) {
	store := NewInMemoryRuleStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = store.Add(testRule(fmt.Sprintf("r%d", i), i, i%2 == 0))
		}(i)
		go func() {
			defer wg.Done()
			_, _ = store.ListActive()
		}()
	}
	wg.Wait()

	all, _ := store.List()
	if len(all) != 50 {
		t.Errorf("List() returned %d rules, want 50", len(all))
	}
	active, _ := store.ListActive()
	if len(active) != 25 {
		t.Errorf("ListActive() returned %d rules, want 25", len(active))
	}
}
