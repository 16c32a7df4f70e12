package task

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestCreateAssignsUniqueIDs(t *testing.T) {
	registry := NewRegistry()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		created := registry.Create("https://example.com/article")
		if created.ID == "" {
			t.Fatal("Expected a non-empty task ID")
		}
		if seen[created.ID] {
			t.Fatalf("Duplicate task ID: %s", created.ID)
		}
		seen[created.ID] = true

		if created.State != StateQueued {
			t.Errorf("Expected new task state 'queued', got '%s'", created.State)
		}
	}

	if registry.Count() != 100 {
		t.Errorf("Expected 100 tasks, got %d", registry.Count())
	}
}

func TestCreateAllowsDuplicateURLs(t *testing.T) {
	registry := NewRegistry()

	first := registry.Create("https://example.com/same")
	second := registry.Create("https://example.com/same")

	if first.ID == second.ID {
		t.Error("Expected distinct tasks for the same URL")
	}
}

func TestGetReturnsSnapshot(t *testing.T) {
	registry := NewRegistry()
	created := registry.Create("https://example.com/article")

	got, err := registry.Get(created.ID)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got.URL != "https://example.com/article" {
		t.Errorf("Expected URL 'https://example.com/article', got '%s'", got.URL)
	}

	// Mutating the snapshot must not leak back into the registry
	got.State = StateError
	got.URL = "https://evil.example.com"

	again, _ := registry.Get(created.ID)
	if again.State != StateQueued {
		t.Errorf("Expected registry state 'queued', got '%s'", again.State)
	}
	if again.URL != "https://example.com/article" {
		t.Errorf("Expected registry URL unchanged, got '%s'", again.URL)
	}
}

func TestGetUnknownID(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Get("no-such-id")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestTransitionAppliesMutation(t *testing.T) {
	registry := NewRegistry()
	created := registry.Create("https://example.com/article")

	updated, err := registry.Transition(created.ID, StateQueued, StateProcessing, func(task *Task) {
		task.ProgressHint = "fetching"
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if updated.State != StateProcessing {
		t.Errorf("Expected state 'processing', got '%s'", updated.State)
	}
	if updated.ProgressHint != "fetching" {
		t.Errorf("Expected progress hint 'fetching', got '%s'", updated.ProgressHint)
	}
}

func TestTransitionRejectsWrongState(t *testing.T) {
	registry := NewRegistry()
	created := registry.Create("https://example.com/article")

	_, err := registry.Transition(created.ID, StateProcessing, StateCompleted, nil)
	if !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("Expected ErrIllegalTransition, got %v", err)
	}

	// Task is untouched after a rejected transition
	got, _ := registry.Get(created.ID)
	if got.State != StateQueued {
		t.Errorf("Expected state 'queued' after rejected transition, got '%s'", got.State)
	}
}

func TestTransitionUnknownID(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Transition("no-such-id", StateQueued, StateProcessing, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestTransitionExactlyOnceUnderContention(t *testing.T) {
	registry := NewRegistry()
	created := registry.Create("https://example.com/article")

	var wg sync.WaitGroup
	successes := make(chan struct{}, 10)

	// Ten goroutines race the same queued -> processing transition; the
	// expected-state check must let exactly one through.
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := registry.Transition(created.ID, StateQueued, StateProcessing, nil); err == nil {
				successes <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(successes)

	count := 0
	for range successes {
		count++
	}
	if count != 1 {
		t.Errorf("Expected exactly 1 successful transition, got %d", count)
	}
}

func TestListOrderedBySubmission(t *testing.T) {
	registry := NewRegistry()

	var ids []string
	for i := 0; i < 20; i++ {
		created := registry.Create(fmt.Sprintf("https://example.com/%d", i))
		ids = append(ids, created.ID)
	}

	tasks := registry.List()
	if len(tasks) != 20 {
		t.Fatalf("Expected 20 tasks, got %d", len(tasks))
	}
	for i, task := range tasks {
		if task.ID != ids[i] {
			t.Errorf("Expected task %d to be %s, got %s", i, ids[i], task.ID)
		}
	}
}

func TestStateTerminal(t *testing.T) {
	if StateQueued.Terminal() {
		t.Error("Expected 'queued' to be non-terminal")
	}
	if StateProcessing.Terminal() {
		t.Error("Expected 'processing' to be non-terminal")
	}
	if !StateCompleted.Terminal() {
		t.Error("Expected 'completed' to be terminal")
	}
	if !StateError.Terminal() {
		t.Error("Expected 'error' to be terminal")
	}
}

func TestCloneDeepCopiesResult(t *testing.T) {
	registry := NewRegistry()
	created := registry.Create("https://example.com/article")

	registry.Transition(created.ID, StateQueued, StateCompleted, func(task *Task) {
		task.Result = &Result{
			Title:    "Title",
			Keywords: []string{"one", "two"},
			Hashtags: []string{"#one"},
		}
	})

	snapshot, _ := registry.Get(created.ID)
	snapshot.Result.Keywords[0] = "mutated"
	snapshot.Result.Title = "mutated"

	again, _ := registry.Get(created.ID)
	if again.Result.Keywords[0] != "one" {
		t.Errorf("Expected keywords unchanged, got '%s'", again.Result.Keywords[0])
	}
	if again.Result.Title != "Title" {
		t.Errorf("Expected title unchanged, got '%s'", again.Result.Title)
	}
}
