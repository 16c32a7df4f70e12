package task

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry is the authoritative store of all tasks. Every mutation goes
// through Create or Transition, so a task can never be observed half-written
// and state preconditions are checked under the same lock that applies the
// change.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*Task
	seq   uint64
}

func NewRegistry() *Registry {
	return &Registry{
		tasks: make(map[string]*Task),
	}
}

// Create inserts a new queued task for the given URL and returns a snapshot
// of it. IDs are UUIDs and are never reused.
func (r *Registry) Create(url string) Task {
	t := &Task{
		ID:        uuid.New().String(),
		URL:       url,
		State:     StateQueued,
		CreatedAt: time.Now().UTC(),
	}

	r.mu.Lock()
	r.seq++
	// CreatedAt alone is not a total order on fast submissions, so nudge
	// equal timestamps apart by the insertion sequence.
	t.CreatedAt = t.CreatedAt.Add(time.Duration(r.seq) * time.Nanosecond)
	r.tasks[t.ID] = t
	r.mu.Unlock()

	return t.clone()
}

// Get returns a snapshot of the task with the given ID.
func (r *Registry) Get(id string) (Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		return Task{}, ErrNotFound
	}
	return t.clone(), nil
}

// Transition atomically verifies the task is in the expected state, applies
// the mutation and moves the task to the new state. The expected-state check
// is the sole guard against races between a restart request and an in-flight
// worker finishing the same task.
func (r *Registry) Transition(id string, from, to State, apply func(*Task)) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return Task{}, ErrNotFound
	}
	if t.State != from {
		return Task{}, fmt.Errorf("%w: task %s is %s, expected %s", ErrIllegalTransition, id, t.State, from)
	}

	t.State = to
	if apply != nil {
		apply(t)
	}

	return t.clone(), nil
}

// List returns snapshots of all tasks ordered by creation time.
func (r *Registry) List() []Task {
	r.mu.RLock()
	tasks := make([]Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		tasks = append(tasks, t.clone())
	}
	r.mu.RUnlock()

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})

	return tasks
}

// Count returns the number of registered tasks.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}
