package store

import (
	"os"
	"sync"
	"testing"
	"time"

	"urldigest/app/scheduler"
	"urldigest/app/task"
)

// MockArchive implements ResultArchive for testing
type MockArchive struct {
	mu    sync.Mutex
	saved []task.Task
	err   error
}

var _ ResultArchive = (*MockArchive)(nil)

func (m *MockArchive) SaveResult(t task.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, t)
	return nil
}

func (m *MockArchive) SavedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

func waitFor(t *testing.T, timeout time.Duration, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Condition not met within timeout")
}

func TestAutoSaverSavesCompletedTask(t *testing.T) {
	registry := task.NewRegistry()
	saver := NewSaver(registry, NewFileStore(t.TempDir()))
	archive := &MockArchive{}
	bus := scheduler.NewBus()
	defer bus.Close()

	autoSaver := NewAutoSaver(registry, saver, archive, true)
	sub := bus.Subscribe()
	done := make(chan struct{})
	go func() {
		autoSaver.Run(sub)
		close(done)
	}()

	completed := completedTask(registry, "https://example.com/article")
	bus.Publish(scheduler.Event{
		TaskID:    completed.ID,
		OldState:  task.StateProcessing,
		NewState:  task.StateCompleted,
		Timestamp: time.Now(),
	})

	waitFor(t, 2*time.Second, func() bool {
		got, _ := registry.Get(completed.ID)
		return got.SavePath != ""
	})

	if archive.SavedCount() != 1 {
		t.Errorf("Expected 1 archived result, got %d", archive.SavedCount())
	}

	sub.Close()
	<-done
}

func TestAutoSaverSavesAtMostOnce(t *testing.T) {
	registry := task.NewRegistry()
	dir := t.TempDir()
	saver := NewSaver(registry, NewFileStore(dir))
	bus := scheduler.NewBus()
	defer bus.Close()

	autoSaver := NewAutoSaver(registry, saver, nil, true)
	sub := bus.Subscribe()
	go autoSaver.Run(sub)
	defer sub.Close()

	completed := completedTask(registry, "https://example.com/article")

	// The save path is already set, so a duplicate event is ignored
	first, err := saver.Save(completed.ID)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	firstStat, err := os.Stat(first.SavePath)
	if err != nil {
		t.Fatalf("Expected saved file to exist, got %v", err)
	}

	bus.Publish(scheduler.Event{
		TaskID:    completed.ID,
		NewState:  task.StateCompleted,
		Timestamp: time.Now(),
	})

	time.Sleep(100 * time.Millisecond)

	afterStat, err := os.Stat(first.SavePath)
	if err != nil {
		t.Fatalf("Expected saved file to still exist, got %v", err)
	}
	if !firstStat.ModTime().Equal(afterStat.ModTime()) {
		t.Error("Expected no rewrite of an already saved result")
	}
}

func TestAutoSaverDisabledStillArchives(t *testing.T) {
	registry := task.NewRegistry()
	saver := NewSaver(registry, NewFileStore(t.TempDir()))
	archive := &MockArchive{}
	bus := scheduler.NewBus()
	defer bus.Close()

	autoSaver := NewAutoSaver(registry, saver, archive, false)
	sub := bus.Subscribe()
	go autoSaver.Run(sub)
	defer sub.Close()

	completed := completedTask(registry, "https://example.com/article")
	bus.Publish(scheduler.Event{
		TaskID:    completed.ID,
		NewState:  task.StateCompleted,
		Timestamp: time.Now(),
	})

	waitFor(t, 2*time.Second, func() bool { return archive.SavedCount() == 1 })

	got, _ := registry.Get(completed.ID)
	if got.SavePath != "" {
		t.Errorf("Expected no auto-save with auto-save disabled, got '%s'", got.SavePath)
	}
}

func TestAutoSaverIgnoresNonCompletionEvents(t *testing.T) {
	registry := task.NewRegistry()
	saver := NewSaver(registry, NewFileStore(t.TempDir()))
	archive := &MockArchive{}
	bus := scheduler.NewBus()
	defer bus.Close()

	autoSaver := NewAutoSaver(registry, saver, archive, true)
	sub := bus.Subscribe()
	go autoSaver.Run(sub)
	defer sub.Close()

	created := registry.Create("https://example.com/article")
	bus.Publish(scheduler.Event{TaskID: created.ID, NewState: task.StateQueued, Timestamp: time.Now()})
	bus.Publish(scheduler.Event{TaskID: created.ID, NewState: task.StateProcessing, Timestamp: time.Now()})
	bus.Publish(scheduler.Event{TaskID: created.ID, NewState: task.StateError, Timestamp: time.Now()})

	time.Sleep(100 * time.Millisecond)

	if archive.SavedCount() != 0 {
		t.Errorf("Expected no archived results, got %d", archive.SavedCount())
	}
}

func TestAutoSaverSkipsRestartedTask(t *testing.T) {
	registry := task.NewRegistry()
	saver := NewSaver(registry, NewFileStore(t.TempDir()))
	archive := &MockArchive{}
	bus := scheduler.NewBus()
	defer bus.Close()

	autoSaver := NewAutoSaver(registry, saver, archive, true)

	completed := completedTask(registry, "https://example.com/article")
	// The task was restarted before the completion event is handled
	registry.Transition(completed.ID, task.StateCompleted, task.StateQueued, func(t *task.Task) {
		t.Result = nil
	})

	autoSaver.handleCompleted(completed.ID)

	if archive.SavedCount() != 0 {
		t.Errorf("Expected no archived results for a restarted task, got %d", archive.SavedCount())
	}
	got, _ := registry.Get(completed.ID)
	if got.SavePath != "" {
		t.Errorf("Expected no save path on restarted task, got '%s'", got.SavePath)
	}
}
