package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mmcdole/gofeed"

	"urldigest/app/analyzer"
	"urldigest/app/task"
)

// Scheduler is the coordinating facade over the registry, the work queue,
// the worker pool and the progress bus. All task lifecycle operations enter
// through it.
type Scheduler struct {
	registry    *task.Registry
	analyzer    analyzer.Analyzer
	bus         *Bus
	queue       *queue
	workerCount int
	userAgent   string
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	closed      atomic.Bool
}

func New(registry *task.Registry, an analyzer.Analyzer, bus *Bus, workerCount int, userAgent string) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		registry:    registry,
		analyzer:    an,
		bus:         bus,
		queue:       newQueue(),
		workerCount: workerCount,
		userAgent:   userAgent,
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
	slog.Info("Scheduler started", "workers", s.workerCount)
}

// Stop drains the pool: no new submissions are accepted, idle workers exit
// immediately and busy workers exit after their in-flight analysis returns.
func (s *Scheduler) Stop() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.queue.Close()
	s.wg.Wait()
	s.cancel()
	s.bus.Close()
	slog.Info("Scheduler stopped")
}

// Submit validates the URL, registers a new queued task for it and hands the
// task to the worker pool. Duplicate URLs are queued as distinct tasks.
func (s *Scheduler) Submit(rawURL string) (task.Task, error) {
	if s.closed.Load() {
		return task.Task{}, task.ErrShuttingDown
	}
	if err := validateURL(rawURL); err != nil {
		return task.Task{}, err
	}

	t := s.registry.Create(rawURL)
	if !s.queue.Push(t.ID) {
		return task.Task{}, task.ErrShuttingDown
	}

	s.publish(t.ID, "", task.StateQueued)
	slog.Debug("Task submitted", "task_id", t.ID, "url", rawURL)

	return t, nil
}

// SubmitFeed parses an RSS/Atom feed and submits every item link as its own
// task. Items without a valid link are skipped.
func (s *Scheduler) SubmitFeed(ctx context.Context, feedURL string) ([]task.Task, error) {
	if s.closed.Load() {
		return nil, task.ErrShuttingDown
	}
	if err := validateURL(feedURL); err != nil {
		return nil, err
	}

	parser := gofeed.NewParser()
	parser.UserAgent = s.userAgent

	feed, err := parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	tasks := make([]task.Task, 0, len(feed.Items))
	for _, item := range feed.Items {
		t, err := s.Submit(item.Link)
		if err != nil {
			if errors.Is(err, task.ErrShuttingDown) {
				return tasks, err
			}
			slog.Warn("Skipping feed item with invalid link", "feed", feedURL, "link", item.Link, "error", err)
			continue
		}
		tasks = append(tasks, t)
	}

	slog.Info("Feed submitted", "feed", feedURL, "items", len(feed.Items), "tasks", len(tasks))
	return tasks, nil
}

// Restart moves a terminal task back to the queue, clearing its previous
// outcome. Tasks that are queued or processing are rejected.
func (s *Scheduler) Restart(id string) (task.Task, error) {
	snapshot, err := s.registry.Get(id)
	if err != nil {
		return task.Task{}, err
	}
	if !snapshot.State.Terminal() {
		return task.Task{}, fmt.Errorf("%w: task %s is %s, only completed or failed tasks can be restarted",
			task.ErrIllegalTransition, id, snapshot.State)
	}

	oldState := snapshot.State
	// The expected-state check re-validates under the registry lock, so a
	// worker completing or another restart racing us fails cleanly here.
	t, err := s.registry.Transition(id, oldState, task.StateQueued, func(t *task.Task) {
		t.Result = nil
		t.ErrorDetail = nil
		t.SavePath = ""
		t.StartedAt = nil
		t.FinishedAt = nil
		t.ProgressHint = ""
	})
	if err != nil {
		return task.Task{}, err
	}

	if !s.queue.Push(id) {
		return task.Task{}, task.ErrShuttingDown
	}

	s.publish(id, oldState, task.StateQueued)
	slog.Info("Task restarted", "task_id", id, "previous_state", oldState)

	return t, nil
}

// Get returns a snapshot of a single task.
func (s *Scheduler) Get(id string) (task.Task, error) {
	return s.registry.Get(id)
}

// Snapshot returns copies of all tasks in submission order.
func (s *Scheduler) Snapshot() []task.Task {
	return s.registry.List()
}

// Subscribe registers a new progress observer.
func (s *Scheduler) Subscribe() *Subscription {
	return s.bus.Subscribe()
}

func (s *Scheduler) worker(workerID int) {
	defer s.wg.Done()

	for {
		id, ok := s.queue.Pop()
		if !ok {
			return
		}
		s.process(workerID, id)
	}
}

func (s *Scheduler) process(workerID int, id string) {
	startedAt := time.Now().UTC()
	snapshot, err := s.registry.Transition(id, task.StateQueued, task.StateProcessing, func(t *task.Task) {
		t.StartedAt = &startedAt
		t.FinishedAt = nil
		t.ProgressHint = "fetching"
	})
	if err != nil {
		// Stale queue entry; the task changed state since it was enqueued.
		slog.Debug("Dropping stale queue entry", "worker_id", workerID, "task_id", id, "error", err)
		return
	}
	s.publish(id, task.StateQueued, task.StateProcessing)

	progress := func(hint string) {
		s.registry.Transition(id, task.StateProcessing, task.StateProcessing, func(t *task.Task) {
			t.ProgressHint = hint
		})
	}

	// No registry lock is held here; the analysis may block for a long time.
	result, analyzeErr := s.analyzer.Analyze(s.ctx, snapshot.URL, progress)
	finishedAt := time.Now().UTC()

	if analyzeErr != nil {
		detail := classifyError(analyzeErr)
		_, err = s.registry.Transition(id, task.StateProcessing, task.StateError, func(t *task.Task) {
			t.FinishedAt = &finishedAt
			t.ErrorDetail = &detail
			t.ProgressHint = ""
		})
		if err != nil {
			slog.Error("Failed to record task error", "worker_id", workerID, "task_id", id, "error", err)
			return
		}
		s.publish(id, task.StateProcessing, task.StateError)
		slog.Error("Task failed", "worker_id", workerID, "task_id", id, "url", snapshot.URL,
			"kind", detail.Kind, "error", detail.Message, "duration", finishedAt.Sub(startedAt))
		return
	}

	_, err = s.registry.Transition(id, task.StateProcessing, task.StateCompleted, func(t *task.Task) {
		t.FinishedAt = &finishedAt
		t.Result = &task.Result{
			Title:    result.Title,
			Keywords: result.Keywords,
			Summary:  result.Summary,
			Hashtags: result.Hashtags,
			FullText: result.FullText,
		}
		t.ProgressHint = ""
	})
	if err != nil {
		slog.Error("Failed to record task result", "worker_id", workerID, "task_id", id, "error", err)
		return
	}
	s.publish(id, task.StateProcessing, task.StateCompleted)
	slog.Info("Task completed", "worker_id", workerID, "task_id", id, "url", snapshot.URL,
		"title", result.Title, "duration", finishedAt.Sub(startedAt))
}

func (s *Scheduler) publish(id string, oldState, newState task.State) {
	s.bus.Publish(Event{
		TaskID:    id,
		OldState:  oldState,
		NewState:  newState,
		Timestamp: time.Now().UTC(),
	})
}

func classifyError(err error) task.ErrorDetail {
	var analyzerErr *analyzer.Error
	if errors.As(err, &analyzerErr) {
		return task.ErrorDetail{
			Kind:    task.ErrorKind(analyzerErr.Kind),
			Message: analyzerErr.Message,
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return task.ErrorDetail{Kind: task.ErrorKindTimeout, Message: err.Error()}
	}
	return task.ErrorDetail{Kind: task.ErrorKindAnalysis, Message: err.Error()}
}

func validateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", task.ErrInvalidURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: %s (must start with http:// or https://)", task.ErrInvalidURL, rawURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%w: %s (missing host)", task.ErrInvalidURL, rawURL)
	}
	return nil
}
