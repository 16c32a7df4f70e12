package store

import (
	"log/slog"

	"urldigest/app/scheduler"
	"urldigest/app/task"
)

// ResultArchive records completed results in durable storage.
type ResultArchive interface {
	SaveResult(t task.Task) error
}

// AutoSaver observes progress events and reacts to completions: every
// completed result is archived, and when auto-save is enabled the result is
// also written to the project directory.
type AutoSaver struct {
	registry *task.Registry
	saver    *Saver
	archive  ResultArchive
	autoSave bool
}

func NewAutoSaver(registry *task.Registry, saver *Saver, archive ResultArchive, autoSave bool) *AutoSaver {
	return &AutoSaver{
		registry: registry,
		saver:    saver,
		archive:  archive,
		autoSave: autoSave,
	}
}

// Run consumes events until the subscription closes. It is meant to be run
// on its own goroutine.
func (a *AutoSaver) Run(sub *scheduler.Subscription) {
	for ev := range sub.Events() {
		if ev.NewState != task.StateCompleted {
			continue
		}
		a.handleCompleted(ev.TaskID)
	}
}

func (a *AutoSaver) handleCompleted(id string) {
	snapshot, err := a.registry.Get(id)
	if err != nil {
		slog.Warn("Completed task vanished before save", "task_id", id, "error", err)
		return
	}
	if snapshot.State != task.StateCompleted || snapshot.Result == nil {
		// Restarted between the event and now; the next completion gets its
		// own event.
		return
	}

	if a.archive != nil {
		if err := a.archive.SaveResult(snapshot); err != nil {
			slog.Error("Failed to archive result", "task_id", id, "error", err)
		}
	}

	if !a.autoSave || snapshot.SavePath != "" {
		return
	}

	saved, err := a.saver.Save(id)
	if err != nil {
		slog.Error("Auto-save failed", "task_id", id, "error", err)
		return
	}
	slog.Info("Result auto-saved", "task_id", id, "path", saved.SavePath)
}
