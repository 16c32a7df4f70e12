package store

import (
	"fmt"

	"urldigest/app/task"
)

// Saver persists a completed task's result to disk and records the save
// path on the task. A write failure never alters task state.
type Saver struct {
	registry *task.Registry
	files    *FileStore
}

func NewSaver(registry *task.Registry, files *FileStore) *Saver {
	return &Saver{registry: registry, files: files}
}

func (s *Saver) Save(id string) (task.Task, error) {
	snapshot, err := s.registry.Get(id)
	if err != nil {
		return task.Task{}, err
	}
	if snapshot.State != task.StateCompleted || snapshot.Result == nil {
		return task.Task{}, fmt.Errorf("%w: task %s is %s, no result to save",
			task.ErrIllegalTransition, id, snapshot.State)
	}

	path, err := s.files.Save(snapshot)
	if err != nil {
		return task.Task{}, err
	}

	// Completed -> Completed: only the save path changes. If the task was
	// restarted between the save and this point, the transition fails and
	// the path stays unset.
	updated, err := s.registry.Transition(id, task.StateCompleted, task.StateCompleted, func(t *task.Task) {
		t.SavePath = path
	})
	if err != nil {
		return task.Task{}, err
	}

	return updated, nil
}
