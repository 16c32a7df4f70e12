package api

import (
	"context"
	"time"

	"urldigest/app/database"
	"urldigest/app/scheduler"
	"urldigest/app/store"
	"urldigest/app/task"
)

// SchedulerInterface is the slice of the scheduler the API consumes.
type SchedulerInterface interface {
	Submit(rawURL string) (task.Task, error)
	SubmitFeed(ctx context.Context, feedURL string) ([]task.Task, error)
	Restart(id string) (task.Task, error)
	Get(id string) (task.Task, error)
	Snapshot() []task.Task
	Subscribe() *scheduler.Subscription
}

type Handler struct {
	scheduler SchedulerInterface
	saver     *store.Saver
	results   database.ResultRepository
}

type submitRequest struct {
	URL string `json:"url" binding:"required"`
}

type resultResponse struct {
	Title    string   `json:"title"`
	Keywords []string `json:"keywords"`
	Summary  string   `json:"summary"`
	Hashtags []string `json:"hashtags"`
	FullText string   `json:"full_text"`
}

type errorDetailResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type taskResponse struct {
	ID           string               `json:"id"`
	URL          string               `json:"url"`
	State        string               `json:"state"`
	ProgressHint string               `json:"progress_hint,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	StartedAt    *time.Time           `json:"started_at,omitempty"`
	FinishedAt   *time.Time           `json:"finished_at,omitempty"`
	Result       *resultResponse      `json:"result,omitempty"`
	Error        *errorDetailResponse `json:"error,omitempty"`
	SavePath     string               `json:"save_path,omitempty"`
}

type eventResponse struct {
	TaskID    string    `json:"task_id"`
	OldState  string    `json:"old_state,omitempty"`
	NewState  string    `json:"new_state"`
	Timestamp time.Time `json:"timestamp"`
}

func newTaskResponse(t task.Task) taskResponse {
	resp := taskResponse{
		ID:           t.ID,
		URL:          t.URL,
		State:        string(t.State),
		ProgressHint: t.ProgressHint,
		CreatedAt:    t.CreatedAt,
		StartedAt:    t.StartedAt,
		FinishedAt:   t.FinishedAt,
		SavePath:     t.SavePath,
	}
	if t.Result != nil {
		resp.Result = &resultResponse{
			Title:    t.Result.Title,
			Keywords: t.Result.Keywords,
			Summary:  t.Result.Summary,
			Hashtags: t.Result.Hashtags,
			FullText: t.Result.FullText,
		}
	}
	if t.ErrorDetail != nil {
		resp.Error = &errorDetailResponse{
			Kind:    string(t.ErrorDetail.Kind),
			Message: t.ErrorDetail.Message,
		}
	}
	return resp
}
