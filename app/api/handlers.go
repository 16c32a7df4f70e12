package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"urldigest/app/database"
	"urldigest/app/store"
	"urldigest/app/task"
)

func NewHandler(scheduler SchedulerInterface, saver *store.Saver, results database.ResultRepository) *Handler {
	return &Handler{
		scheduler: scheduler,
		saver:     saver,
		results:   results,
	}
}

// SubmitTask queues a new URL for analysis.
func (h *Handler) SubmitTask(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid request body", "details": err.Error()})
		return
	}

	t, err := h.scheduler.Submit(req.URL)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newTaskResponse(t))
}

// SubmitFeed queues every item of an RSS/Atom feed for analysis.
func (h *Handler) SubmitFeed(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid request body", "details": err.Error()})
		return
	}

	tasks, err := h.scheduler.SubmitFeed(c.Request.Context(), req.URL)
	if err != nil {
		h.renderError(c, err)
		return
	}

	responses := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		responses = append(responses, newTaskResponse(t))
	}

	c.JSON(http.StatusAccepted, gin.H{"tasks": responses, "total": len(responses)})
}

// ListTasks returns a snapshot of all tasks in submission order.
func (h *Handler) ListTasks(c *gin.Context) {
	tasks := h.scheduler.Snapshot()

	responses := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		responses = append(responses, newTaskResponse(t))
	}

	c.JSON(http.StatusOK, gin.H{"tasks": responses, "total": len(responses)})
}

// GetTask returns a single task snapshot.
func (h *Handler) GetTask(c *gin.Context) {
	t, err := h.scheduler.Get(c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, newTaskResponse(t))
}

// RestartTask re-queues a completed or failed task.
func (h *Handler) RestartTask(c *gin.Context) {
	t, err := h.scheduler.Restart(c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, newTaskResponse(t))
}

// SaveTask explicitly persists a completed task's result to the project
// directory.
func (h *Handler) SaveTask(c *gin.Context) {
	t, err := h.saver.Save(c.Param("id"))
	if err != nil {
		if errors.Is(err, task.ErrNotFound) || errors.Is(err, task.ErrIllegalTransition) {
			h.renderError(c, err)
			return
		}
		slog.Error("Failed to save result", "task_id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save result", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, newTaskResponse(t))
}

// ListResults returns archived results, most recent first.
func (h *Handler) ListResults(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		limit = parsed
	}

	records, err := h.results.GetResults(limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_results", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": records, "total": len(records)})
}

// StreamEvents delivers task state transitions as server-sent events.
func (h *Handler) StreamEvents(c *gin.Context) {
	sub := h.scheduler.Subscribe()
	defer sub.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return false
			}
			c.SSEvent("progress", eventResponse{
				TaskID:    ev.TaskID,
				OldState:  string(ev.OldState),
				NewState:  string(ev.NewState),
				Timestamp: ev.Timestamp,
			})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// GetHealth reports service liveness and task counts.
func (h *Handler) GetHealth(c *gin.Context) {
	health := gin.H{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	tasks := h.scheduler.Snapshot()
	counts := make(map[string]int, 4)
	for _, t := range tasks {
		counts[string(t.State)]++
	}
	health["tasks"] = len(tasks)
	health["states"] = counts

	if archived, err := h.results.GetResultCount(); err == nil {
		health["archived_results"] = archived
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, task.ErrInvalidURL):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid URL", "details": err.Error()})
	case errors.Is(err, task.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
	case errors.Is(err, task.ErrIllegalTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "Illegal task state transition", "details": err.Error()})
	case errors.Is(err, task.ErrShuttingDown):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service is shutting down"})
	default:
		slog.Error("Request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error", "details": err.Error()})
	}
}
