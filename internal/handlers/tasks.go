package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"scriba/internal/task"
)

// TaskHandler serves task-level operations shared by both pipelines.
type TaskHandler struct {
	registry *task.Registry
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(registry *task.Registry) *TaskHandler {
	return &TaskHandler{registry: registry}
}

// Get returns any task regardless of kind.
func (h *TaskHandler) Get(c echo.Context) error {
	t, ok := h.registry.Get(c.Param("task_id"))
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "task not found"})
	}
	return c.JSON(http.StatusOK, toTaskResponse(t))
}

// Delete removes a task record. A running job keeps executing but its
// further updates land nowhere.
func (h *TaskHandler) Delete(c echo.Context) error {
	id := c.Param("task_id")
	if _, ok := h.registry.Get(id); !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "task not found"})
	}
	h.registry.Delete(id)
	return c.NoContent(http.StatusNoContent)
}
