package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"chathub/internal/domain"
)

// ListTasks lists scheduled tasks.
// GET /api/tasks
func (h *Handler) ListTasks(c echo.Context) error {
	ctx := c.Request().Context()
	tasks, err := h.store.ListScheduledTasks(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"tasks": tasks})
}

// CreateTask stores a scheduled task and registers it with the scheduler.
// POST /api/tasks
func (h *Handler) CreateTask(c echo.Context) error {
	var req domain.CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Name == "" || req.CronExpr == "" || req.Prompt == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "name, cron_expr and prompt are required"})
	}

	task := &domain.ScheduledTask{
		TaskID:    "task_" + uuid.New().String()[:8],
		Name:      req.Name,
		CronExpr:  req.CronExpr,
		Prompt:    req.Prompt,
		Model:     req.Model,
		CreatedAt: time.Now(),
	}

	// Register first so a bad cron expression never reaches the store.
	if err := h.scheduler.Add(task); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	ctx := c.Request().Context()
	if err := h.store.CreateScheduledTask(ctx, task); err != nil {
		h.scheduler.Remove(task.TaskID)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, task)
}

// DeleteTask removes a scheduled task.
// DELETE /api/tasks/:task_id
func (h *Handler) DeleteTask(c echo.Context) error {
	taskID := c.Param("task_id")
	ctx := c.Request().Context()

	if err := h.store.DeleteScheduledTask(ctx, taskID); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	h.scheduler.Remove(taskID)
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}
