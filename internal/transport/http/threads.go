package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"chathub/internal/domain"
)

// ListThreads retrieves threads ordered by recent activity.
// GET /api/threads
func (h *Handler) ListThreads(c echo.Context) error {
	limit := 50
	if l := c.QueryParam("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil {
			limit = val
		}
	}

	ctx := c.Request().Context()
	threads, err := h.store.ListThreads(ctx, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"threads": threads})
}

// GetThread retrieves a single thread.
// GET /api/threads/:thread_id
func (h *Handler) GetThread(c echo.Context) error {
	ctx := c.Request().Context()
	thread, err := h.service.Router().GetByID(ctx, c.Param("thread_id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if thread == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "thread not found"})
	}
	return c.JSON(http.StatusOK, thread)
}

// CloseThread marks a thread closed and evicts its pooled session.
// POST /api/threads/:thread_id/close
func (h *Handler) CloseThread(c echo.Context) error {
	threadID := c.Param("thread_id")
	ctx := c.Request().Context()
	if err := h.service.Router().Close(ctx, threadID); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	h.service.Pool().Evict(threadID)
	return c.JSON(http.StatusOK, map[string]string{"status": "closed"})
}

// GetThreadChildren lists a thread's sub-threads, newest first.
// GET /api/threads/:thread_id/children
func (h *Handler) GetThreadChildren(c echo.Context) error {
	ctx := c.Request().Context()
	children, err := h.service.Router().GetChildren(ctx, c.Param("thread_id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"threads": children})
}

type createSubThreadRequest struct {
	Name string            `json:"name"`
	Kind domain.ThreadKind `json:"kind,omitempty"`
}

// CreateSubThread creates a child thread under a parent.
// POST /api/threads/:thread_id/children
func (h *Handler) CreateSubThread(c echo.Context) error {
	var req createSubThreadRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	ctx := c.Request().Context()
	child, err := h.service.Router().CreateSubThread(ctx, c.Param("thread_id"), req.Name, req.Kind)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, child)
}

// GetThreadMessages retrieves a thread's messages in order.
// GET /api/threads/:thread_id/messages
func (h *Handler) GetThreadMessages(c echo.Context) error {
	limit := 100
	if l := c.QueryParam("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil {
			limit = val
		}
	}

	ctx := c.Request().Context()
	messages, err := h.store.GetMessages(ctx, c.Param("thread_id"), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"messages": messages})
}
