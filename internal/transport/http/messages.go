package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"chathub/internal/domain"
)

// SendMessage accepts an inbound message and kicks off the pipeline.
// POST /api/messages
func (h *Handler) SendMessage(c echo.Context) error {
	var req domain.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Source == "" || req.SourceID == "" || req.Content == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "source, source_id and content are required"})
	}

	ctx := c.Request().Context()
	resp, err := h.service.SendToThread(ctx, req)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	// The pipeline runs in the background; the reply arrives over the
	// websocket feed.
	return c.JSON(http.StatusAccepted, resp)
}
