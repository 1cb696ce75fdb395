package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// GetMetrics returns per-model usage rollups.
// GET /api/metrics
func (h *Handler) GetMetrics(c echo.Context) error {
	ctx := c.Request().Context()
	summaries, err := h.store.UsageSummary(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"metrics": summaries})
}
