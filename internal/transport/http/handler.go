// Package http provides the HTTP API for the hub.
package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"chathub/internal/plugin"
	"chathub/internal/scheduler"
	"chathub/internal/service"
	"chathub/internal/store"
	"chathub/internal/transport/ws"
)

// Handler handles HTTP requests.
type Handler struct {
	service   *service.Service
	store     store.Store
	plugins   *plugin.Registry
	scheduler *scheduler.Scheduler
	ws        *ws.Server
	log       logrus.FieldLogger
}

// NewHandler creates a new handler.
func NewHandler(svc *service.Service, st store.Store, plugins *plugin.Registry, sched *scheduler.Scheduler, wsServer *ws.Server, log logrus.FieldLogger) *Handler {
	return &Handler{
		service:   svc,
		store:     st,
		plugins:   plugins,
		scheduler: sched,
		ws:        wsServer,
		log:       log,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	e.POST("/api/messages", h.SendMessage)

	e.GET("/api/threads", h.ListThreads)
	e.GET("/api/threads/:thread_id", h.GetThread)
	e.POST("/api/threads/:thread_id/close", h.CloseThread)
	e.GET("/api/threads/:thread_id/children", h.GetThreadChildren)
	e.POST("/api/threads/:thread_id/children", h.CreateSubThread)
	e.GET("/api/threads/:thread_id/messages", h.GetThreadMessages)

	e.GET("/api/plugins", h.ListPlugins)
	e.POST("/api/plugins/:name/enable", h.EnablePlugin)
	e.POST("/api/plugins/:name/disable", h.DisablePlugin)
	e.PUT("/api/plugins/:name/settings", h.UpdatePluginSettings)

	e.GET("/api/metrics", h.GetMetrics)

	e.GET("/api/tasks", h.ListTasks)
	e.POST("/api/tasks", h.CreateTask)
	e.DELETE("/api/tasks/:task_id", h.DeleteTask)

	if h.ws != nil {
		e.GET("/ws", h.ws.HandleWebSocket)
	}
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":   "healthy",
		"version":  "0.1.0",
		"sessions": h.service.Pool().Size(),
	})
}
