package http

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"chathub/internal/domain"
)

type pluginInfo struct {
	Name     string          `json:"name"`
	Version  string          `json:"version"`
	Enabled  bool            `json:"enabled"`
	Active   bool            `json:"active"`
	Settings json.RawMessage `json:"settings,omitempty"`
}

// ListPlugins lists known plugins with their persisted config and whether
// they are running. Enable and disable changes apply on restart.
// GET /api/plugins
func (h *Handler) ListPlugins(c echo.Context) error {
	ctx := c.Request().Context()
	configs, err := h.store.ListPluginConfigs(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	byName := make(map[string]domain.PluginConfig, len(configs))
	for _, cfg := range configs {
		byName[cfg.PluginName] = cfg
	}
	running := make(map[string]bool)
	for _, p := range h.plugins.Active() {
		running[p.Name] = true
	}

	infos := make([]pluginInfo, 0, len(h.plugins.Definitions()))
	for _, def := range h.plugins.Definitions() {
		info := pluginInfo{Name: def.Name, Version: def.Version, Active: running[def.Name]}
		if cfg, ok := byName[def.Name]; ok {
			info.Enabled = cfg.Enabled
			info.Settings = cfg.Settings
		}
		infos = append(infos, info)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"plugins": infos})
}

// EnablePlugin enables a plugin config.
// POST /api/plugins/:name/enable
func (h *Handler) EnablePlugin(c echo.Context) error {
	return h.setPluginEnabled(c, true)
}

// DisablePlugin disables a plugin config.
// POST /api/plugins/:name/disable
func (h *Handler) DisablePlugin(c echo.Context) error {
	return h.setPluginEnabled(c, false)
}

func (h *Handler) setPluginEnabled(c echo.Context, enabled bool) error {
	name := c.Param("name")
	ctx := c.Request().Context()

	cfg, err := h.store.GetPluginConfig(ctx, name)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if cfg == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "plugin not found"})
	}

	if err := h.store.SetPluginEnabled(ctx, name, enabled); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"plugin_name": name, "enabled": enabled})
}

// UpdatePluginSettings replaces a plugin's settings blob.
// PUT /api/plugins/:name/settings
func (h *Handler) UpdatePluginSettings(c echo.Context) error {
	name := c.Param("name")
	var req domain.UpdatePluginSettingsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	ctx := c.Request().Context()
	cfg, err := h.store.GetPluginConfig(ctx, name)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if cfg == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "plugin not found"})
	}

	settings, err := json.Marshal(req.Settings)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid settings"})
	}
	if err := h.store.UpdatePluginSettings(ctx, name, settings); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"plugin_name": name, "settings": req.Settings})
}
