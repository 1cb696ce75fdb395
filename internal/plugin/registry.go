package plugin

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"chathub/internal/domain"
	"chathub/internal/store"
)

// FilterDisabled removes plugins named in disabled. When nothing is disabled
// the input slice is returned as is. Disabled names that match no known
// plugin are warned about and ignored.
func FilterDisabled(plugins []Definition, disabled []string, log logrus.FieldLogger) []Definition {
	if len(disabled) == 0 {
		return plugins
	}

	known := make(map[string]bool, len(plugins))
	for _, p := range plugins {
		known[p.Name] = true
	}
	disabledSet := make(map[string]bool, len(disabled))
	for _, name := range disabled {
		disabledSet[name] = true
		if !known[name] {
			log.Warnf("Disabled plugin %q not found in registry — ignoring", name)
		}
	}

	kept := make([]Definition, 0, len(plugins))
	for _, p := range plugins {
		if disabledSet[p.Name] {
			log.Infof("Plugin disabled by config: %s", p.Name)
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

// SyncConfigs reconciles plugin_configs rows with the known plugin set:
// missing rows are created enabled, rows for plugins that no longer exist are
// deleted. Rows for surviving plugins are left untouched.
func SyncConfigs(ctx context.Context, plugins []Definition, st store.Store, log logrus.FieldLogger) error {
	rows, err := st.ListPluginConfigs(ctx)
	if err != nil {
		return err
	}
	existing := make(map[string]bool, len(rows))
	for _, row := range rows {
		existing[row.PluginName] = true
	}
	known := make(map[string]bool, len(plugins))
	for _, p := range plugins {
		known[p.Name] = true
	}

	for _, p := range plugins {
		if existing[p.Name] {
			continue
		}
		cfg := &domain.PluginConfig{
			PluginName: p.Name,
			Enabled:    true,
			CreatedAt:  time.Now(),
		}
		if err := st.CreatePluginConfig(ctx, cfg); err != nil {
			return err
		}
		log.Infof("Added plugin config for new plugin: %s", p.Name)
	}

	for _, row := range rows {
		if known[row.PluginName] {
			continue
		}
		if err := st.DeletePluginConfig(ctx, row.PluginName); err != nil {
			return err
		}
		log.Infof("Removed stale plugin config: %s", row.PluginName)
	}
	return nil
}

// Registry holds the active plugin set.
type Registry struct {
	defs   []Definition
	active []Active
	log    logrus.FieldLogger
}

// NewRegistry creates a registry over a static plugin list.
func NewRegistry(defs []Definition, log logrus.FieldLogger) *Registry {
	return &Registry{defs: defs, log: log}
}

// Definitions returns the full plugin list, enabled or not.
func (r *Registry) Definitions() []Definition {
	return r.defs
}

// Init syncs plugin configs, filters disabled plugins, and registers the
// rest. A plugin whose Register or Start fails is skipped; startup continues.
func (r *Registry) Init(ctx context.Context, st store.Store, pc *Context) error {
	if err := SyncConfigs(ctx, r.defs, st, r.log); err != nil {
		return err
	}
	disabled, err := st.ListDisabledPluginNames(ctx)
	if err != nil {
		return err
	}
	enabled := FilterDisabled(r.defs, disabled, r.log)

	for _, def := range enabled {
		hooks, err := def.Register(pc)
		if err != nil {
			r.log.Errorf("Plugin %q failed to register: %v", def.Name, err)
			continue
		}
		if def.Start != nil {
			if err := def.Start(ctx); err != nil {
				r.log.Errorf("Plugin %q failed to start: %v", def.Name, err)
				continue
			}
		}
		r.active = append(r.active, Active{Definition: def, Hooks: hooks})
		r.log.Infof("Plugin registered: %s %s", def.Name, def.Version)
	}
	return nil
}

// Active returns the registered plugins in registration order.
func (r *Registry) Active() []Active {
	return r.active
}

// Stop runs each active plugin's Stop callback.
func (r *Registry) Stop() {
	for _, p := range r.active {
		if p.Definition.Stop == nil {
			continue
		}
		if err := p.Definition.Stop(); err != nil {
			r.log.Warnf("Plugin %q failed to stop: %v", p.Name, err)
		}
	}
}
