package plugin

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// RunHook invokes one hook across all plugins in registration order. The fn
// callback selects the plugin's implementation and returns nil when the
// plugin does not implement the hook. A failing or panicking plugin is logged
// and the remaining plugins still run.
func RunHook(plugins []Active, hookName string, fn func(h Hooks) error, log logrus.FieldLogger) {
	for _, p := range plugins {
		if err := runIsolated(p.Hooks, fn); err != nil {
			log.WithField("plugin", p.Name).Errorf("Hook %q threw: %v", hookName, err)
		}
	}
}

// RunChainHook threads a value through one hook across all plugins in
// registration order. Each successful plugin's return value becomes the input
// to the next; a failing or panicking plugin is logged and leaves the value
// untouched. The fn callback returns the value unchanged when the plugin does
// not implement the hook.
func RunChainHook(plugins []Active, hookName, initial string, fn func(h Hooks, value string) (string, error), log logrus.FieldLogger) string {
	value := initial
	for _, p := range plugins {
		next, err := runChainIsolated(p.Hooks, value, fn)
		if err != nil {
			log.WithField("plugin", p.Name).Errorf("Hook %q threw: %v", hookName, err)
			continue
		}
		value = next
	}
	return value
}

func runIsolated(h Hooks, fn func(h Hooks) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(h)
}

func runChainIsolated(h Hooks, value string, fn func(h Hooks, value string) (string, error)) (next string, err error) {
	defer func() {
		if r := recover(); r != nil {
			next, err = value, fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(h, value)
}
